package logger

import "testing"

func TestGetInitializesLogger(t *testing.T) {
	Init("test")
	if Get() == nil {
		t.Fatal("expected non-nil logger")
	}
	if Named("worker") == nil {
		t.Fatal("expected non-nil named logger")
	}
	Sync()
}
