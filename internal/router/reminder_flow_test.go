package router

import (
	"net/http"
	"strings"
	"testing"
)

func TestReminderFlow_PayCreatesSuccessor(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "rent@test.com", "password123")

	rec := app.request("POST", "/api/v1/reminders",
		`{"title":"Rent","amount":"1200","dueDate":"2024-01-31","isRecurring":true,"frequency":"monthly","notifyBefore":5}`, token)
	mustStatus(t, rec, http.StatusCreated)
	reminder := resource(t, rec, "reminder")
	reminderID := reminder["id"].(string)
	if reminder["status"] == nil {
		t.Errorf("expected an evaluated status, got %v", reminder)
	}

	// Paying a recurring bill creates the next instance, clipped to month end
	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/pay", "", token)
	mustStatus(t, rec, http.StatusOK)
	payment := parseJSON(t, rec)
	paid := payment["reminder"].(map[string]interface{})
	if paid["isPaid"] != true {
		t.Errorf("expected paid reminder, got %v", paid["isPaid"])
	}
	if paid["status"] != "paid" {
		t.Errorf("expected status paid, got %v", paid["status"])
	}
	next, ok := payment["next"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a successor, got %s", rec.Body.String())
	}
	if !strings.HasPrefix(next["dueDate"].(string), "2024-02-29") {
		t.Errorf("expected successor due 2024-02-29, got %v", next["dueDate"])
	}
	if next["previousId"] != reminderID {
		t.Errorf("expected previousId %s, got %v", reminderID, next["previousId"])
	}
	if next["isPaid"] != false {
		t.Errorf("expected unpaid successor, got %v", next["isPaid"])
	}

	// Paying twice is rejected
	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/pay", "", token)
	mustStatus(t, rec, http.StatusBadRequest)
	if code := errorCode(t, rec); code != "REMINDER_ALREADY_PAID" {
		t.Errorf("expected REMINDER_ALREADY_PAID, got %s", code)
	}

	// Unpaying keeps the successor
	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/unpay", "", token)
	mustStatus(t, rec, http.StatusOK)
	if resource(t, rec, "reminder")["isPaid"] != false {
		t.Errorf("expected unpaid reminder after unpay")
	}

	rec = app.request("GET", "/api/v1/reminders", "", token)
	mustStatus(t, rec, http.StatusOK)
	if total := parseJSON(t, rec)["totalItems"].(float64); total != 2 {
		t.Errorf("expected 2 reminders, got %.0f", total)
	}

	rec = app.request("GET", "/api/v1/reminders?isPaid=true", "", token)
	mustStatus(t, rec, http.StatusOK)
	if total := parseJSON(t, rec)["totalItems"].(float64); total != 0 {
		t.Errorf("expected 0 paid reminders, got %.0f", total)
	}
}

func TestReminderFlow_OneOffPayHasNoSuccessor(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "dentist@test.com", "password123")

	rec := app.request("POST", "/api/v1/reminders",
		`{"title":"Dentist","amount":"90","dueDate":"2024-05-02"}`, token)
	mustStatus(t, rec, http.StatusCreated)
	reminderID := resource(t, rec, "reminder")["id"].(string)

	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/pay", "", token)
	mustStatus(t, rec, http.StatusOK)
	if _, ok := parseJSON(t, rec)["next"]; ok {
		t.Errorf("expected no successor for a one-off reminder, got %s", rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/unpay", "", token)
	mustStatus(t, rec, http.StatusOK)

	rec = app.request("POST", "/api/v1/reminders/"+reminderID+"/unpay", "", token)
	mustStatus(t, rec, http.StatusBadRequest)
	if code := errorCode(t, rec); code != "REMINDER_NOT_PAID" {
		t.Errorf("expected REMINDER_NOT_PAID, got %s", code)
	}
}

func TestReminderFlow_CalendarExport(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "ics@test.com", "password123")

	app.request("POST", "/api/v1/reminders",
		`{"title":"Phone bill","amount":"30","dueDate":"2024-03-10","isRecurring":true,"frequency":"monthly"}`, token)
	app.request("POST", "/api/v1/reminders",
		`{"title":"Insurance","amount":"400","dueDate":"2024-03-31","isRecurring":true,"frequency":"monthly"}`, token)

	rec := app.request("GET", "/api/v1/reminders/calendar.ics", "", token)
	mustStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}

	body := rec.Body.String()
	if strings.Count(body, "BEGIN:VEVENT") != 2 {
		t.Errorf("expected 2 events, got:\n%s", body)
	}
	if !strings.Contains(body, "SUMMARY:Phone bill") {
		t.Errorf("expected Phone bill summary, got:\n%s", body)
	}
	// Day 10 repeats exactly; day 31 is exported as a single instance.
	if strings.Count(body, "RRULE:FREQ=MONTHLY") != 1 {
		t.Errorf("expected exactly one monthly RRULE, got:\n%s", body)
	}
}

func TestReminderFlow_NotifyOncePerDay(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "notify@test.com", "password123")

	rec := app.request("POST", "/api/v1/reminders",
		`{"title":"Water","amount":"25","dueDate":"2030-06-12","notifyBefore":3}`, token)
	mustStatus(t, rec, http.StatusCreated)

	// Outside the window
	rec = app.internalRequest("POST", "/internal/v1/reminders/notify?asOf=2030-06-01")
	mustStatus(t, rec, http.StatusOK)
	if sent := parseJSON(t, rec)["sent"].(float64); sent != 0 {
		t.Errorf("expected 0 notifications outside the window, got %.0f", sent)
	}

	// Inside the window, then a rerun the same day
	rec = app.internalRequest("POST", "/internal/v1/reminders/notify?asOf=2030-06-10")
	mustStatus(t, rec, http.StatusOK)
	if sent := parseJSON(t, rec)["sent"].(float64); sent != 1 {
		t.Errorf("expected 1 notification, got %.0f", sent)
	}

	rec = app.internalRequest("POST", "/internal/v1/reminders/notify?asOf=2030-06-10")
	mustStatus(t, rec, http.StatusOK)
	if sent := parseJSON(t, rec)["sent"].(float64); sent != 0 {
		t.Errorf("expected no repeat on the same day, got %.0f", sent)
	}

	rec = app.internalRequest("POST", "/internal/v1/reminders/notify?asOf=2030-06-11")
	mustStatus(t, rec, http.StatusOK)
	if sent := parseJSON(t, rec)["sent"].(float64); sent != 1 {
		t.Errorf("expected a fresh notification the next day, got %.0f", sent)
	}
}
