package router

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func createRecurring(t *testing.T, app *testApp, token, body string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/recurring", body, token)
	mustStatus(t, rec, http.StatusCreated)
	return resource(t, rec, "recurring")["id"].(string)
}

func TestRecurringFlow_SchedulerCatchUpIsIdempotent(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "salary@test.com", "password123")
	categoryID := app.createCategory(t, token, "Salary", "income")

	recurringID := createRecurring(t, app, token, fmt.Sprintf(
		`{"categoryId":%q,"type":"income","amount":"3000","frequency":"monthly","startDate":"2024-01-15","description":"Payroll"}`,
		categoryID))

	// Scheduler routes reject callers without the pipeline key
	rec := app.request("POST", "/internal/v1/recurring/process?asOf=2024-04-10", "", token)
	mustStatus(t, rec, http.StatusUnauthorized)

	// Jan 15, Feb 15 and Mar 15 are due by Apr 10
	rec = app.internalRequest("POST", "/internal/v1/recurring/process?asOf=2024-04-10")
	mustStatus(t, rec, http.StatusOK)
	result := resource(t, rec, "result")
	if result["transactionsCreated"].(float64) != 3 {
		t.Fatalf("expected 3 transactions, got %v", result["transactionsCreated"])
	}

	// A second run on the same day creates nothing
	rec = app.internalRequest("POST", "/internal/v1/recurring/process?asOf=2024-04-10")
	mustStatus(t, rec, http.StatusOK)
	if created := resource(t, rec, "result")["transactionsCreated"].(float64); created != 0 {
		t.Errorf("expected 0 transactions on rerun, got %.0f", created)
	}

	rec = app.request("GET", "/api/v1/transactions?from=2024-01-01&to=2024-12-31&type=income", "", token)
	mustStatus(t, rec, http.StatusOK)
	page := parseJSON(t, rec)
	if page["totalItems"].(float64) != 3 {
		t.Fatalf("expected 3 materialized transactions, got %v", page["totalItems"])
	}
	for _, item := range page["data"].([]interface{}) {
		tx := item.(map[string]interface{})
		if tx["recurringId"] != recurringID {
			t.Errorf("expected recurringId %s, got %v", recurringID, tx["recurringId"])
		}
		assertAmount(t, "amount", tx["amount"], "3000")
	}

	rec = app.request("GET", "/api/v1/recurring/"+recurringID, "", token)
	mustStatus(t, rec, http.StatusOK)
	next := resource(t, rec, "recurring")["nextDueDate"].(string)
	if !strings.HasPrefix(next, "2024-04-15") {
		t.Errorf("expected next due 2024-04-15, got %s", next)
	}

	// Manual advance materializes exactly one more occurrence
	rec = app.request("POST", "/api/v1/recurring/"+recurringID+"/advance", "", token)
	mustStatus(t, rec, http.StatusOK)
	advanced := parseJSON(t, rec)
	tx := advanced["transaction"].(map[string]interface{})
	if !strings.HasPrefix(tx["date"].(string), "2024-04-15") {
		t.Errorf("expected advanced transaction on 2024-04-15, got %v", tx["date"])
	}
	next = advanced["recurring"].(map[string]interface{})["nextDueDate"].(string)
	if !strings.HasPrefix(next, "2024-05-15") {
		t.Errorf("expected next due 2024-05-15, got %s", next)
	}
}

func TestRecurringFlow_EndDateDeactivatesTemplate(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "gym@test.com", "password123")
	categoryID := app.createCategory(t, token, "Gym", "expense")

	recurringID := createRecurring(t, app, token, fmt.Sprintf(
		`{"categoryId":%q,"type":"expense","amount":"15","frequency":"weekly","startDate":"2024-01-01","endDate":"2024-01-10"}`,
		categoryID))

	rec := app.internalRequest("POST", "/internal/v1/recurring/process?asOf=2024-02-01")
	mustStatus(t, rec, http.StatusOK)
	result := resource(t, rec, "result")
	if result["transactionsCreated"].(float64) != 2 {
		t.Errorf("expected 2 transactions (Jan 1, Jan 8), got %v", result["transactionsCreated"])
	}
	if result["templatesEnded"].(float64) != 1 {
		t.Errorf("expected template to end, got %v", result["templatesEnded"])
	}

	rec = app.request("GET", "/api/v1/recurring?isActive=false", "", token)
	mustStatus(t, rec, http.StatusOK)
	if parseJSON(t, rec)["totalItems"].(float64) != 1 {
		t.Errorf("expected 1 inactive template, got %s", rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/recurring/"+recurringID+"/advance", "", token)
	mustStatus(t, rec, http.StatusBadRequest)
	if code := errorCode(t, rec); code != "RECURRING_INACTIVE" {
		t.Errorf("expected RECURRING_INACTIVE, got %s", code)
	}
}

func TestRecurringFlow_ReminderFromTemplate(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "netflix@test.com", "password123")
	categoryID := app.createCategory(t, token, "Streaming", "expense")

	recurringID := createRecurring(t, app, token, fmt.Sprintf(
		`{"categoryId":%q,"type":"expense","amount":"15.99","frequency":"monthly","startDate":"2024-06-05","description":"Netflix"}`,
		categoryID))

	rec := app.request("POST", "/api/v1/recurring/"+recurringID+"/reminder", `{"notifyBefore":2}`, token)
	mustStatus(t, rec, http.StatusCreated)
	reminder := resource(t, rec, "reminder")
	if reminder["recurringId"] != recurringID {
		t.Errorf("expected recurringId %s, got %v", recurringID, reminder["recurringId"])
	}
	if reminder["isRecurring"] != true {
		t.Errorf("expected a recurring reminder, got %v", reminder["isRecurring"])
	}
	if !strings.HasPrefix(reminder["dueDate"].(string), "2024-06-05") {
		t.Errorf("expected due 2024-06-05, got %v", reminder["dueDate"])
	}
	if reminder["notifyBefore"].(float64) != 2 {
		t.Errorf("expected notifyBefore 2, got %v", reminder["notifyBefore"])
	}
	assertAmount(t, "amount", reminder["amount"], "15.99")
}
