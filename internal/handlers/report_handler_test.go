package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/middleware"
	"pennywise/internal/models"
	"pennywise/internal/services"
)

// --- mock report service ---

type mockReportService struct {
	getSummaryFn           func(userID string, from, to time.Time) (*services.ReportSummary, error)
	getCategoryBreakdownFn func(userID string, from, to time.Time, txType models.TransactionType) (*services.CategoryReport, error)
}

var _ services.ReportServicer = (*mockReportService)(nil)

func (m *mockReportService) GetSummary(userID string, from, to time.Time) (*services.ReportSummary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(userID, from, to)
	}
	return &services.ReportSummary{}, nil
}

func (m *mockReportService) GetCategoryBreakdown(userID string, from, to time.Time, txType models.TransactionType) (*services.CategoryReport, error) {
	if m.getCategoryBreakdownFn != nil {
		return m.getCategoryBreakdownFn(userID, from, to, txType)
	}
	return &services.CategoryReport{}, nil
}

func setupReportRouter(handler *ReportHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/reports/summary", handler.GetSummary)
	auth.GET("/reports/categories", handler.GetCategoryBreakdown)
	return r
}

func TestReportHandler_GetSummary(t *testing.T) {
	t.Run("passes the range through", func(t *testing.T) {
		var from, to time.Time
		repSvc := &mockReportService{
			getSummaryFn: func(_ string, f, tt time.Time) (*services.ReportSummary, error) {
				from, to = f, tt
				return &services.ReportSummary{
					Currency: "USD",
					Income:   decimal.NewFromInt(3000),
					Expense:  decimal.NewFromInt(200),
					Net:      decimal.NewFromInt(2800),
				}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(repSvc))

		rec := doRequest(r, "GET", "/reports/summary?from=2024-01-01&to=2024-01-31", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if from.Day() != 1 || to.Day() != 31 {
			t.Errorf("expected January range, got %s..%s", from, to)
		}
		summary := parseJSON(t, rec)["summary"].(map[string]interface{})
		if summary["net"] != "2800" {
			t.Errorf("expected net \"2800\", got %v", summary["net"])
		}
	})

	t.Run("leaves missing bounds zero", func(t *testing.T) {
		from, to := time.Now(), time.Now()
		repSvc := &mockReportService{
			getSummaryFn: func(_ string, f, tt time.Time) (*services.ReportSummary, error) {
				from, to = f, tt
				return &services.ReportSummary{}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(repSvc))

		doRequest(r, "GET", "/reports/summary", "")

		if !from.IsZero() || !to.IsZero() {
			t.Errorf("expected zero bounds, got %s..%s", from, to)
		}
	})

	t.Run("maps range errors", func(t *testing.T) {
		repSvc := &mockReportService{
			getSummaryFn: func(_ string, _, _ time.Time) (*services.ReportSummary, error) {
				return nil, apperrors.ErrInvalidInput
			},
		}
		r := setupReportRouter(NewReportHandler(repSvc))

		rec := doRequest(r, "GET", "/reports/summary?from=2024-02-01&to=2024-01-01", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestReportHandler_GetCategoryBreakdown(t *testing.T) {
	t.Run("defaults to expense", func(t *testing.T) {
		var captured models.TransactionType
		repSvc := &mockReportService{
			getCategoryBreakdownFn: func(_ string, _, _ time.Time, txType models.TransactionType) (*services.CategoryReport, error) {
				captured = txType
				return &services.CategoryReport{Type: txType, Categories: []services.CategoryTotal{}}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(repSvc))

		rec := doRequest(r, "GET", "/reports/categories", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured != models.TransactionTypeExpense {
			t.Errorf("expected expense, got %s", captured)
		}
	})

	t.Run("maps invalid type", func(t *testing.T) {
		repSvc := &mockReportService{
			getCategoryBreakdownFn: func(_ string, _, _ time.Time, _ models.TransactionType) (*services.CategoryReport, error) {
				return nil, apperrors.ErrInvalidTransactionType
			},
		}
		r := setupReportRouter(NewReportHandler(repSvc))

		rec := doRequest(r, "GET", "/reports/categories?type=transfer", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_TRANSACTION_TYPE")
	})
}

func newKeyedRequest(method, path, key string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-API-Key", key)
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInternalHandler(t *testing.T) {
	setup := func(recSvc *mockRecurringService, remSvc *mockReminderService) *gin.Engine {
		h := NewInternalHandler(recSvc, remSvc)
		r := gin.New()
		internal := r.Group("/internal/v1", middleware.InternalAuthMiddleware("secret"))
		internal.POST("/recurring/process", h.ProcessRecurring)
		internal.POST("/reminders/notify", h.NotifyReminders)
		return r
	}

	t.Run("rejects a missing key", func(t *testing.T) {
		r := setup(&mockRecurringService{}, &mockReminderService{})

		rec := doRequest(r, "POST", "/internal/v1/recurring/process", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("processes every owner with asOf", func(t *testing.T) {
		var capturedToday time.Time
		recSvc := &mockRecurringService{
			processAllDueFn: func(_ context.Context, today time.Time) (*services.ProcessResult, error) {
				capturedToday = today
				return &services.ProcessResult{TemplatesProcessed: 3, TransactionsCreated: 4, TemplatesEnded: 1}, nil
			},
		}
		r := setup(recSvc, &mockReminderService{})

		req := newKeyedRequest("POST", "/internal/v1/recurring/process?asOf=2024-04-01", "secret")
		rec := serve(r, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !capturedToday.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected 2024-04-01, got %s", capturedToday)
		}
		result := parseJSON(t, rec)["result"].(map[string]interface{})
		if result["templatesEnded"].(float64) != 1 {
			t.Errorf("expected 1 ended, got %v", result["templatesEnded"])
		}
	})

	t.Run("reports the number of notifications", func(t *testing.T) {
		remSvc := &mockReminderService{
			notifyDueFn: func(_ context.Context, _ time.Time) (int, error) { return 2, nil },
		}
		r := setup(&mockRecurringService{}, remSvc)

		rec := serve(r, newKeyedRequest("POST", "/internal/v1/reminders/notify", "secret"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["sent"].(float64) != 2 {
			t.Errorf("expected 2 sent, got %s", rec.Body.String())
		}
	})
}
