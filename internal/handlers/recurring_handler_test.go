package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

const testRecurringID = "01928f3c-5a7e-7b1d-9c2e-00000000d001"

// --- mock recurring service ---

type mockRecurringService struct {
	createRecurringFn  func(userID string, in services.RecurringInput) (*models.RecurringTransaction, error)
	getUserRecurringFn func(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.RecurringTransaction], error)
	getRecurringByIDFn func(userID, recurringID string) (*models.RecurringTransaction, error)
	updateRecurringFn  func(userID, recurringID string, in services.RecurringUpdate) (*models.RecurringTransaction, error)
	deleteRecurringFn  func(userID, recurringID string) error
	advanceRecurringFn func(ctx context.Context, userID, recurringID string) (*services.AdvanceResult, error)
	processDueFn       func(ctx context.Context, userID string, today time.Time) (*services.ProcessResult, error)
	processAllDueFn    func(ctx context.Context, today time.Time) (*services.ProcessResult, error)
}

var _ services.RecurringServicer = (*mockRecurringService)(nil)

func (m *mockRecurringService) CreateRecurring(userID string, in services.RecurringInput) (*models.RecurringTransaction, error) {
	if m.createRecurringFn != nil {
		return m.createRecurringFn(userID, in)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) GetUserRecurring(userID string, page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.RecurringTransaction], error) {
	if m.getUserRecurringFn != nil {
		return m.getUserRecurringFn(userID, page, isActive)
	}
	resp := pagination.NewPageResponse([]models.RecurringTransaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockRecurringService) GetRecurringByID(userID, recurringID string) (*models.RecurringTransaction, error) {
	if m.getRecurringByIDFn != nil {
		return m.getRecurringByIDFn(userID, recurringID)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) UpdateRecurring(userID, recurringID string, in services.RecurringUpdate) (*models.RecurringTransaction, error) {
	if m.updateRecurringFn != nil {
		return m.updateRecurringFn(userID, recurringID, in)
	}
	return &models.RecurringTransaction{}, nil
}

func (m *mockRecurringService) DeleteRecurring(userID, recurringID string) error {
	if m.deleteRecurringFn != nil {
		return m.deleteRecurringFn(userID, recurringID)
	}
	return nil
}

func (m *mockRecurringService) AdvanceRecurring(ctx context.Context, userID, recurringID string) (*services.AdvanceResult, error) {
	if m.advanceRecurringFn != nil {
		return m.advanceRecurringFn(ctx, userID, recurringID)
	}
	return &services.AdvanceResult{}, nil
}

func (m *mockRecurringService) ProcessDue(ctx context.Context, userID string, today time.Time) (*services.ProcessResult, error) {
	if m.processDueFn != nil {
		return m.processDueFn(ctx, userID, today)
	}
	return &services.ProcessResult{}, nil
}

func (m *mockRecurringService) ProcessAllDue(ctx context.Context, today time.Time) (*services.ProcessResult, error) {
	if m.processAllDueFn != nil {
		return m.processAllDueFn(ctx, today)
	}
	return &services.ProcessResult{}, nil
}

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/recurring", handler.CreateRecurring)
	auth.GET("/recurring", handler.GetRecurring)
	auth.POST("/recurring/process", handler.ProcessRecurring)
	auth.GET("/recurring/:id", handler.GetRecurringByID)
	auth.PUT("/recurring/:id", handler.UpdateRecurring)
	auth.DELETE("/recurring/:id", handler.DeleteRecurring)
	auth.POST("/recurring/:id/advance", handler.AdvanceRecurring)
	auth.POST("/recurring/:id/reminder", handler.CreateReminder)
	return r
}

func TestRecurringHandler_CreateRecurring(t *testing.T) {
	t.Run("returns 201 with parsed dates", func(t *testing.T) {
		var captured services.RecurringInput
		recSvc := &mockRecurringService{
			createRecurringFn: func(_ string, in services.RecurringInput) (*models.RecurringTransaction, error) {
				captured = in
				return &models.RecurringTransaction{
					Base:        models.Base{ID: testRecurringID},
					Frequency:   in.Frequency,
					Amount:      in.Amount,
					NextDueDate: in.StartDate,
					IsActive:    true,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, audit))

		rec := doRequest(r, "POST", "/recurring",
			`{"categoryId":"`+testCategoryID+`","type":"expense","amount":"1200","frequency":"monthly","startDate":"2024-01-31","endDate":"2024-12-31"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.StartDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2024-01-31, got %s", captured.StartDate)
		}
		if captured.EndDate == nil || captured.EndDate.Month() != time.December {
			t.Errorf("expected end date in December, got %v", captured.EndDate)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_RECURRING" {
			t.Errorf("expected CREATE_RECURRING audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 400 on unknown frequency", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"categoryId":"`+testCategoryID+`","type":"expense","amount":"10","frequency":"hourly","startDate":"2024-01-01"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 without start date", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring",
			`{"categoryId":"`+testCategoryID+`","type":"expense","amount":"10","frequency":"weekly"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_GetRecurring(t *testing.T) {
	t.Run("passes isActive filter", func(t *testing.T) {
		var captured *bool
		recSvc := &mockRecurringService{
			getUserRecurringFn: func(_ string, _ pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.RecurringTransaction], error) {
				captured = isActive
				resp := pagination.NewPageResponse([]models.RecurringTransaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/recurring?isActive=false", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured == nil || *captured {
			t.Errorf("expected isActive=false, got %v", captured)
		}
	})

	t.Run("returns 400 on bad isActive", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/recurring?isActive=maybe", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_UpdateRecurring(t *testing.T) {
	t.Run("pauses a template", func(t *testing.T) {
		var captured services.RecurringUpdate
		recSvc := &mockRecurringService{
			updateRecurringFn: func(_, id string, in services.RecurringUpdate) (*models.RecurringTransaction, error) {
				captured = in
				return &models.RecurringTransaction{Base: models.Base{ID: id}, IsActive: *in.IsActive}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/recurring/"+testRecurringID, `{"isActive":false}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.IsActive == nil || *captured.IsActive {
			t.Errorf("expected isActive=false, got %v", captured.IsActive)
		}
		if captured.Amount != nil || captured.Frequency != nil {
			t.Errorf("expected untouched fields to stay nil, got %+v", captured)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		recSvc := &mockRecurringService{
			updateRecurringFn: func(_, _ string, _ services.RecurringUpdate) (*models.RecurringTransaction, error) {
				return nil, apperrors.ErrRecurringNotFound
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/recurring/"+testRecurringID, `{"description":"rent"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECURRING_NOT_FOUND")
	})
}

func TestRecurringHandler_AdvanceRecurring(t *testing.T) {
	t.Run("returns the created transaction", func(t *testing.T) {
		recSvc := &mockRecurringService{
			advanceRecurringFn: func(_ context.Context, _, id string) (*services.AdvanceResult, error) {
				return &services.AdvanceResult{
					Transaction: &models.Transaction{Base: models.Base{ID: testTransactionID}, Amount: decimal.NewFromInt(1200)},
					Recurring:   &models.RecurringTransaction{Base: models.Base{ID: id}, IsActive: true},
				}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring/"+testRecurringID+"/advance", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		tx := result["transaction"].(map[string]interface{})
		if tx["id"] != testTransactionID {
			t.Errorf("expected transaction %s, got %v", testTransactionID, tx["id"])
		}
	})

	t.Run("returns 400 when inactive", func(t *testing.T) {
		recSvc := &mockRecurringService{
			advanceRecurringFn: func(_ context.Context, _, _ string) (*services.AdvanceResult, error) {
				return nil, apperrors.ErrRecurringInactive
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring/"+testRecurringID+"/advance", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECURRING_INACTIVE")
	})
}

func TestRecurringHandler_ProcessRecurring(t *testing.T) {
	t.Run("processes the caller's templates only", func(t *testing.T) {
		var capturedUser string
		var capturedToday time.Time
		recSvc := &mockRecurringService{
			processDueFn: func(_ context.Context, userID string, today time.Time) (*services.ProcessResult, error) {
				capturedUser = userID
				capturedToday = today
				return &services.ProcessResult{TemplatesProcessed: 2, TransactionsCreated: 5}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(recSvc, &mockReminderService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring/process", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedUser != testUserID {
			t.Errorf("expected user %s, got %s", testUserID, capturedUser)
		}
		if !capturedToday.IsZero() {
			t.Errorf("expected zero today, got %s", capturedToday)
		}
		result := parseJSON(t, rec)["result"].(map[string]interface{})
		if result["transactionsCreated"].(float64) != 5 {
			t.Errorf("expected 5 created, got %v", result["transactionsCreated"])
		}
	})
}

func TestRecurringHandler_CreateReminder(t *testing.T) {
	t.Run("creates a reminder with optional lead time", func(t *testing.T) {
		var capturedNotify *int
		remSvc := &mockReminderService{
			createReminderFromRecurringFn: func(_, recurringID string, notifyBefore *int) (*services.ReminderView, error) {
				capturedNotify = notifyBefore
				rid := recurringID
				return &services.ReminderView{Reminder: models.Reminder{Base: models.Base{ID: testReminderID}, RecurringID: &rid}}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, remSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring/"+testRecurringID+"/reminder", `{"notifyBefore":5}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedNotify == nil || *capturedNotify != 5 {
			t.Errorf("expected notifyBefore 5, got %v", capturedNotify)
		}
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		var capturedNotify = new(int)
		remSvc := &mockReminderService{
			createReminderFromRecurringFn: func(_, _ string, notifyBefore *int) (*services.ReminderView, error) {
				capturedNotify = notifyBefore
				return &services.ReminderView{Reminder: models.Reminder{Base: models.Base{ID: testReminderID}}}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, remSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring/"+testRecurringID+"/reminder", "")

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedNotify != nil {
			t.Errorf("expected nil notifyBefore, got %d", *capturedNotify)
		}
	})
}
