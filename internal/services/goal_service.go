package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/finance"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// goalService handles savings goals.
type goalService struct {
	db *gorm.DB
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB) GoalServicer {
	return &goalService{db: db}
}

// CreateGoal creates an empty savings goal.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*models.Goal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}

	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		settings, err := ensureSettings(s.db, userID)
		if err != nil {
			return nil, err
		}
		currency = settings.DefaultCurrency
	} else {
		var err error
		if currency, err = normalizeCurrency(currency); err != nil {
			return nil, err
		}
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		Currency:      currency,
		TargetDate:    dateOrNil(in.TargetDate),
		Icon:          in.Icon,
		Color:         in.Color,
	}
	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals lists the owner's goals, optionally by completion.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest, isCompleted *bool) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	base := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)
	if isCompleted != nil {
		base = base.Where("is_completed = ?", *isCompleted)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.Goal
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID retrieves a goal by ID for a specific user
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	return findGoal(s.db, userID, goalID)
}

func findGoal(db *gorm.DB, userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields of in. Changing the target
// re-evaluates completion.
func (s *goalService) UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error) {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
		}
		updates["name"] = name
	}
	if in.TargetAmount != nil {
		if !in.TargetAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		updates["target_amount"] = *in.TargetAmount
		updates["is_completed"] = !goal.CurrentAmount.LessThan(*in.TargetAmount)
	}
	if in.TargetDate != nil {
		updates["target_date"] = finance.DateOf(*in.TargetDate)
	}
	if in.Icon != nil {
		updates["icon"] = *in.Icon
	}
	if in.Color != nil {
		updates["color"] = *in.Color
	}

	if len(updates) > 0 {
		if err := s.db.Model(goal).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return s.GetGoalByID(userID, goalID)
}

// DeleteGoal soft-deletes a goal.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Contribute adds amount to the goal and completes it once the target is
// reached.
func (s *goalService) Contribute(userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "contribution must be greater than zero")
	}

	var goal *models.Goal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = findGoal(tx, userID, goalID); err != nil {
			return err
		}
		if goal.IsCompleted {
			return apperrors.ErrGoalCompleted
		}
		current := goal.CurrentAmount.Add(amount)
		completed := !current.LessThan(goal.TargetAmount)
		if err := tx.Model(goal).Updates(map[string]interface{}{
			"current_amount": current,
			"is_completed":   completed,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		goal.CurrentAmount = current
		goal.IsCompleted = completed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}
