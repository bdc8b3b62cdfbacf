package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PlanRepository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*entity.Plan, error) {
	var m model.Plan

	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get plan by ID",
			zap.Int64("plan_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return planToEntity(&m), nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*entity.Plan, error) {
	var m model.Plan

	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get plan by name",
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return planToEntity(&m), nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	var ms []model.Plan

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("tier_priority ASC").
		Find(&ms).Error
	if err != nil {
		r.logger.Error("Failed to list active plans", zap.Error(err))
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]*entity.Plan, len(ms))
	for i := range ms {
		plans[i] = planToEntity(&ms[i])
	}
	return plans, nil
}

// planToEntity converts database model to domain entity
func planToEntity(m *model.Plan) *entity.Plan {
	if m == nil {
		return nil
	}
	return &entity.Plan{
		ID:                 m.ID,
		Name:               m.Name,
		DisplayPrice:       m.DisplayPrice,
		AmountCents:        m.AmountCents,
		Currency:           m.Currency,
		DurationDays:       m.DurationDays,
		TierPriority:       m.TierPriority,
		RenewalCapPerMonth: m.RenewalCapPerMonth,
		AllowDowngrade:     m.AllowDowngrade,
		Active:             m.Active,
	}
}
