package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*entity.Subscription, error) {
	var m model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("History").
		First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.Int64("subscription_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return subscriptionToEntity(&m), nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	var ms []model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions by user",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subscriptionsToEntities(ms), nil
}

func (r *subscriptionRepository) ListByStatus(ctx context.Context, status entity.SubscriptionStatus) ([]*entity.Subscription, error) {
	var ms []model.Subscription

	query := r.db.WithContext(ctx).Preload("Plan")
	if status != "" {
		query = query.Where("status = ?", model.SubscriptionStatus(status))
	}

	err := query.Order("created_at DESC").Find(&ms).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions by status",
			zap.String("status", string(status)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subscriptionsToEntities(ms), nil
}

// Activate creates the subscription and its first billing entry in one
// transaction. The duplicate-active check runs against the table at write
// time; the partial unique index on (user_id, plan_id) WHERE status='active'
// backstops the narrow race between the check and the insert.
func (r *subscriptionRepository) Activate(ctx context.Context, sub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error) {
	m := subscriptionToModel(sub)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Subscription{}).
			Where("user_id = ? AND plan_id = ? AND status = ?",
				sub.UserID, sub.PlanID, model.SubscriptionStatusActive).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check active subscriptions: %w", err)
		}
		if count > 0 {
			return domainErrors.Conflict("an active subscription already exists for this plan")
		}

		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		e := billingEntryToModel(entry)
		e.SubscriptionID = m.ID
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("failed to create billing entry: %w", err)
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to activate subscription",
			zap.String("user_id", sub.UserID.String()),
			zap.Int64("plan_id", sub.PlanID),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Subscription activated",
		zap.Int64("subscription_id", m.ID),
		zap.String("user_id", sub.UserID.String()),
		zap.Int64("plan_id", sub.PlanID))

	return r.GetByID(ctx, m.ID)
}

// Renew locks the subscription row, re-counts the monthly renewal cap and
// recomputes the new end date from the row's current values, all inside one
// transaction. A stale read can therefore never extend from an outdated end
// date or slip past the cap.
func (r *subscriptionRepository) Renew(ctx context.Context, subID int64, durationDays, capPerMonth int, entry *entity.BillingEntry, now time.Time) (*entity.Subscription, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, subID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", subID))
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		if capPerMonth > 0 {
			monthStart, monthEnd := entity.MonthWindow(now)
			var renewals int64
			err := tx.Model(&model.BillingEntry{}).
				Where("subscription_id = ? AND kind = ? AND billed_at >= ? AND billed_at < ?",
					subID, string(entity.BillingKindRenewal), monthStart, monthEnd).
				Count(&renewals).Error
			if err != nil {
				return fmt.Errorf("failed to count renewals: %w", err)
			}
			if renewals >= int64(capPerMonth) {
				return domainErrors.Conflict(
					fmt.Sprintf("renewal cap of %d per month reached for this subscription", capPerMonth))
			}
		}

		newEnd := entity.NextPeriodEnd(sub.EndDate, now, durationDays)

		err = tx.Model(&model.Subscription{}).
			Where("id = ?", subID).
			Updates(map[string]interface{}{
				"end_date": newEnd,
				"status":   model.SubscriptionStatusActive,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to extend subscription: %w", err)
		}

		e := billingEntryToModel(entry)
		e.SubscriptionID = subID
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("failed to create billing entry: %w", err)
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to renew subscription",
			zap.Int64("subscription_id", subID),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Subscription renewed",
		zap.Int64("subscription_id", subID),
		zap.Int("duration_days", durationDays))

	return r.GetByID(ctx, subID)
}

// Upgrade marks the superseded subscription expired, not cancelled: it was
// replaced, not voluntarily ended.
func (r *subscriptionRepository) Upgrade(ctx context.Context, oldSubID int64, newSub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error) {
	m := subscriptionToModel(newSub)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&old, oldSubID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", oldSubID))
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		err = tx.Model(&model.Subscription{}).
			Where("id = ?", oldSubID).
			Update("status", model.SubscriptionStatusExpired).Error
		if err != nil {
			return fmt.Errorf("failed to expire superseded subscription: %w", err)
		}

		// Same write-time re-check as Activate, so a duplicate active target
		// plan surfaces as a conflict rather than a unique-index violation.
		var count int64
		err = tx.Model(&model.Subscription{}).
			Where("user_id = ? AND plan_id = ? AND status = ?",
				newSub.UserID, newSub.PlanID, model.SubscriptionStatusActive).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check active subscriptions: %w", err)
		}
		if count > 0 {
			return domainErrors.Conflict("an active subscription already exists for this plan")
		}

		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("failed to create upgraded subscription: %w", err)
		}

		e := billingEntryToModel(entry)
		e.SubscriptionID = m.ID
		if err := tx.Create(e).Error; err != nil {
			return fmt.Errorf("failed to create billing entry: %w", err)
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to upgrade subscription",
			zap.Int64("old_subscription_id", oldSubID),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Subscription upgraded",
		zap.Int64("old_subscription_id", oldSubID),
		zap.Int64("new_subscription_id", m.ID))

	return r.GetByID(ctx, m.ID)
}

// Cancel is idempotent: a subscription that is already cancelled is left as
// is and the call succeeds.
func (r *subscriptionRepository) Cancel(ctx context.Context, subID int64, reason string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		err := tx.First(&sub, subID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", subID))
			}
			return fmt.Errorf("failed to get subscription: %w", err)
		}

		if sub.Status == model.SubscriptionStatusCancelled {
			r.logger.Info("Subscription already cancelled",
				zap.Int64("subscription_id", subID))
			return nil
		}

		err = tx.Model(&model.Subscription{}).
			Where("id = ?", subID).
			Updates(map[string]interface{}{
				"status":        model.SubscriptionStatusCancelled,
				"cancelled_at":  &now,
				"cancel_reason": reason,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}

		r.logger.Info("Subscription cancelled",
			zap.Int64("subscription_id", subID),
			zap.String("reason", reason))
		return nil
	})
}

// ExpireDue re-evaluates end_date < now inside the UPDATE itself, so a
// renewal committing between the sweeper's tick and this write keeps its
// freshly extended subscription active.
func (r *subscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("status = ? AND end_date < ?", model.SubscriptionStatusActive, now).
		Update("status", model.SubscriptionStatusExpired)
	if res.Error != nil {
		r.logger.Error("Failed to expire due subscriptions", zap.Error(res.Error))
		return 0, fmt.Errorf("failed to expire subscriptions: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// subscriptionToEntity converts database model to domain entity
func subscriptionToEntity(m *model.Subscription) *entity.Subscription {
	if m == nil {
		return nil
	}

	e := &entity.Subscription{
		ID:           m.ID,
		UserID:       m.UserID,
		PlanID:       m.PlanID,
		Status:       entity.SubscriptionStatus(m.Status),
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		PaymentID:    m.PaymentID,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.Plan != nil {
		e.Plan = planToEntity(m.Plan)
	}

	for i := range m.History {
		h := &m.History[i]
		e.History = append(e.History, entity.BillingEntry{
			ID:             h.ID,
			SubscriptionID: h.SubscriptionID,
			PaymentID:      h.PaymentID,
			AmountCents:    h.AmountCents,
			Kind:           entity.BillingKind(h.Kind),
			Outcome:        h.Outcome,
			BilledAt:       h.BilledAt,
		})
	}

	return e
}

func subscriptionsToEntities(ms []model.Subscription) []*entity.Subscription {
	entities := make([]*entity.Subscription, len(ms))
	for i := range ms {
		entities[i] = subscriptionToEntity(&ms[i])
	}
	return entities
}

// subscriptionToModel converts domain entity to database model
func subscriptionToModel(e *entity.Subscription) *model.Subscription {
	if e == nil {
		return nil
	}
	return &model.Subscription{
		ID:           e.ID,
		UserID:       e.UserID,
		PlanID:       e.PlanID,
		Status:       model.SubscriptionStatus(e.Status),
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		PaymentID:    e.PaymentID,
		CancelledAt:  e.CancelledAt,
		CancelReason: e.CancelReason,
	}
}

func billingEntryToModel(e *entity.BillingEntry) *model.BillingEntry {
	return &model.BillingEntry{
		SubscriptionID: e.SubscriptionID,
		PaymentID:      e.PaymentID,
		AmountCents:    e.AmountCents,
		Kind:           string(e.Kind),
		Outcome:        e.Outcome,
		BilledAt:       e.BilledAt,
	}
}
