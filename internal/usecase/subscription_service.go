package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// SubscriptionService owns subscription state transitions. ApplyPayment is
// the entry the reconciliation engine dispatches to; the remaining methods
// are thin reads and writes used by the HTTP surface.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	planRepo         repository.PlanRepository
	logger           *zap.Logger
	now              func() time.Time
}

func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// ApplyPayment applies the subscription transition a completed payment calls
// for. The caller guarantees the payment is completed and not yet linked.
func (s *SubscriptionService) ApplyPayment(ctx context.Context, payment *entity.Payment) (*entity.Subscription, error) {
	plan, err := s.planRepo.GetByID(ctx, payment.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domainErrors.Validation(fmt.Sprintf("unknown plan: %d", payment.PlanID))
	}

	switch payment.Action {
	case entity.ActionPurchase:
		return s.activate(ctx, payment, plan)
	case entity.ActionRenew:
		return s.renew(ctx, payment, plan)
	case entity.ActionUpgrade:
		return s.upgrade(ctx, payment, plan)
	default:
		return nil, domainErrors.Validation(fmt.Sprintf("invalid action: %s", payment.Action))
	}
}

func (s *SubscriptionService) activate(ctx context.Context, payment *entity.Payment, plan *entity.Plan) (*entity.Subscription, error) {
	now := s.now()
	sub := &entity.Subscription{
		UserID:    payment.UserID,
		PlanID:    plan.ID,
		Status:    entity.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		PaymentID: &payment.ID,
	}
	entry := &entity.BillingEntry{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Kind:        entity.BillingKindActivation,
		Outcome:     "success",
		BilledAt:    now,
	}
	return s.subscriptionRepo.Activate(ctx, sub, entry)
}

func (s *SubscriptionService) renew(ctx context.Context, payment *entity.Payment, plan *entity.Plan) (*entity.Subscription, error) {
	if payment.SubscriptionID == nil {
		return nil, domainErrors.Validation("renew payment has no target subscription")
	}

	now := s.now()
	entry := &entity.BillingEntry{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Kind:        entity.BillingKindRenewal,
		Outcome:     "success",
		BilledAt:    now,
	}
	return s.subscriptionRepo.Renew(ctx, *payment.SubscriptionID, plan.DurationDays, plan.RenewalCapPerMonth, entry, now)
}

func (s *SubscriptionService) upgrade(ctx context.Context, payment *entity.Payment, plan *entity.Plan) (*entity.Subscription, error) {
	if payment.SubscriptionID == nil {
		return nil, domainErrors.Validation("upgrade payment has no target subscription")
	}

	old, err := s.subscriptionRepo.GetByID(ctx, *payment.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", *payment.SubscriptionID))
	}
	if old.UserID != payment.UserID {
		return nil, domainErrors.Conflict("subscription does not belong to the payment's user")
	}

	currentPlan, err := s.planRepo.GetByID(ctx, old.PlanID)
	if err != nil {
		return nil, err
	}
	if !currentPlan.CanUpgradeTo(plan) {
		return nil, domainErrors.Conflict("upgrade must move to a higher tier plan")
	}

	now := s.now()
	newSub := &entity.Subscription{
		UserID:    payment.UserID,
		PlanID:    plan.ID,
		Status:    entity.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, plan.DurationDays),
		PaymentID: &payment.ID,
	}
	entry := &entity.BillingEntry{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Kind:        entity.BillingKindUpgrade,
		Outcome:     "success",
		BilledAt:    now,
	}
	return s.subscriptionRepo.Upgrade(ctx, old.ID, newSub, entry)
}

// GetSubscription returns the subscription when it belongs to the caller.
func (s *SubscriptionService) GetSubscription(ctx context.Context, userID uuid.UUID, subID int64) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.UserID != userID {
		return nil, domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", subID))
	}
	return sub, nil
}

func (s *SubscriptionService) GetUserSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	return s.subscriptionRepo.ListByUser(ctx, userID)
}

// ListByStatus is the admin listing; an empty status lists everything.
func (s *SubscriptionService) ListByStatus(ctx context.Context, status entity.SubscriptionStatus) ([]*entity.Subscription, error) {
	return s.subscriptionRepo.ListByStatus(ctx, status)
}

// Cancel cancels the caller's subscription. Admins may cancel any
// subscription. Cancelling twice succeeds without effect.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID, subID int64, reason string, admin bool) error {
	sub, err := s.subscriptionRepo.GetByID(ctx, subID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", subID))
	}
	if !admin && sub.UserID != userID {
		return domainErrors.Conflict("subscription does not belong to the caller")
	}
	if reason == "" {
		reason = "cancelled by user"
	}
	return s.subscriptionRepo.Cancel(ctx, subID, reason, s.now())
}

// ExpireDue runs one expiry sweep and returns the number of subscriptions
// transitioned to expired.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int64, error) {
	expired, err := s.subscriptionRepo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("Expired due subscriptions", zap.Int64("count", expired))
	}
	return expired, nil
}
