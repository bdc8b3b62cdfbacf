package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// PaymentService owns the payment ledger: creating pending payments, ordering
// with the gateway and thin reads. Finalization belongs to the
// ReconciliationService.
type PaymentService struct {
	paymentRepo      repository.PaymentRepository
	subscriptionRepo repository.SubscriptionRepository
	planRepo         repository.PlanRepository
	gateway          provider.Gateway
	logger           *zap.Logger
	now              func() time.Time
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	subscriptionRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	gateway provider.Gateway,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:      paymentRepo,
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		gateway:          gateway,
		logger:           logger,
		now:              time.Now,
	}
}

// CreateOrder validates the request, records a pending payment with the
// plan's authoritative amount and creates the gateway order. The client-side
// amount is never trusted; it is not even accepted as input.
func (s *PaymentService) CreateOrder(ctx context.Context, userID uuid.UUID, planID int64, action entity.PaymentAction, targetSubID *int64) (*entity.Payment, *provider.Order, error) {
	if !entity.ValidAction(action) {
		return nil, nil, domainErrors.Validation(fmt.Sprintf("invalid action: %s", action))
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil || !plan.Active {
		return nil, nil, domainErrors.Validation(fmt.Sprintf("unknown plan: %d", planID))
	}

	if action == entity.ActionRenew || action == entity.ActionUpgrade {
		if targetSubID == nil {
			return nil, nil, domainErrors.Validation("subscription_id is required for renew and upgrade")
		}
		target, err := s.subscriptionRepo.GetByID(ctx, *targetSubID)
		if err != nil {
			return nil, nil, err
		}
		if target == nil {
			return nil, nil, domainErrors.NotFound(fmt.Sprintf("subscription not found: %d", *targetSubID))
		}
		if target.UserID != userID {
			return nil, nil, domainErrors.Conflict("subscription does not belong to the caller")
		}
		if action == entity.ActionUpgrade {
			if target.PlanID == planID {
				return nil, nil, domainErrors.Conflict("subscription is already on the requested plan")
			}
			currentPlan, err := s.planRepo.GetByID(ctx, target.PlanID)
			if err != nil {
				return nil, nil, err
			}
			if !currentPlan.CanUpgradeTo(plan) {
				return nil, nil, domainErrors.Conflict("upgrade must move to a higher tier plan")
			}
		}
	}

	payment := &entity.Payment{
		UserID:         userID,
		PlanID:         plan.ID,
		SubscriptionID: targetSubID,
		Action:         action,
		AmountCents:    plan.AmountCents,
		Currency:       plan.Currency,
		Receipt:        newReceipt(),
		Status:         entity.PaymentStatusPending,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, payment.AmountCents, payment.Currency, payment.Receipt)
	if err != nil {
		s.logger.Error("Gateway order creation failed",
			zap.Int64("payment_id", payment.ID),
			zap.Error(err))
		if failErr := s.paymentRepo.MarkFailed(ctx, payment.ID, err.Error()); failErr != nil {
			s.logger.Error("Failed to mark payment failed after gateway error",
				zap.Int64("payment_id", payment.ID),
				zap.Error(failErr))
		}
		return nil, nil, domainErrors.Gateway("gateway order creation failed", err)
	}

	if err := s.paymentRepo.AttachOrder(ctx, payment.ID, order.ID); err != nil {
		return nil, nil, err
	}
	payment.GatewayOrderID = &order.ID

	s.logger.Info("Payment order created",
		zap.Int64("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("action", string(action)),
		zap.Int("amount_cents", payment.AmountCents))

	return payment, order, nil
}

// GetPayment returns the payment if it belongs to the caller.
func (s *PaymentService) GetPayment(ctx context.Context, userID uuid.UUID, paymentID int64) (*entity.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.UserID != userID {
		return nil, domainErrors.NotFound(fmt.Sprintf("payment not found: %d", paymentID))
	}
	return payment, nil
}

func (s *PaymentService) GetUserPayments(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	if limit < 1 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}
	return s.paymentRepo.ListByUser(ctx, userID, limit)
}

// newReceipt generates a unique receipt token, short enough for the
// gateway's 40-character receipt limit.
func newReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// newInvoiceNumber derives the invoice number from the completion time plus a
// random suffix.
func newInvoiceNumber(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(suffix))
}
