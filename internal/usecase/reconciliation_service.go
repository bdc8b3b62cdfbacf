package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"github.com/wekeepgrowing/subscription-billing/internal/notification"
	"go.uber.org/zap"
)

// Gateway webhook event types of interest.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
)

// GatewayEvent is a parsed webhook event. Signature verification over the raw
// body happens in the transport layer before the event reaches the engine.
type GatewayEvent struct {
	Type             string
	OrderID          string
	GatewayPaymentID string
	FailureReason    string
	Payload          map[string]interface{}
}

// SubscriptionApplier applies the lifecycle transition a completed payment
// calls for.
type SubscriptionApplier interface {
	ApplyPayment(ctx context.Context, payment *entity.Payment) (*entity.Subscription, error)
}

// ReconciliationService turns verified gateway payment events into durable
// subscription state exactly once. Both the direct-verify path and the
// webhook path run through it, so one code path enforces all business rules
// regardless of which transport observed the event first.
type ReconciliationService struct {
	paymentRepo      repository.PaymentRepository
	subscriptionRepo repository.SubscriptionRepository
	subscriptions    SubscriptionApplier
	verifier         provider.SignatureVerifier
	notifier         notification.Notifier
	logger           *zap.Logger
	now              func() time.Time
}

func NewReconciliationService(
	paymentRepo repository.PaymentRepository,
	subscriptionRepo repository.SubscriptionRepository,
	subscriptions SubscriptionApplier,
	verifier provider.SignatureVerifier,
	notifier notification.Notifier,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		paymentRepo:      paymentRepo,
		subscriptionRepo: subscriptionRepo,
		subscriptions:    subscriptions,
		verifier:         verifier,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

// VerifyPayment is the direct-verify entry: the paying client reports the
// gateway result. The pending→completed transition is a conditional update,
// so when the webhook races this call exactly one of them finalizes the
// payment; the loser observes the already-completed state and short-circuits
// to the idempotent-replay path.
func (s *ReconciliationService) VerifyPayment(ctx context.Context, userID uuid.UUID, orderID, gatewayPaymentID, signature string) (*entity.Subscription, error) {
	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.NotFound(fmt.Sprintf("no payment for order: %s", orderID))
	}
	if payment.UserID != userID {
		return nil, domainErrors.NotFound(fmt.Sprintf("no payment for order: %s", orderID))
	}

	ok, err := s.verifier.VerifyPayment(orderID, gatewayPaymentID, signature)
	if err != nil {
		return nil, domainErrors.Internal("signature verification unavailable", err)
	}
	if !ok {
		if failErr := s.paymentRepo.MarkFailed(ctx, payment.ID, "signature verification failed"); failErr != nil {
			s.logger.Error("Failed to mark payment failed after bad signature",
				zap.Int64("payment_id", payment.ID),
				zap.Error(failErr))
		}
		return nil, domainErrors.Signature("payment signature verification failed")
	}

	// A replay is only served once the caller proved it holds a valid
	// signature for this order.
	if payment.Linked() {
		return s.linkedSubscription(ctx, payment)
	}

	now := s.now()
	won, err := s.paymentRepo.MarkCompleted(ctx, repository.CompletePayment{
		PaymentID:        payment.ID,
		GatewayPaymentID: gatewayPaymentID,
		Signature:        signature,
		InvoiceNumber:    newInvoiceNumber(now),
		CompletedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	// Reload regardless of who won: the completed row carries the invoice
	// number and timestamps, and a losing caller needs the current link state.
	payment, err = s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.Internal("payment disappeared during reconciliation", nil)
	}

	if !won {
		if payment.Linked() {
			return s.linkedSubscription(ctx, payment)
		}
		if payment.Status != entity.PaymentStatusCompleted {
			return nil, domainErrors.Conflict(fmt.Sprintf("payment is %s, not completed", payment.Status))
		}
		// Completed by the webhook but not yet linked: fall through and run
		// the lifecycle dispatch here.
		s.logger.Info("Completing subscription for webhook-finalized payment",
			zap.Int64("payment_id", payment.ID))
	}

	return s.finalize(ctx, payment)
}

// ActivateCompleted is the alternate entry for a payment the webhook already
// finalized: it runs the lifecycle dispatch and linking for an
// already-completed, not-yet-linked payment.
func (s *ReconciliationService) ActivateCompleted(ctx context.Context, userID uuid.UUID, paymentID, planID int64) (*entity.Subscription, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.UserID != userID {
		return nil, domainErrors.NotFound(fmt.Sprintf("payment not found: %d", paymentID))
	}
	if payment.PlanID != planID {
		return nil, domainErrors.Validation("payment was made for a different plan")
	}

	if payment.Linked() {
		return s.linkedSubscription(ctx, payment)
	}
	if payment.Status != entity.PaymentStatusCompleted {
		return nil, domainErrors.Conflict(fmt.Sprintf("payment is %s, not completed", payment.Status))
	}

	return s.finalize(ctx, payment)
}

// HandleGatewayEvent processes a webhook event. Completion here is
// bookkeeping only: the subscription is created by the client's subsequent
// verify or activate call. Unknown orders are logged and acknowledged so the
// gateway is not induced to retry indefinitely.
func (s *ReconciliationService) HandleGatewayEvent(ctx context.Context, event GatewayEvent) error {
	payment, err := s.paymentRepo.GetByOrderID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	if payment == nil {
		s.logger.Warn("Webhook event for unknown order",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID))
		return nil
	}

	switch event.Type {
	case EventPaymentCaptured, EventPaymentAuthorized:
		if payment.Status == entity.PaymentStatusCompleted {
			s.logger.Info("Webhook for already-completed payment",
				zap.Int64("payment_id", payment.ID),
				zap.String("order_id", event.OrderID))
			return s.paymentRepo.MarkWebhookReceived(ctx, payment.ID, event.Payload)
		}

		now := s.now()
		won, err := s.paymentRepo.MarkCompleted(ctx, repository.CompletePayment{
			PaymentID:        payment.ID,
			GatewayPaymentID: event.GatewayPaymentID,
			InvoiceNumber:    newInvoiceNumber(now),
			CompletedAt:      now,
			Payload:          event.Payload,
			FromWebhook:      true,
		})
		if err != nil {
			return err
		}
		if !won {
			// Lost the race against a concurrent verify call; record the
			// webhook delivery on the already-final row.
			return s.paymentRepo.MarkWebhookReceived(ctx, payment.ID, event.Payload)
		}

		s.logger.Info("Payment completed via webhook",
			zap.Int64("payment_id", payment.ID),
			zap.String("order_id", event.OrderID),
			zap.String("gateway_payment_id", event.GatewayPaymentID))
		return nil

	case EventPaymentFailed:
		reason := event.FailureReason
		if reason == "" {
			reason = "payment failed at gateway"
		}
		if err := s.paymentRepo.MarkFailed(ctx, payment.ID, reason); err != nil {
			return err
		}
		return s.paymentRepo.MarkWebhookReceived(ctx, payment.ID, event.Payload)

	default:
		s.logger.Warn("Unhandled webhook event type",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID))
		return nil
	}
}

// finalize dispatches the lifecycle transition for a completed payment and
// links the resulting subscription back onto it. Dispatch and link run under
// the payment row lock, so two finalizers racing to this point cannot both
// apply the transition: the second one blocks, observes the link the first
// one wrote, and replays its subscription.
func (s *ReconciliationService) finalize(ctx context.Context, payment *entity.Payment) (*entity.Subscription, error) {
	var sub *entity.Subscription
	err := s.paymentRepo.FinalizeExclusive(ctx, payment.ID, func(ctx context.Context, current *entity.Payment) (int64, error) {
		if current.Linked() {
			return 0, nil
		}
		applied, err := s.subscriptions.ApplyPayment(ctx, current)
		if err != nil {
			return 0, err
		}
		sub = applied
		return applied.ID, nil
	})
	if err != nil {
		if sub != nil {
			s.logger.Error("Failed to link subscription to completed payment",
				zap.Int64("payment_id", payment.ID),
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err))
			return nil, domainErrors.Internal("payment completed but subscription linking failed", err)
		}
		s.logger.Error("Subscription transition failed for completed payment",
			zap.Int64("payment_id", payment.ID),
			zap.String("action", string(payment.Action)),
			zap.Error(err))
		return nil, err
	}

	if sub == nil {
		// Another finalizer linked the payment while we waited for the lock.
		current, err := s.paymentRepo.GetByID(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		if current == nil || !current.Linked() {
			return nil, domainErrors.Internal(
				fmt.Sprintf("payment %d finalized without a subscription link", payment.ID), nil)
		}
		return s.linkedSubscription(ctx, current)
	}

	s.logger.Info("Payment reconciled",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("subscription_id", sub.ID),
		zap.String("action", string(payment.Action)))

	s.notifyAsync(payment, sub)

	return sub, nil
}

func (s *ReconciliationService) linkedSubscription(ctx context.Context, payment *entity.Payment) (*entity.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByID(ctx, *payment.ResultSubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domainErrors.Internal(
			fmt.Sprintf("payment %d linked to missing subscription %d", payment.ID, *payment.ResultSubscriptionID), nil)
	}
	s.logger.Info("Idempotent replay for reconciled payment",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("subscription_id", sub.ID))
	return sub, nil
}

// notifyAsync hands the event off after the transactional core has
// committed. Delivery is best effort and never affects the reconciliation
// outcome.
func (s *ReconciliationService) notifyAsync(payment *entity.Payment, sub *entity.Subscription) {
	ev := notification.Event{
		PaymentID:      payment.ID,
		SubscriptionID: sub.ID,
		UserID:         payment.UserID.String(),
		Action:         string(payment.Action),
		AmountCents:    payment.AmountCents,
		OccurredAt:     s.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.notifier.PaymentReconciled(ctx, ev)
	}()
}
