package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	m := paymentToModel(payment)

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("user_id", payment.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	payment.ID = m.ID
	payment.CreatedAt = m.CreatedAt
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	var m model.Payment

	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment by ID",
			zap.Int64("payment_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return paymentToEntity(&m), nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	var m model.Payment

	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", orderID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment by order ID",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return paymentToEntity(&m), nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	var ms []model.Payment

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		r.logger.Error("Failed to list payments",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*entity.Payment, len(ms))
	for i := range ms {
		payments[i] = paymentToEntity(&ms[i])
	}
	return payments, nil
}

// AttachOrder assigns the gateway order id exactly once. A retry carrying the
// same order id succeeds; a different id signals an inconsistent retry.
func (r *paymentRepository) AttachOrder(ctx context.Context, paymentID int64, orderID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND gateway_order_id IS NULL", paymentID).
		Update("gateway_order_id", orderID)
	if res.Error != nil {
		r.logger.Error("Failed to attach order to payment",
			zap.Int64("payment_id", paymentID),
			zap.String("order_id", orderID),
			zap.Error(res.Error))
		return fmt.Errorf("failed to attach order: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := r.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("payment not found: %d", paymentID)
		}
		if existing.GatewayOrderID != nil && *existing.GatewayOrderID == orderID {
			return nil
		}
		return fmt.Errorf("payment %d already attached to a different order", paymentID)
	}

	return nil
}

// MarkCompleted is the single synchronization point between the direct-verify
// and webhook paths: the update predicate requires status='pending', so
// exactly one concurrent caller observes RowsAffected == 1.
func (r *paymentRepository) MarkCompleted(ctx context.Context, params domainRepo.CompletePayment) (bool, error) {
	updates := map[string]interface{}{
		"status":             model.PaymentStatusCompleted,
		"gateway_payment_id": params.GatewayPaymentID,
		"gateway_signature":  params.Signature,
		"invoice_number":     params.InvoiceNumber,
		"completed_at":       params.CompletedAt,
		"updated_at":         params.CompletedAt,
	}
	if params.Payload != nil {
		updates["gateway_payload"] = model.JSONB(params.Payload)
	}
	if params.FromWebhook {
		updates["webhook_received"] = true
	}

	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", params.PaymentID, model.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		r.logger.Error("Failed to complete payment",
			zap.Int64("payment_id", params.PaymentID),
			zap.Error(res.Error))
		return false, fmt.Errorf("failed to complete payment: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// MarkFailed leaves completed payments untouched: completion wins over a late
// failure signal.
func (r *paymentRepository) MarkFailed(ctx context.Context, paymentID int64, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status <> ?", paymentID, model.PaymentStatusCompleted).
		Updates(map[string]interface{}{
			"status":          model.PaymentStatusFailed,
			"failure_message": reason,
		})
	if res.Error != nil {
		r.logger.Error("Failed to mark payment as failed",
			zap.Int64("payment_id", paymentID),
			zap.Error(res.Error))
		return fmt.Errorf("failed to mark payment as failed: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		r.logger.Info("Skipping failure mark, payment already completed",
			zap.Int64("payment_id", paymentID))
	}
	return nil
}

func (r *paymentRepository) MarkWebhookReceived(ctx context.Context, paymentID int64, payload map[string]interface{}) error {
	updates := map[string]interface{}{"webhook_received": true}
	if payload != nil {
		updates["gateway_payload"] = model.JSONB(payload)
	}

	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to mark webhook received",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
		return fmt.Errorf("failed to mark webhook received: %w", err)
	}
	return nil
}

// FinalizeExclusive holds a FOR UPDATE lock on the payment row across the
// lifecycle dispatch and the link write. The link predicate re-checks
// result_subscription_id IS NULL under the lock, so between two concurrent
// finalizers exactly one dispatches; the other sees the committed link once
// the lock is released.
func (r *paymentRepository) FinalizeExclusive(ctx context.Context, paymentID int64, fn func(ctx context.Context, payment *entity.Payment) (int64, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m, paymentID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("payment not found: %d", paymentID)
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		subscriptionID, err := fn(ctx, paymentToEntity(&m))
		if err != nil {
			return err
		}
		if subscriptionID == 0 {
			return nil
		}

		res := tx.Model(&model.Payment{}).
			Where("id = ? AND result_subscription_id IS NULL", paymentID).
			Update("result_subscription_id", subscriptionID)
		if res.Error != nil {
			r.logger.Error("Failed to link subscription to payment",
				zap.Int64("payment_id", paymentID),
				zap.Int64("subscription_id", subscriptionID),
				zap.Error(res.Error))
			return fmt.Errorf("failed to link subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("payment %d is already linked", paymentID)
		}
		return nil
	})
}

// paymentToEntity converts database model to domain entity
func paymentToEntity(m *model.Payment) *entity.Payment {
	if m == nil {
		return nil
	}
	return &entity.Payment{
		ID:                   m.ID,
		UserID:               m.UserID,
		PlanID:               m.PlanID,
		SubscriptionID:       m.SubscriptionID,
		ResultSubscriptionID: m.ResultSubscriptionID,
		Action:               entity.PaymentAction(m.Action),
		AmountCents:          m.AmountCents,
		Currency:             m.Currency,
		Receipt:              m.Receipt,
		GatewayOrderID:       m.GatewayOrderID,
		GatewayPaymentID:     m.GatewayPaymentID,
		GatewaySignature:     m.GatewaySignature,
		Status:               entity.PaymentStatus(m.Status),
		InvoiceNumber:        m.InvoiceNumber,
		CompletedAt:          m.CompletedAt,
		FailureMessage:       m.FailureMessage,
		WebhookReceived:      m.WebhookReceived,
		GatewayPayload:       m.GatewayPayload,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// paymentToModel converts domain entity to database model
func paymentToModel(e *entity.Payment) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:                   e.ID,
		UserID:               e.UserID,
		PlanID:               e.PlanID,
		SubscriptionID:       e.SubscriptionID,
		ResultSubscriptionID: e.ResultSubscriptionID,
		Action:               string(e.Action),
		AmountCents:          e.AmountCents,
		Currency:             e.Currency,
		Receipt:              e.Receipt,
		GatewayOrderID:       e.GatewayOrderID,
		GatewayPaymentID:     e.GatewayPaymentID,
		GatewaySignature:     e.GatewaySignature,
		Status:               model.PaymentStatus(e.Status),
		InvoiceNumber:        e.InvoiceNumber,
		CompletedAt:          e.CompletedAt,
		FailureMessage:       e.FailureMessage,
		WebhookReceived:      e.WebhookReceived,
		GatewayPayload:       model.JSONB(e.GatewayPayload),
	}
}
