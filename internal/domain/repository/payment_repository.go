package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
)

// CompletePayment carries the gateway result applied when a payment is
// finalized.
type CompletePayment struct {
	PaymentID        int64
	GatewayPaymentID string
	Signature        string
	InvoiceNumber    string
	CompletedAt      time.Time
	Payload          map[string]interface{}
	FromWebhook      bool
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id int64) (*entity.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error)

	// AttachOrder assigns the gateway order id exactly once. Re-attaching the
	// same id is a no-op; a different id is an inconsistent retry and fails.
	AttachOrder(ctx context.Context, paymentID int64, orderID string) error

	// MarkCompleted performs the pending→completed transition as a conditional
	// update keyed on the current status. It returns false when the payment was
	// no longer pending, which is how a losing concurrent caller learns to take
	// the idempotent-replay path.
	MarkCompleted(ctx context.Context, params CompletePayment) (bool, error)

	// MarkFailed is a no-op once the payment is completed: completion wins over
	// a late failure signal.
	MarkFailed(ctx context.Context, paymentID int64, reason string) error

	MarkWebhookReceived(ctx context.Context, paymentID int64, payload map[string]interface{}) error

	// FinalizeExclusive serializes finalization of one payment. It locks the
	// payment row, passes the current row to fn, and links the subscription id
	// fn returns inside the same transaction that holds the lock. A concurrent
	// finalizer blocks on the lock and then observes the link, so the lifecycle
	// transition for one payment can never run twice. fn returning 0 links
	// nothing.
	FinalizeExclusive(ctx context.Context, paymentID int64, fn func(ctx context.Context, payment *entity.Payment) (int64, error)) error
}
