package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentAction determines which subscription transition a completed payment
// triggers.
type PaymentAction string

const (
	ActionPurchase PaymentAction = "purchase"
	ActionRenew    PaymentAction = "renew"
	ActionUpgrade  PaymentAction = "upgrade"
)

// ValidAction reports whether a is one of the supported payment actions.
func ValidAction(a PaymentAction) bool {
	switch a {
	case ActionPurchase, ActionRenew, ActionUpgrade:
		return true
	}
	return false
}

// Payment is one attempt to pay for one (plan, action) pair. A payment
// transitions status monotonically forward; once completed it is immutable
// except for bookkeeping fields.
type Payment struct {
	ID                   int64                  `json:"id"`
	UserID               uuid.UUID              `json:"user_id"`
	PlanID               int64                  `json:"plan_id"`
	SubscriptionID       *int64                 `json:"subscription_id,omitempty"`
	ResultSubscriptionID *int64                 `json:"result_subscription_id,omitempty"`
	Action               PaymentAction          `json:"action"`
	AmountCents          int                    `json:"amount_cents"`
	Currency             string                 `json:"currency"`
	Receipt              string                 `json:"receipt"`
	GatewayOrderID       *string                `json:"gateway_order_id,omitempty"`
	GatewayPaymentID     *string                `json:"gateway_payment_id,omitempty"`
	GatewaySignature     *string                `json:"-"`
	Status               PaymentStatus          `json:"status"`
	InvoiceNumber        *string                `json:"invoice_number,omitempty"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
	FailureMessage       *string                `json:"failure_message,omitempty"`
	WebhookReceived      bool                   `json:"webhook_received"`
	GatewayPayload       map[string]interface{} `json:"-"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// Linked reports whether the payment is completed and already linked to the
// subscription it produced. A linked payment must never re-run a subscription
// transition.
func (p *Payment) Linked() bool {
	return p != nil && p.Status == PaymentStatusCompleted && p.ResultSubscriptionID != nil
}
