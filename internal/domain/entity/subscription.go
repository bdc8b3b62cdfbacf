package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the entitlement record. It is created by a successful
// purchase or upgrade, mutated in place by renewals and cancellation/expiry,
// and never deleted.
type Subscription struct {
	ID           int64              `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	PlanID       int64              `json:"plan_id"`
	Plan         *Plan              `json:"plan,omitempty"`
	Status       SubscriptionStatus `json:"status"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	PaymentID    *int64             `json:"payment_id,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason *string            `json:"cancel_reason,omitempty"`
	History      []BillingEntry     `json:"history,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type BillingKind string

const (
	BillingKindActivation BillingKind = "activation"
	BillingKindRenewal    BillingKind = "renewal"
	BillingKindUpgrade    BillingKind = "upgrade"
)

// BillingEntry is one append-only line of a subscription's billing history.
type BillingEntry struct {
	ID             int64       `json:"id"`
	SubscriptionID int64       `json:"subscription_id"`
	PaymentID      int64       `json:"payment_id"`
	AmountCents    int         `json:"amount_cents"`
	Kind           BillingKind `json:"kind"`
	Outcome        string      `json:"outcome"`
	BilledAt       time.Time   `json:"billed_at"`
}

// NextPeriodEnd computes the end date after a renewal: the duration is added
// to whichever of the current end date and now is later. Renewing early keeps
// the paid time; renewing a lapsed subscription starts from now instead of
// backdating.
func NextPeriodEnd(currentEnd, now time.Time, durationDays int) time.Time {
	base := currentEnd
	if now.After(base) {
		base = now
	}
	return base.AddDate(0, 0, durationDays)
}

// MonthWindow returns the UTC calendar-month boundaries containing t, used to
// count renewals against a plan's monthly cap.
func MonthWindow(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
