package model

import "time"

// BillingEntry is one append-only line of a subscription's billing history.
// Entries are only inserted, never updated or deleted; the renewal cap is
// counted from renewal entries within the current UTC calendar month.
type BillingEntry struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SubscriptionID int64     `gorm:"not null;index" json:"subscription_id"`
	PaymentID      int64     `gorm:"not null;index" json:"payment_id"`
	AmountCents    int       `gorm:"not null" json:"amount_cents"`
	Kind           string    `gorm:"size:20;not null" json:"kind"`
	Outcome        string    `gorm:"size:50;not null" json:"outcome"`
	BilledAt       time.Time `gorm:"not null;index" json:"billed_at"`
}

// TableName specifies the table name for GORM
func (BillingEntry) TableName() string {
	return "billing_entries"
}
