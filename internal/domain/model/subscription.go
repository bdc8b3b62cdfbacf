package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Subscription represents a user's subscription
type Subscription struct {
	ID           int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID       int64              `gorm:"not null;index" json:"plan_id"`
	Status       SubscriptionStatus `gorm:"type:subscription_status;not null;default:'pending'" json:"status"`
	StartDate    time.Time          `gorm:"not null" json:"start_date"`
	EndDate      time.Time          `gorm:"not null;index" json:"end_date"`
	PaymentID    *int64             `gorm:"index" json:"payment_id,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason *string            `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"default:now()" json:"updated_at"`

	// Relations
	Plan    *Plan          `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	History []BillingEntry `gorm:"foreignKey:SubscriptionID" json:"history,omitempty"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
