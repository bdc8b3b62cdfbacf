package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Payment represents a payment record
type Payment struct {
	ID                   int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID               int64         `gorm:"not null;index" json:"plan_id"`
	SubscriptionID       *int64        `gorm:"index" json:"subscription_id,omitempty"`
	ResultSubscriptionID *int64        `gorm:"index" json:"result_subscription_id,omitempty"`
	Action               string        `gorm:"size:20;not null" json:"action"`
	AmountCents          int           `gorm:"not null" json:"amount_cents"`
	Currency             string        `gorm:"size:3;not null;default:'INR'" json:"currency"`
	Receipt              string        `gorm:"size:64;not null;unique" json:"receipt"`
	GatewayOrderID       *string       `gorm:"size:100;unique" json:"gateway_order_id,omitempty"`
	GatewayPaymentID     *string       `gorm:"size:100" json:"gateway_payment_id,omitempty"`
	GatewaySignature     *string       `gorm:"size:200" json:"-"`
	Status               PaymentStatus `gorm:"type:payment_status;not null;default:'pending'" json:"status"`
	InvoiceNumber        *string       `gorm:"size:64" json:"invoice_number,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	FailureMessage       *string       `json:"failure_message,omitempty"`
	WebhookReceived      bool          `gorm:"not null;default:false" json:"webhook_received"`
	GatewayPayload       JSONB         `gorm:"type:jsonb" json:"gateway_payload,omitempty"`
	CreatedAt            time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"default:now()" json:"updated_at"`

	// Relations
	Plan         *Plan         `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}
