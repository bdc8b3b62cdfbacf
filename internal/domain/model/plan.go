package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a subscription plan catalog entry
type Plan struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string          `gorm:"size:50;not null;unique" json:"name"`
	DisplayPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"display_price"`
	AmountCents        int             `gorm:"not null" json:"amount_cents"`
	Currency           string          `gorm:"size:3;not null;default:'INR'" json:"currency"`
	DurationDays       int             `gorm:"not null" json:"duration_days"`
	TierPriority       int             `gorm:"not null" json:"tier_priority"`
	RenewalCapPerMonth int             `gorm:"not null;default:0" json:"renewal_cap_per_month"`
	AllowDowngrade     bool            `gorm:"not null;default:false" json:"allow_downgrade"`
	Active             bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt          time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Plan) TableName() string {
	return "plans"
}
