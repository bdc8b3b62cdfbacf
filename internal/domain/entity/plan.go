package entity

import "github.com/shopspring/decimal"

// Plan is a catalog entry. Amounts are integer minor currency units; the
// decimal price is display-only.
type Plan struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	DisplayPrice       decimal.Decimal `json:"display_price"`
	AmountCents        int             `json:"amount_cents"`
	Currency           string          `json:"currency"`
	DurationDays       int             `json:"duration_days"`
	TierPriority       int             `json:"tier_priority"`
	RenewalCapPerMonth int             `json:"renewal_cap_per_month"`
	AllowDowngrade     bool            `json:"allow_downgrade"`
	Active             bool            `json:"active"`
}

// CanUpgradeTo reports whether a subscription on plan p may be upgraded to
// target. Upgrades must strictly increase tier priority; same-plan and
// same-tier upgrades are refused.
func (p *Plan) CanUpgradeTo(target *Plan) bool {
	if p == nil || target == nil {
		return false
	}
	if p.ID == target.ID {
		return false
	}
	return target.TierPriority > p.TierPriority
}
