package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCanUpgradeTo(t *testing.T) {
	basic := &Plan{ID: 1, Name: "basic", TierPriority: 1}
	standard := &Plan{ID: 2, Name: "standard", TierPriority: 2}
	premium := &Plan{ID: 3, Name: "premium", TierPriority: 3}

	t.Run("higher tier is allowed", func(t *testing.T) {
		assert.True(t, basic.CanUpgradeTo(standard))
		assert.True(t, basic.CanUpgradeTo(premium))
		assert.True(t, standard.CanUpgradeTo(premium))
	})

	t.Run("lower tier is refused", func(t *testing.T) {
		assert.False(t, premium.CanUpgradeTo(standard))
		assert.False(t, standard.CanUpgradeTo(basic))
	})

	t.Run("same plan is refused", func(t *testing.T) {
		assert.False(t, basic.CanUpgradeTo(basic))
	})

	t.Run("same tier different plan is refused", func(t *testing.T) {
		other := &Plan{ID: 9, Name: "basic-annual", TierPriority: 1}
		assert.False(t, basic.CanUpgradeTo(other))
	})

	t.Run("nil receiver or target is refused", func(t *testing.T) {
		var missing *Plan
		assert.False(t, missing.CanUpgradeTo(premium))
		assert.False(t, basic.CanUpgradeTo(nil))
	})
}

func TestValidAction(t *testing.T) {
	assert.True(t, ValidAction(ActionPurchase))
	assert.True(t, ValidAction(ActionRenew))
	assert.True(t, ValidAction(ActionUpgrade))
	assert.False(t, ValidAction(PaymentAction("refund")))
	assert.False(t, ValidAction(PaymentAction("")))
}

func TestPaymentLinked(t *testing.T) {
	subID := int64(42)

	assert.True(t, (&Payment{Status: PaymentStatusCompleted, ResultSubscriptionID: &subID}).Linked())
	assert.False(t, (&Payment{Status: PaymentStatusCompleted}).Linked())
	assert.False(t, (&Payment{Status: PaymentStatusPending, ResultSubscriptionID: &subID}).Linked())

	var missing *Payment
	assert.False(t, missing.Linked())
}
