package database

import (
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Create custom types BEFORE auto-migrate
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	// Auto-migrate all models
	err := db.AutoMigrate(
		&model.Plan{},
		&model.Subscription{},
		&model.BillingEntry{},
		&model.Payment{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Create custom indexes and constraints
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	// Seed the plan catalog
	if err := seedPlans(db, logger); err != nil {
		logger.Error("Failed to seed plans", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomTypes creates custom PostgreSQL types
func createCustomTypes(db *gorm.DB) error {
	var exists bool

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'subscription_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE subscription_status AS ENUM ('pending', 'active', 'expired', 'cancelled')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'payment_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE payment_status AS ENUM ('pending', 'completed', 'failed', 'cancelled')`).Error; err != nil {
			return err
		}
	}

	return nil
}

// createCustomIndexes creates custom indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One active subscription per (user, plan); backstops the check inside
	// the activation transaction.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_subscription_per_user_plan ON subscriptions (user_id, plan_id) WHERE status = 'active'`).Error; err != nil {
		return err
	}

	// The expiry sweep scans by status and end date.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_active_end_date ON subscriptions (end_date) WHERE status = 'active'`).Error; err != nil {
		return err
	}

	// The renewal-cap count scans billing entries by subscription and month.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_billing_entries_sub_kind_billed_at ON billing_entries (subscription_id, kind, billed_at)`).Error; err != nil {
		return err
	}

	return nil
}

// seedPlans inserts the fixed plan catalog if it is not present. Existing
// rows are left untouched so price changes go through operations, not boot.
func seedPlans(db *gorm.DB, logger *zap.Logger) error {
	plans := []model.Plan{
		{
			Name:               "basic",
			DisplayPrice:       decimal.NewFromInt(199),
			AmountCents:        19900,
			Currency:           "INR",
			DurationDays:       30,
			TierPriority:       1,
			RenewalCapPerMonth: 2,
			Active:             true,
		},
		{
			Name:               "standard",
			DisplayPrice:       decimal.NewFromInt(499),
			AmountCents:        49900,
			Currency:           "INR",
			DurationDays:       30,
			TierPriority:       2,
			RenewalCapPerMonth: 2,
			Active:             true,
		},
		{
			Name:               "premium",
			DisplayPrice:       decimal.NewFromInt(999),
			AmountCents:        99900,
			Currency:           "INR",
			DurationDays:       30,
			TierPriority:       3,
			RenewalCapPerMonth: 0,
			Active:             true,
		},
	}

	for _, plan := range plans {
		var count int64
		if err := db.Model(&model.Plan{}).Where("name = ?", plan.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&plan).Error; err != nil {
			return err
		}
		logger.Info("Seeded plan",
			zap.String("name", plan.Name),
			zap.Int("tier_priority", plan.TierPriority))
	}

	return nil
}
