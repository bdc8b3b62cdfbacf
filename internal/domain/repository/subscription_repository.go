package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
)

type SubscriptionRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)
	ListByStatus(ctx context.Context, status entity.SubscriptionStatus) ([]*entity.Subscription, error)

	// Activate creates a new active subscription together with its first
	// billing entry. The no-duplicate-active-subscription check runs inside the
	// same transaction as the insert.
	Activate(ctx context.Context, sub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error)

	// Renew extends the subscription end date and appends a billing entry. The
	// renewal-cap count and the date arithmetic both happen inside the
	// transaction, against the row as it is at write time.
	Renew(ctx context.Context, subID int64, durationDays, capPerMonth int, entry *entity.BillingEntry, now time.Time) (*entity.Subscription, error)

	// Upgrade expires the superseded subscription and creates the replacement
	// in one transaction.
	Upgrade(ctx context.Context, oldSubID int64, newSub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error)

	// Cancel is idempotent; cancelling an already-cancelled subscription
	// succeeds without touching the row again.
	Cancel(ctx context.Context, subID int64, reason string, now time.Time) error

	// ExpireDue transitions every active subscription whose end date has passed
	// to expired. The predicate is evaluated at write time so a concurrent
	// renewal that just extended the end date is never expired.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
