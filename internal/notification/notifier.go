package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event describes a reconciled payment handed off for notification after the
// transactional core has committed.
type Event struct {
	PaymentID      int64     `json:"payment_id"`
	SubscriptionID int64     `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	Action         string    `json:"action"`
	AmountCents    int       `json:"amount_cents"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier receives best-effort notification events. Implementations must
// never let a delivery failure affect the caller.
type Notifier interface {
	PaymentReconciled(ctx context.Context, ev Event)
}

type redisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier creates a notifier that publishes reconciliation events to
// a redis channel for the notification workers.
func NewRedisNotifier(addr, password string, db int, channel string, logger *zap.Logger) (Notifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisNotifier{client: client, channel: channel, logger: logger}, nil
}

func (n *redisNotifier) PaymentReconciled(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to marshal notification event",
			zap.Int64("payment_id", ev.PaymentID),
			zap.Error(err))
		return
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Error("Failed to publish notification event",
			zap.Int64("payment_id", ev.PaymentID),
			zap.String("channel", n.channel),
			zap.Error(err))
	}
}

type nopNotifier struct{}

// NewNopNotifier returns a notifier that drops every event, used when redis
// is not configured.
func NewNopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) PaymentReconciled(context.Context, Event) {}
