package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"github.com/wekeepgrowing/subscription-billing/internal/notification"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) AttachOrder(ctx context.Context, paymentID int64, orderID string) error {
	args := m.Called(ctx, paymentID, orderID)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkCompleted(ctx context.Context, params repository.CompletePayment) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) MarkFailed(ctx context.Context, paymentID int64, reason string) error {
	args := m.Called(ctx, paymentID, reason)
	return args.Error(0)
}

func (m *MockPaymentRepository) MarkWebhookReceived(ctx context.Context, paymentID int64, payload map[string]interface{}) error {
	args := m.Called(ctx, paymentID, payload)
	return args.Error(0)
}

// FinalizeExclusive runs fn against the payment configured as the first
// return value, standing in for the row re-read under the lock. The second
// return value is the transaction outcome after fn succeeds.
func (m *MockPaymentRepository) FinalizeExclusive(ctx context.Context, paymentID int64, fn func(context.Context, *entity.Payment) (int64, error)) error {
	args := m.Called(ctx, paymentID)
	if current, ok := args.Get(0).(*entity.Payment); ok && current != nil {
		if _, err := fn(ctx, current); err != nil {
			return err
		}
	}
	return args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id int64) (*entity.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByStatus(ctx context.Context, status entity.SubscriptionStatus) ([]*entity.Subscription, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Activate(ctx context.Context, sub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error) {
	args := m.Called(ctx, sub, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Renew(ctx context.Context, subID int64, durationDays, capPerMonth int, entry *entity.BillingEntry, now time.Time) (*entity.Subscription, error) {
	args := m.Called(ctx, subID, durationDays, capPerMonth, entry, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Upgrade(ctx context.Context, oldSubID int64, newSub *entity.Subscription, entry *entity.BillingEntry) (*entity.Subscription, error) {
	args := m.Called(ctx, oldSubID, newSub, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Cancel(ctx context.Context, subID int64, reason string, now time.Time) error {
	args := m.Called(ctx, subID, reason, now)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id int64) (*entity.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByName(ctx context.Context, name string) (*entity.Plan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Plan), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, amountCents int, currency, receipt string) (*provider.Order, error) {
	args := m.Called(ctx, amountCents, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Order), args.Error(1)
}

type MockSignatureVerifier struct {
	mock.Mock
}

func (m *MockSignatureVerifier) VerifyPayment(orderID, paymentID, signature string) (bool, error) {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureVerifier) VerifyWebhook(body []byte, signature string) (bool, error) {
	args := m.Called(body, signature)
	return args.Bool(0), args.Error(1)
}

type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) ApplyPayment(ctx context.Context, payment *entity.Payment) (*entity.Subscription, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

type recordingNotifier struct {
	events chan notification.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(chan notification.Event, 8)}
}

func (n *recordingNotifier) PaymentReconciled(_ context.Context, ev notification.Event) {
	n.events <- ev
}
