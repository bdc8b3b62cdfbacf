package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"github.com/wekeepgrowing/subscription-billing/internal/infrastructure/gateway/razorpay"
	"github.com/wekeepgrowing/subscription-billing/internal/notification"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

const webhookTestSecret = "webhook-secret"

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Payment), args.Error(1)
}

func (m *mockPaymentRepo) AttachOrder(ctx context.Context, paymentID int64, orderID string) error {
	args := m.Called(ctx, paymentID, orderID)
	return args.Error(0)
}

func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, params repository.CompletePayment) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, paymentID int64, reason string) error {
	args := m.Called(ctx, paymentID, reason)
	return args.Error(0)
}

func (m *mockPaymentRepo) MarkWebhookReceived(ctx context.Context, paymentID int64, payload map[string]interface{}) error {
	args := m.Called(ctx, paymentID, payload)
	return args.Error(0)
}

func (m *mockPaymentRepo) FinalizeExclusive(ctx context.Context, paymentID int64, fn func(context.Context, *entity.Payment) (int64, error)) error {
	args := m.Called(ctx, paymentID)
	if current, ok := args.Get(0).(*entity.Payment); ok && current != nil {
		if _, err := fn(ctx, current); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestHandler(t *testing.T, engine *usecase.ReconciliationService) *WebhookHandler {
	t.Helper()
	verifier := razorpay.NewSignatureVerifier("key-secret", webhookTestSecret)
	return NewWebhookHandler(engine, verifier, zap.NewNop())
}

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	h := newWebhookTestHandler(t, nil)
	body := []byte(`{"event":"payment.captured"}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "forged")
	rec := httptest.NewRecorder()

	err := h.HandleWebhook(e.NewContext(req, rec))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SIGNATURE_INVALID")
}

func TestHandleWebhook_AcknowledgesUnknownOrder(t *testing.T) {
	paymentRepo := new(mockPaymentRepo)
	paymentRepo.On("GetByOrderID", mock.Anything, "order_unknown").Return(nil, nil)

	engine := usecase.NewReconciliationService(paymentRepo, nil, nil, nil, notification.NewNopNotifier(), zap.NewNop())
	h := newWebhookTestHandler(t, engine)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	rec := httptest.NewRecorder()

	err := h.HandleWebhook(e.NewContext(req, rec))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	paymentRepo.AssertExpectations(t)
}

func TestHandleWebhook_CapturedCompletesPayment(t *testing.T) {
	orderID := "order_abc"
	payment := &entity.Payment{
		ID:             7,
		PlanID:         1,
		Action:         entity.ActionPurchase,
		GatewayOrderID: &orderID,
		Status:         entity.PaymentStatusPending,
	}

	paymentRepo := new(mockPaymentRepo)
	paymentRepo.On("GetByOrderID", mock.Anything, orderID).Return(payment, nil)
	paymentRepo.On("MarkCompleted", mock.Anything, mock.MatchedBy(func(p repository.CompletePayment) bool {
		return p.PaymentID == payment.ID && p.GatewayPaymentID == "pay_x" && p.FromWebhook
	})).Return(true, nil)

	engine := usecase.NewReconciliationService(paymentRepo, nil, nil, nil, notification.NewNopNotifier(), zap.NewNop())
	h := newWebhookTestHandler(t, engine)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_abc"}}}}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	rec := httptest.NewRecorder()

	err := h.HandleWebhook(e.NewContext(req, rec))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	paymentRepo.AssertExpectations(t)
}

func TestHandleWebhook_RejectsMalformedBody(t *testing.T) {
	h := newWebhookTestHandler(t, nil)
	body := []byte(`not json`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body))
	rec := httptest.NewRecorder()

	err := h.HandleWebhook(e.NewContext(req, rec))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
