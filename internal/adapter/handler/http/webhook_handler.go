package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

// WebhookHandler receives gateway webhook deliveries. The signature is
// verified over the raw body before any parsing. Deliveries for unknown
// orders and duplicate deliveries are acknowledged with 200 so the gateway
// stops retrying; only an invalid signature or an unreadable body is a 400.
type WebhookHandler struct {
	engine   *usecase.ReconciliationService
	verifier provider.SignatureVerifier
	logger   *zap.Logger
}

func NewWebhookHandler(engine *usecase.ReconciliationService, verifier provider.SignatureVerifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:   engine,
		verifier: verifier,
		logger:   logger,
	}
}

// webhookEnvelope mirrors the gateway's delivery shape:
// {"event": "...", "payload": {"payment": {"entity": {...}}}}
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("X-Razorpay-Signature")
	ok, err := h.verifier.VerifyWebhook(body, sig)
	if err != nil {
		h.logger.Error("Webhook signature verification unavailable", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal error",
			"code":  domainErrors.CodeInternal,
		})
	}
	if !ok {
		h.logger.Warn("Webhook signature verification failed")
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Webhook signature verification failed",
			"code":  domainErrors.CodeSignature,
		})
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Error("Error parsing webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error parsing webhook"})
	}

	var payload map[string]interface{}
	_ = json.Unmarshal(body, &payload)

	event := usecase.GatewayEvent{
		Type:             envelope.Event,
		OrderID:          envelope.Payload.Payment.Entity.OrderID,
		GatewayPaymentID: envelope.Payload.Payment.Entity.ID,
		FailureReason:    envelope.Payload.Payment.Entity.ErrorDescription,
		Payload:          payload,
	}

	h.logger.Info("Webhook event received",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("gateway_payment_id", event.GatewayPaymentID))

	if err := h.engine.HandleGatewayEvent(c.Request().Context(), event); err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		// 500 so the gateway redelivers; processing is idempotent.
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal error",
			"code":  domainErrors.CodeInternal,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
