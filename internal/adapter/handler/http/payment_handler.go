package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

// PaymentHandler covers the client side of reconciliation: the verify and
// activate calls that turn a completed payment into a subscription, plus
// payment reads.
type PaymentHandler struct {
	payments *usecase.PaymentService
	engine   *usecase.ReconciliationService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *usecase.PaymentService, engine *usecase.ReconciliationService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		engine:   engine,
		logger:   logger,
	}
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment finalizes a payment the client reports as paid. Replaying the
// same verification returns the same subscription.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  domainErrors.CodeInvalidArgument,
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  domainErrors.CodeInvalidArgument,
		})
	}

	sub, err := h.engine.VerifyPayment(c.Request().Context(), user.UserID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		h.logger.Warn("Payment verification failed",
			zap.String("user_id", user.UserID.String()),
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscription": sub,
	})
}

type activatePaymentRequest struct {
	PaymentID int64 `json:"payment_id" validate:"required,gt=0"`
	PlanID    int64 `json:"plan_id" validate:"required,gt=0"`
}

// ActivatePayment runs the subscription transition for a payment the webhook
// already completed.
func (h *PaymentHandler) ActivatePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req activatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request body",
			"code":  domainErrors.CodeInvalidArgument,
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
			"code":  domainErrors.CodeInvalidArgument,
		})
	}

	sub, err := h.engine.ActivateCompleted(c.Request().Context(), user.UserID, req.PaymentID, req.PlanID)
	if err != nil {
		h.logger.Warn("Payment activation failed",
			zap.String("user_id", user.UserID.String()),
			zap.Int64("payment_id", req.PaymentID),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscription": sub,
	})
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid payment id",
			"code":  domainErrors.CodeInvalidArgument,
		})
	}

	payment, err := h.payments.GetPayment(c.Request().Context(), user.UserID, paymentID)
	if err != nil {
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) GetUserPayments(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit := 10
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Invalid limit parameter",
				"code":  domainErrors.CodeInvalidArgument,
			})
		}
		limit = parsed
	}

	payments, err := h.payments.GetUserPayments(c.Request().Context(), user.UserID, limit)
	if err != nil {
		h.logger.Error("Failed to list user payments",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payments": payments,
		"count":    len(payments),
	})
}
