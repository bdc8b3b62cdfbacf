package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

// OrderHandler starts the payment flow: it records a pending payment and
// returns the gateway order the client checkout needs.
type OrderHandler struct {
	payments *usecase.PaymentService
	logger   *zap.Logger
}

func NewOrderHandler(payments *usecase.PaymentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		payments: payments,
		logger:   logger,
	}
}

type createOrderRequest struct {
	PlanID         int64  `json:"plan_id" validate:"required,gt=0"`
	Action         string `json:"action" validate:"required,oneof=purchase renew upgrade"`
	SubscriptionID *int64 `json:"subscription_id,omitempty"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err // RequireAuth already returns the JSON error response
	}

	var req createOrderRequest
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

	payment, order, err := h.payments.CreateOrder(
		c.Request().Context(),
		user.UserID,
		req.PlanID,
		entity.PaymentAction(req.Action),
		req.SubscriptionID,
	)
	if err != nil {
		h.logger.Warn("Order creation rejected",
			zap.String("user_id", user.UserID.String()),
			zap.Int64("plan_id", req.PlanID),
			zap.String("action", req.Action),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment": payment,
		"order": echo.Map{
			"id":       order.ID,
			"amount":   order.AmountCents,
			"currency": order.Currency,
		},
	})
}
