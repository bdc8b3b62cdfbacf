package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	subscriptions *usecase.SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *usecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

func (h *SubscriptionHandler) GetMySubscriptions(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	subs, err := h.subscriptions.GetUserSubscriptions(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Failed to list user subscriptions",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscriptions": subs,
		"count":         len(subs),
	})
}

func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid subscription id",
			"code":  domainErrors.CodeInvalidArgument,
		})
	}

	sub, err := h.subscriptions.GetSubscription(c.Request().Context(), user.UserID, subID)
	if err != nil {
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// CancelSubscription cancels the caller's subscription. Cancelling an
// already-cancelled subscription succeeds without effect.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid subscription id",
			"code":  domainErrors.CodeInvalidArgument,
		})
	}

	var req cancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		req.Reason = ""
	}

	if err := h.subscriptions.Cancel(c.Request().Context(), user.UserID, subID, req.Reason, user.IsAdmin()); err != nil {
		h.logger.Warn("Subscription cancellation failed",
			zap.String("user_id", user.UserID.String()),
			zap.Int64("subscription_id", subID),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
}

// ListSubscriptions is the admin listing, optionally filtered by status.
func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Admin role required",
			"code":  domainErrors.CodeForbidden,
		})
	}

	status := entity.SubscriptionStatus(c.QueryParam("status"))
	subs, err := h.subscriptions.ListByStatus(c.Request().Context(), status)
	if err != nil {
		h.logger.Error("Failed to list subscriptions",
			zap.String("status", string(status)),
			zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscriptions": subs,
		"count":         len(subs),
	})
}
