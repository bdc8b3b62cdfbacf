package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/repository"
	"go.uber.org/zap"
)

type PlansHandler struct {
	planRepo repository.PlanRepository
	logger   *zap.Logger
}

func NewPlansHandler(planRepo repository.PlanRepository, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{
		planRepo: planRepo,
		logger:   logger,
	}
}

// GetPlans lists purchasable plans ordered by tier.
func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.planRepo.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list plans", zap.Error(err))
		return domainErrors.JSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"plans": plans,
		"count": len(plans),
	})
}
