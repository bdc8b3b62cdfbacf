package repository

import (
	"context"

	"github.com/wekeepgrowing/subscription-billing/internal/domain/entity"
)

// PlanRepository is the read-only plan catalog.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Plan, error)
	GetByName(ctx context.Context, name string) (*entity.Plan, error)
	ListActive(ctx context.Context) ([]*entity.Plan, error)
}
