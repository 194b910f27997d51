package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ClaimRepository interface {
	Create(ctx context.Context, c model.Claim) (model.Claim, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Claim, error)
	List(ctx context.Context) ([]model.Claim, error)
}
