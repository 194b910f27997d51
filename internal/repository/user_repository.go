package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// ユーザーは外部の認証基盤が作る。ここでは参照だけ
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	List(ctx context.Context, role string) ([]model.User, error)
}
