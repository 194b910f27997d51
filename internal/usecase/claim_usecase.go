package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"storefront/internal/domain/model"
	"storefront/internal/logger"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

const maxClaimMessageLen = 2000

type ClaimUsecase struct {
	claimRepo repo.ClaimRepository
	orderRepo repo.OrderRepository
}

func NewClaimUsecase(claimRepo repo.ClaimRepository, orderRepo repo.OrderRepository) *ClaimUsecase {
	return &ClaimUsecase{claimRepo: claimRepo, orderRepo: orderRepo}
}

type CreateClaimInput struct {
	OrderID int64
	Message string
}

// 自分の注文にだけ出せる
func (u *ClaimUsecase) Create(ctx context.Context, userID int64, in CreateClaimInput) (model.Claim, error) {
	if userID <= 0 {
		return model.Claim{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return model.Claim{}, NewHTTPError(http.StatusBadRequest, "invalid ordenId")
	}
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return model.Claim{}, NewHTTPError(http.StatusBadRequest, "mensaje is required")
	}
	if utf8.RuneCountInString(msg) > maxClaimMessageLen {
		return model.Claim{}, NewHTTPError(http.StatusBadRequest, "mensaje is too long")
	}

	o, err := u.orderRepo.FindByID(ctx, in.OrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Claim{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Claim{}, dbError(ctx, "orders.find", err)
	}
	if o.UserID != userID {
		return model.Claim{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	c, err := u.claimRepo.Create(ctx, model.Claim{
		UserID:  userID,
		OrderID: o.ID,
		Message: msg,
		Status:  model.ClaimStatusOpen,
	})
	if err != nil {
		return model.Claim{}, dbError(ctx, "claims.create", err)
	}

	logger.FromContext(ctx).Info("claim filed",
		zap.Int64("claim_id", c.ID),
		zap.Int64("order_id", o.ID),
		zap.Int64("user_id", userID),
	)
	return c, nil
}

func (u *ClaimUsecase) ListMine(ctx context.Context, userID int64) ([]model.Claim, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	list, err := u.claimRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(ctx, "claims.list_by_user", err)
	}
	return list, nil
}

// 管理者・従業員向け
func (u *ClaimUsecase) List(ctx context.Context) ([]model.Claim, error) {
	list, err := u.claimRepo.List(ctx)
	if err != nil {
		return nil, dbError(ctx, "claims.list", err)
	}
	return list, nil
}
