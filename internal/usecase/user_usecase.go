package usecase

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type UserUsecase struct {
	userRepo repo.UserRepository
}

func NewUserUsecase(userRepo repo.UserRepository) *UserUsecase {
	return &UserUsecase{userRepo: userRepo}
}

// role が空なら全件
func (u *UserUsecase) List(ctx context.Context, role string) ([]model.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	switch model.Role(role) {
	case "", model.RoleUser, model.RoleEmployee, model.RoleAdmin:
	default:
		return nil, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	users, err := u.userRepo.List(ctx, role)
	if err != nil {
		return nil, dbError(ctx, "users.list", err)
	}
	return users, nil
}
