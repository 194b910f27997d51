package middleware

import (
	"net/http"

	"storefront/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleが許可リストにあるかを確認します。

func RoleGuard(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			for _, r := range allowed {
				if role == string(r) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
		}
	}
}

// 管理画面（ADMIN / EMPLOYEE）
func StaffOnly() echo.MiddlewareFunc {
	return RoleGuard(model.RoleAdmin, model.RoleEmployee)
}

func AdminOnly() echo.MiddlewareFunc {
	return RoleGuard(model.RoleAdmin)
}
