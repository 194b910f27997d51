package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// { message: string }
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// Bind して validate タグを検証（失敗は 400）
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}

// AuthJWT がセットした user_id
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// 空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}
