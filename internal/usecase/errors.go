package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/logger"

	"go.uber.org/zap"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// DBエラーはログに原因を残し、クライアントには "db error" だけ返す
func dbError(ctx context.Context, op string, err error) error {
	//すでに HTTPError なら（WithinTx の中から返ってきた等）そのまま
	if he, ok := AsHTTPError(err); ok {
		return he
	}
	logger.FromContext(ctx).Error("db error", zap.String("op", op), zap.Error(err))
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
