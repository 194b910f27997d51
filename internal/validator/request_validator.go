package validator

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"storefront/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

// RequestValidator は echo.Validator の実装（リクエストDTOのタグ検証）
type RequestValidator struct {
	v *playground.Validate
}

func New() *RequestValidator {
	v := playground.New()

	// エラーのフィールド名は json タグ名にする
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	return &RequestValidator{v: v}
}

// Validate は最初の違反だけを 400 の HTTPError にして返す
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return usecase.NewHTTPError(http.StatusBadRequest, message(verrs[0]))
	}
	return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
}

func message(e playground.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid " + field
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be <= %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	case "dive":
		return "invalid " + field
	}
	return "invalid " + field
}
