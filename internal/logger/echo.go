package logger

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger はリクエストIDを振り、リクエストごとにアクセスログを出す
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			id := req.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, id)

			ctx := WithRequestID(req.Context(), base, id)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				//echo のエラーハンドラを先に通してステータスを確定させる
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.String("uri", req.RequestURI),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			log := FromContext(ctx)
			switch {
			case status >= http.StatusInternalServerError:
				log.Error("http request", fields...)
			case status >= http.StatusBadRequest:
				log.Warn("http request", fields...)
			default:
				log.Info("http request", fields...)
			}
			return nil
		}
	}
}

// Recover は panic を 500 にしてログに残す
func Recover(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					base.Error("panic recovered",
						zap.String("request_id", RequestID(c.Request().Context())),
						zap.Any("panic", r),
						zap.String("path", c.Path()),
						zap.Stack("stacktrace"),
					)
					err = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			return next(c)
		}
	}
}
