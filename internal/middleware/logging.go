package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	logpkg "github.com/maktabah-search-api/internal/logger"
	"go.uber.org/zap"
)

// RequestLogger emits one log line per request and stores a request-scoped logger in
// the request context. It expects the request ID middleware to run first.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			reqLogger := logger.With(zap.String("request_id", requestID))
			c.SetRequest(req.WithContext(logpkg.ContextWithLogger(req.Context(), reqLogger)))

			if err := next(c); err != nil {
				c.Error(err)
			}

			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.Int64("response_bytes", res.Size),
			}
			if res.Status >= 500 {
				reqLogger.Warn("http_request", fields...)
			} else {
				reqLogger.Info("http_request", fields...)
			}
			return nil
		}
	}
}
