package echoapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/tdm/core"
)

func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	})
}

// requestLogger logs one line per request through logger.
func requestLogger(logger core.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true, // the logged status is the one the error handler wrote
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			extras := map[string]interface{}{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.Round(time.Microsecond).String(),
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
			}
			args := []interface{}{extras}
			if id, ok := contextIdentity(ctx); ok {
				args = append(args, id)
			}
			if v.Error != nil {
				logger.Warn("request failed", append(args, v.Error)...)
				return nil
			}
			logger.Info("request", args...)
			return nil
		},
	})
}
