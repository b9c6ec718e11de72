// Package logger builds the zap loggers used by the server and the client
// and provides the echo request-logging middleware.
package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the header and echo context key carrying the request id.
const RequestIDKey = "X-Request-ID"

const contextKey = "logger"

// New returns a JSON logger in production and a console logger
// elsewhere.  An unknown level falls back to info.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" || env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Middleware logs every request once it has been handled and stores a
// request-scoped logger in the echo context.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(RequestIDKey)
			if requestID == "" {
				requestID = c.Request().Header.Get(RequestIDKey)
			}
			log := base.With(zap.String("request_id", requestID))
			c.Set(contextKey, log)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			switch {
			case err != nil:
				log.Error("request failed", append(fields, zap.Error(err))...)
			case c.Response().Status >= 500:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return nil
		}
	}
}

// FromContext returns the request-scoped logger, or a no-op logger when
// the middleware did not run.
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
