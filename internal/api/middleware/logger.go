package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github/chapool/signing-gateway/internal/util"
)

type LoggerConfig struct {
	Skipper middleware.Skipper
	Level   zerolog.Level
}

// LoggerWithConfig attaches a request scoped logger to the request context and logs the
// outcome of every request at the configured level.
func LoggerWithConfig(config LoggerConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			start := time.Now()

			l := util.LogFromContext(req.Context()).With().
				Str("method", req.Method).
				Str("path", c.Path()).
				Str("remote_ip", c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			event := l.WithLevel(config.Level)
			if res.Status >= 500 { //nolint:mnd
				event = l.Error().Err(err)
			}

			event.
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("duration", time.Since(start)).
				Msg("Http request")

			return nil
		}
	}
}

// RequestIDWithConfig tags each request with an id, stores it in the request context and
// echoes it in the X-Request-ID response header.
func RequestIDWithConfig(generator func() string) echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: generator,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(util.WithRequestID(req.Context(), id)))
		},
	})
}

// Recover turns handler panics into 500 responses and logs them.
func Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			util.LogFromContext(c.Request().Context()).Error().Err(err).Bytes("stack", stack).Msg("Recovered from panic")
			return err
		},
	})
}
