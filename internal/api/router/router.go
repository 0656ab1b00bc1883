package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/handlers"
	"github/chapool/signing-gateway/internal/api/httperrors"
	"github/chapool/signing-gateway/internal/api/middleware"
)

// Init creates the echo instance of s, installs the middleware chain and attaches all routes.
func Init(s *api.Server) error {
	s.Echo = echo.New()

	s.Echo.Debug = s.Config.Echo.Debug
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger.SetOutput(&echoLogWriter{})
	s.Echo.HTTPErrorHandler = httperrors.ErrorHandler

	// ---
	// General middleware
	if s.Config.Echo.EnableRecoverMiddleware {
		s.Echo.Use(middleware.Recover())
	} else {
		log.Warn().Msg("Disabling recover middleware due to environment config")
	}

	if s.Config.Echo.EnableRequestIDMiddleware {
		s.Echo.Use(middleware.RequestIDWithConfig(uuid.NewString))
	} else {
		log.Warn().Msg("Disabling request ID middleware due to environment config")
	}

	if s.Config.Echo.EnableLoggerMiddleware {
		s.Echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Level: s.Config.Logger.RequestLevel,
		}))
	} else {
		log.Warn().Msg("Disabling logger middleware due to environment config")
	}

	if s.Config.Management.EnableMetrics {
		mw, err := s.Metrics.Middleware()
		if err != nil {
			return err
		}
		s.Echo.Use(mw)
	}

	s.Echo.Use(echomiddleware.BodyLimit(bodyLimit(s.Config.Echo.MaxBodyBytes)))

	s.Router = &api.Router{
		Routes:     nil, // will be populated by handlers.AttachAllRoutes(s)
		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
	}

	// ---
	// Finally attach our handlers
	handlers.AttachAllRoutes(s)

	return nil
}

type echoLogWriter struct{}

func (*echoLogWriter) Write(p []byte) (int, error) {
	log.Debug().Str("source", "echo").Msg(string(p))
	return len(p), nil
}
