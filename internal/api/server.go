package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/metrics"
	"github/chapool/signing-gateway/internal/signing"
	"github/chapool/signing-gateway/internal/signing/policy"
	"github/chapool/signing-gateway/internal/upstream"
	"github/chapool/signing-gateway/internal/util"
	"github/chapool/signing-gateway/internal/wallet/signer"

	// Import postgres driver for database/sql package
	_ "github.com/lib/pq"
)

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// Components labeled as `init:"optional"` may stay nil without affecting readiness.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config   config.Server
	Clock    time2.Clock
	Upstream *upstream.Client
	Keyring  signer.Service
	Policy   *policy.Engine
	Audit    audit.Recorder
	Metrics  *metrics.Service
	Signing  signing.Service

	// DB backs the audit trail and is nil unless GATEWAY_AUDIT_DATABASE_URL is set
	DB *sql.DB `init:"optional"`

	// Redis shares rate limit counters and is nil unless GATEWAY_RATE_LIMIT_REDIS_URL is set
	Redis *redis.Client `init:"optional"`
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	db *sql.DB,
	rdb *redis.Client,
	up *upstream.Client,
	keyring signer.Service,
	engine *policy.Engine,
	recorder audit.Recorder,
	metrics *metrics.Service,
	core signing.Service,
) *Server {
	return &Server{
		Config:   cfg,
		Clock:    clock,
		DB:       db,
		Redis:    rdb,
		Upstream: up,
		Keyring:  keyring,
		Policy:   engine,
		Audit:    recorder,
		Metrics:  metrics,
		Signing:  core,
	}
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if c, ok := s.Keyring.(interface{ Clear() }); ok {
		log.Debug().Msg("Wiping signing keys")
		c.Clear()
	}

	if s.Upstream != nil {
		log.Debug().Msg("Closing upstream connections")
		s.Upstream.Close()
	}

	if s.DB != nil {
		log.Debug().Msg("Closing database connection")

		if err := s.DB.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Error().Err(err).Msg("Failed to close database connection")
			errs = append(errs, err)
		}
	}

	if s.Redis != nil {
		log.Debug().Msg("Closing redis connection")

		if err := s.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			log.Error().Err(err).Msg("Failed to close redis connection")
			errs = append(errs, err)
		}
	}

	return errs
}
