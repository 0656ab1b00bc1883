//go:build wireinject

package api

import (
	"database/sql"

	"github.com/google/wire"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/metrics"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewClock,
	NewUpstream,
	NewKeyring,
	NewPolicy,
	metrics.New,
	NewAuditRecorder,
	NewRedis,
	NewLimiter,
	NewSigningConfig,
	NewSigning,
)

// InitNewServer returns a new Server instance.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, NewDB)
	return new(Server), nil
}

// InitNewServerWithDB returns a new Server instance with the given DB instance.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithDB(
	_ config.Server,
	_ *sql.DB,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
