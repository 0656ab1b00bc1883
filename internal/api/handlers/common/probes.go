package common

import (
	"context"

	"github.com/pkg/errors"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/util"
)

// ProbeReadiness checks that the upstream node answers and, when configured, that the audit
// database and the rate limit Redis are reachable. Every probe runs within the management readiness timeout.
func ProbeReadiness(ctx context.Context, s *api.Server) []error {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Management.ProbeReadinessTimeout)
	defer cancel()

	log := util.LogFromContext(ctx)

	var errs []error

	if err := s.Upstream.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Upstream readiness probe failed")
		errs = append(errs, errors.Wrap(err, "upstream"))
	}

	if s.DB != nil {
		if err := s.DB.PingContext(ctx); err != nil {
			log.Warn().Err(err).Msg("Audit database readiness probe failed")
			errs = append(errs, errors.Wrap(err, "audit database"))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Rate limit redis readiness probe failed")
			errs = append(errs, errors.Wrap(err, "rate limit redis"))
		}
	}

	return errs
}
