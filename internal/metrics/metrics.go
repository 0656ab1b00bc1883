package metrics

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
)

const namespace = "gateway"

// Service owns the gateway's prometheus registry. It counts RPC calls by category and
// records every finished signing request as an audit.Recorder.
type Service struct {
	Registry *prometheus.Registry

	rpcCalls        *prometheus.CounterVec
	signingRequests *prometheus.CounterVec
	signingDuration *prometheus.HistogramVec
	nonceConflicts  *prometheus.CounterVec
}

func New(cfg config.Server) (*Service, error) {
	registry := prometheus.NewRegistry()

	s := &Service{
		Registry: registry,
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Number of JSON-RPC calls received, by method category.",
		}, []string{"category"}),
		signingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "requests_total",
			Help:      "Number of finished signing requests.",
		}, []string{"variant", "outcome", "kind"}),
		signingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "duration_seconds",
			Help:      "How long a signing request took from interception to its outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
		nonceConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "nonce_conflicts_total",
			Help:      "Number of transactions rejected by the nonce sequencer, by account.",
		}, []string{"account"}),
	}

	collectorsToRegister := []prometheus.Collector{
		s.rpcCalls,
		s.signingRequests,
		s.signingDuration,
		s.nonceConflicts,
	}
	if cfg.Management.EnableMetrics {
		collectorsToRegister = append(collectorsToRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, c := range collectorsToRegister {
		if err := registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register metrics collector")
		}
	}

	return s, nil
}

// ObserveRPC counts a received JSON-RPC call.
func (s *Service) ObserveRPC(category string) {
	s.rpcCalls.WithLabelValues(category).Inc()
}

// Record implements audit.Recorder.
func (s *Service) Record(_ context.Context, record *audit.Record) error {
	s.signingRequests.WithLabelValues(record.Variant, string(record.Outcome), record.Kind).Inc()
	s.signingDuration.WithLabelValues(record.Variant).Observe(record.Duration.Seconds())

	if record.Kind == "nonce_conflict" {
		s.nonceConflicts.WithLabelValues(record.Account).Inc()
	}

	return nil
}

// RegisterDB exports connection pool statistics of db.
func (s *Service) RegisterDB(name string, db *sql.DB) error {
	if err := s.Registry.Register(sqlstats.NewStatsCollector(name, db)); err != nil {
		return errors.Wrapf(err, "failed to register database stats for %s", name)
	}

	return nil
}

// Middleware instruments every HTTP request handled by echo. The metrics route itself is skipped.
func (s *Service) Middleware() (echo.MiddlewareFunc, error) {
	mw, err := echoprometheus.MiddlewareConfig{
		Namespace:  namespace,
		Subsystem:  "http",
		Registerer: s.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}.ToMiddleware()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metrics middleware")
	}

	return mw, nil
}

// Handler serves the registry in the prometheus exposition format.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}
