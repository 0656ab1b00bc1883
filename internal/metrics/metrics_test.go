package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/audit"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/metrics"
)

func TestRecordAndExpose(t *testing.T) {
	m, err := metrics.New(config.DefaultServiceConfigFromEnv())
	require.NoError(t, err)

	m.ObserveRPC("passthrough")
	m.ObserveRPC("passthrough")
	m.ObserveRPC("transaction")

	record := audit.NewRecord(time.Now())
	record.Variant = "transaction"
	record.Account = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	record.Outcome = audit.OutcomeRejected
	record.Kind = "nonce_conflict"
	record.Duration = 20 * time.Millisecond
	require.NoError(t, m.Record(t.Context(), record))

	count, err := testutil.GatherAndCount(m.Registry, "gateway_rpc_calls_total", "gateway_signing_requests_total", "gateway_signing_nonce_conflicts_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_rpc_calls_total{category="passthrough"} 2`)
	assert.Contains(t, rec.Body.String(), `gateway_signing_requests_total{kind="nonce_conflict",outcome="rejected",variant="transaction"} 1`)
}
