package probe

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/test"
)

func TestLiveness(t *testing.T) {
	ready := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-/ready", r.URL.Path)
		if !ready {
			w.WriteHeader(521) //nolint:mnd
			_, _ = w.Write([]byte("Not ready."))
			return
		}
		_, _ = w.Write([]byte("Ready."))
	}))
	defer srv.Close()

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Management.ProbeURL = srv.URL + "/"
	cfg.Management.ProbeReadinessTimeout = time.Second

	var out bytes.Buffer
	require.NoError(t, runLiveness(t.Context(), &out, cfg, true))
	assert.Contains(t, out.String(), "200 Ready.")

	ready = false
	require.Error(t, runLiveness(t.Context(), &out, cfg, false))
}

func TestReadiness(t *testing.T) {
	test.WithTestGateway(t, func(s *api.Server, node *test.FakeNode) {
		var out bytes.Buffer
		require.NoError(t, runReadiness(t.Context(), &out, s, true))
		assert.Contains(t, out.String(), "Probes succeeded.")

		node.Server.Close()

		out.Reset()
		require.Error(t, runReadiness(t.Context(), &out, s, true))
		assert.Contains(t, out.String(), "Probe error: upstream")
	})
}
