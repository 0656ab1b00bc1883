package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/router"
	"github/chapool/signing-gateway/internal/config"
	"github/chapool/signing-gateway/internal/util"
)

// TestMnemonic derives the well known development accounts 0xf39F…2266 and 0x7099…79C8.
const TestMnemonic = "test test test test test test test test test test test junk"

// NewTestConfig returns a server config pointing at node, managing two accounts of
// TestMnemonic and running the validators of the policies directory.
func NewTestConfig(node *FakeNode) config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Chain = config.Chain{ID: FakeChainID}
	cfg.Upstream = config.Upstream{URLs: []string{node.URL()}, Timeout: 2 * time.Second} //nolint:mnd
	cfg.Wallet = config.Wallet{Mnemonic: TestMnemonic, AccountCount: 2}                  //nolint:mnd
	cfg.Policy = config.Policy{
		Manifest: filepath.Join(util.GetProjectRootDir(), "policies", "policies.toml"),
		Timeout:  time.Second,
	}
	cfg.Audit = config.Audit{}
	cfg.RateLimit = config.RateLimit{Window: time.Minute}
	cfg.Management.ProbeReadinessTimeout = time.Second

	return cfg
}

// WithTestServer runs closure against a fully wired server in front of a fake node.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestGateway(t, func(s *api.Server, _ *FakeNode) {
		closure(s)
	})
}

// WithTestGateway runs closure against a fully wired server and the fake node behind it.
func WithTestGateway(t *testing.T, closure func(s *api.Server, node *FakeNode)) {
	t.Helper()

	node := NewFakeNode(t)
	WithTestServerConfigurable(t, NewTestConfig(node), func(s *api.Server) {
		closure(s, node)
	})
}

// WithTestServerConfigurable runs closure against a server built from cfg.
func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	s, err := api.InitNewServer(cfg)
	require.NoError(t, err, "failed to init server")
	require.NoError(t, router.Init(s), "failed to init router")

	closure(s)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		t.Logf("Failed to shutdown server: %v", errs)
	}
}

// PerformRequest sends a request through the echo instance of s. A []byte or string body
// is sent as is, anything else is encoded as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "failed to encode request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}
