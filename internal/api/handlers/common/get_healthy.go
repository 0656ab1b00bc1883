package common

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github/chapool/signing-gateway/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// Health check
// Returns a plain text report of the server ready state, the upstream and audit database
// probes and the nonce state of every managed account.
func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var str strings.Builder

		ready := s.Ready()
		fmt.Fprintf(&str, "Ready: %t\n", ready)

		if !ready {
			return c.String(521, str.String())
		}

		errs := ProbeReadiness(c.Request().Context(), s)
		for _, err := range errs {
			fmt.Fprintf(&str, "Probe error: %v\n", err)
		}

		for _, account := range s.Signing.Accounts() {
			state, _ := s.Signing.NonceState(account)
			fmt.Fprintf(&str, "Account %s: %s\n", account.Hex(), state)
		}

		if len(errs) > 0 {
			return c.String(521, str.String())
		}

		str.WriteString("Probes succeeded.\n")
		return c.String(http.StatusOK, str.String())
	}
}
