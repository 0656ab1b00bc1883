package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/handlers/common"
	"github/chapool/signing-gateway/internal/api/handlers/rpc"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetMetricsRoute(s),
		common.GetReadyRoute(s),
		common.GetVersionRoute(s),
		rpc.PostRPCRoute(s),
	}
}
