package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/config"
)

func GetVersionRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/version", getVersionHandler(s))
}

func getVersionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, config.GetFormattedBuildArgs())
	}
}
