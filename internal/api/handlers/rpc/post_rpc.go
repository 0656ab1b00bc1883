package rpc

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/signing-gateway/internal/api"
	"github/chapool/signing-gateway/internal/api/httperrors"
	jsonrpc "github/chapool/signing-gateway/internal/rpc"
	"github/chapool/signing-gateway/internal/util"
)

func PostRPCRoute(s *api.Server) *echo.Route {
	return s.Router.Root.POST(httperrors.RPCPath, postRPCHandler(s))
}

// postRPCHandler answers JSON-RPC 2.0 calls. Calls needing a managed key are handled by the
// signing core, everything else is relayed to the upstream node untouched.
func postRPCHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}

		calls, batch, err := jsonrpc.ParseBody(body)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to parse JSON-RPC body")
			return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrParse(err.Error())))
		}

		intercepted := 0
		for _, call := range calls {
			category := jsonrpc.Classify(call.Method)
			s.Metrics.ObserveRPC(category.String())
			if category.Intercepted() {
				intercepted++
			}
		}

		// nothing to intercept: the upstream node sees exactly what the caller sent
		if intercepted == 0 {
			return forward(c, s, body, calls, batch)
		}

		if !batch {
			res := handleCall(ctx, s, calls[0])
			if calls[0].Notification() {
				return c.NoContent(http.StatusNoContent)
			}
			return c.JSON(http.StatusOK, res)
		}

		responses := handleBatch(ctx, s, calls)
		if len(responses) == 0 {
			return c.NoContent(http.StatusNoContent)
		}

		return c.JSON(http.StatusOK, responses)
	}
}

func forward(c echo.Context, s *api.Server, body []byte, calls []*jsonrpc.Request, batch bool) error {
	status, res, err := s.Upstream.Forward(c.Request().Context(), body)
	if err != nil {
		util.LogFromContext(c.Request().Context()).Warn().Err(err).Msg("Failed to forward JSON-RPC call")

		if !batch {
			return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(calls[0].ID, jsonrpc.ErrUpstreamUnavailable()))
		}

		responses := make([]*jsonrpc.Response, 0, len(calls))
		for _, call := range calls {
			if !call.Notification() {
				responses = append(responses, jsonrpc.NewErrorResponse(call.ID, jsonrpc.ErrUpstreamUnavailable()))
			}
		}
		return c.JSON(http.StatusOK, responses)
	}

	if len(res) == 0 {
		return c.NoContent(status)
	}

	return c.Blob(status, echo.MIMEApplicationJSON, res)
}
