package httperrors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	jsonrpc "github/chapool/signing-gateway/internal/rpc"
	"github/chapool/signing-gateway/internal/util"
)

// RPCPath is the route of the JSON-RPC endpoint.
const RPCPath = "/"

// ErrorHandler renders errors that escaped the handlers. Failures on the JSON-RPC endpoint
// are answered with a JSON-RPC error object so wallet clients can parse them, everything
// else gets an HTTPError body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	httpErr := toHTTPError(err)

	log := util.LogFromContext(c.Request().Context())
	if httpErr.Code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	}

	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(httpErr.Code)
	case c.Path() == RPCPath && c.Request().Method == http.MethodPost:
		writeErr = c.JSON(httpErr.Code, jsonrpc.NewErrorResponse(nil, toRPCError(httpErr)))
	default:
		writeErr = c.JSON(httpErr.Code, httpErr)
	}

	if writeErr != nil {
		log.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if !errors.As(err, &echoErr) {
		return ErrInternalServer
	}

	switch echoErr.Code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusMethodNotAllowed:
		return ErrMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return ErrRequestEntityTooLarge
	case http.StatusInternalServerError:
		return ErrInternalServer
	default:
		return NewHTTPError(echoErr.Code, "HTTP_ERROR", http.StatusText(echoErr.Code))
	}
}

func toRPCError(httpErr *HTTPError) *jsonrpc.Error {
	switch {
	case httpErr.Code == http.StatusRequestEntityTooLarge:
		return jsonrpc.ErrInvalidRequest("request body too large")
	case httpErr.Code < http.StatusInternalServerError:
		return jsonrpc.ErrInvalidRequest(httpErr.Title)
	default:
		return &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "internal error"}
	}
}
