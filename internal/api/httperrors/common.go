package httperrors

import (
	"fmt"
	"net/http"
)

// HTTPError is the JSON body of failed management requests.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{Code: code, Type: errorType, Title: title}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

var (
	ErrBadRequest            = NewHTTPError(http.StatusBadRequest, "BAD_REQUEST", "Bad request.")
	ErrNotFound              = NewHTTPError(http.StatusNotFound, "NOT_FOUND", "Not found.")
	ErrMethodNotAllowed      = NewHTTPError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.")
	ErrRequestEntityTooLarge = NewHTTPError(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large.")
	ErrInternalServer        = NewHTTPError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error.")
)
