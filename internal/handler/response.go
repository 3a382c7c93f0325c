package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sumire/bebop/internal/domain"
)

// Envelope wraps every loopback response: exactly one of Data and Error is set.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the error half of an Envelope.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError names the request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes data inside an Envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// HTTPErrorHandler renders handler errors as Envelopes.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

// sentinelErrors maps domain sentinels to their HTTP shape. Order matters:
// the first match wins.
var sentinelErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found", "Nothing is waiting for this request"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "The forum rejected the current token"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "The request is invalid"},
	{domain.ErrNetwork, http.StatusBadGateway, "upstream_error", "The forum or explorer could not be reached"},
}

func mapError(err error) (int, APIError) {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		text := http.StatusText(echoErr.Code)
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = text
		}
		return echoErr.Code, APIError{
			Code:    strings.ReplaceAll(strings.ToLower(text), " ", "_"),
			Message: msg,
		}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: "Validation failed",
			Details: []FieldError{{Field: validationErr.Field, Message: validationErr.Message}},
		}
	}

	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return s.status, APIError{Code: s.code, Message: s.message}
		}
	}

	slog.Error("unhandled error", "error", err)
	return http.StatusInternalServerError, APIError{
		Code:    "internal_error",
		Message: "An unexpected error occurred",
	}
}
