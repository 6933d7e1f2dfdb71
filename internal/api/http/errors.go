package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/quake-proxy/internal/assistant"
	"github.com/i474232898/quake-proxy/internal/logging"
	"github.com/i474232898/quake-proxy/internal/mailer"
	"github.com/i474232898/quake-proxy/internal/quake"
	"github.com/i474232898/quake-proxy/internal/upstream"
)

// ErrInvalidRequest marks a request rejected before any upstream call.
var ErrInvalidRequest = errors.New("invalid request")

// apiError is the JSON error body every failing route renders.
type apiError struct {
	Status    int               `json:"-"`
	Message   string            `json:"error"`
	Code      string            `json:"code"`
	Details   string            `json:"details,omitempty"`
	LastError *quake.FetchError `json:"lastError,omitempty"`

	// unavailable responses always carry lastError, null or not
	withLastError bool
}

func (e *apiError) Error() string {
	return e.Message
}

func invalidRequest(msg string) *apiError {
	return &apiError{Status: fiber.StatusBadRequest, Message: msg, Code: "invalid_request"}
}

// toAPIError maps domain errors onto HTTP responses.
func toAPIError(err error) *apiError {
	var (
		apiErr          *apiError
		fiberErr        *fiber.Error
		geocodeUpstream *quake.GeocodeUpstreamError
		unavailable     *quake.UnavailableError
		assistantErr    *assistant.UpstreamError
		mailerErr       *mailer.UpstreamError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, assistant.ErrEmptyQuestion):
		return invalidRequest(err.Error())
	case errors.Is(err, quake.ErrGeocodeNotFound):
		return &apiError{Status: fiber.StatusNotFound, Message: "Postal code not found", Code: "geocode_not_found"}
	case errors.As(err, &geocodeUpstream):
		return &apiError{
			Status:  fiber.StatusBadGateway,
			Message: "Geocoding service unavailable",
			Code:    "geocode_upstream_error",
			Details: upstreamDetail(geocodeUpstream.Err),
		}
	case errors.As(err, &unavailable):
		return &apiError{
			Status:        fiber.StatusServiceUnavailable,
			Message:       "Earthquake data unavailable",
			Code:          "unavailable",
			LastError:     unavailable.LastError,
			withLastError: true,
		}
	case errors.Is(err, assistant.ErrNotConfigured), errors.Is(err, mailer.ErrNotConfigured):
		return &apiError{Status: fiber.StatusServiceUnavailable, Message: err.Error(), Code: "not_configured"}
	case errors.As(err, &assistantErr):
		return &apiError{Status: fiber.StatusBadGateway, Message: "AI service unavailable", Code: "upstream_error", Details: upstreamDetail(assistantErr.Err)}
	case errors.As(err, &mailerErr):
		return &apiError{Status: fiber.StatusBadGateway, Message: "Email service unavailable", Code: "upstream_error", Details: upstreamDetail(mailerErr.Err)}
	case errors.As(err, &fiberErr):
		return &apiError{Status: fiberErr.Code, Message: fiberErr.Message, Code: codeForStatus(fiberErr.Code)}
	default:
		return &apiError{Status: fiber.StatusInternalServerError, Message: "internal server error", Code: "internal_error"}
	}
}

// upstreamDetail reduces an upstream failure to a fixed category. Raw error
// text can quote request URLs and is only logged.
func upstreamDetail(err error) string {
	var (
		status *upstream.StatusError
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream request timed out"
	case errors.Is(err, upstream.ErrCircuitOpen):
		return "upstream temporarily disabled after repeated failures"
	case errors.As(err, &status):
		return fmt.Sprintf("upstream returned status %d", status.Code)
	case errors.As(err, &urlErr):
		return "upstream unreachable"
	default:
		return "upstream returned an invalid response"
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_request"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	}
	if status >= 500 {
		return "internal_error"
	}
	return "error"
}

// ErrorHandler is the centralized Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	e := toAPIError(err)
	switch {
	case e.Status >= http.StatusInternalServerError && e.Code == "internal_error":
		logging.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	case e.Status == http.StatusBadGateway:
		logging.Warn().Err(err).Str("path", c.Path()).Str("code", e.Code).Msg("upstream failure")
	}

	if e.withLastError {
		return c.Status(e.Status).JSON(fiber.Map{
			"error":     e.Message,
			"code":      e.Code,
			"lastError": e.LastError,
		})
	}
	return c.Status(e.Status).JSON(e)
}
