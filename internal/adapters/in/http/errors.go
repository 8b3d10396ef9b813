package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"orderflow/internal/auth"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeInvalidVersion    = "invalid_version"
	CodeUnauthorized      = "unauthorized"
	CodePermissionDenied  = "permission_denied"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeStaleState        = "stale_state"
	CodeInternal          = "internal"
)

// classify maps an error to its HTTP status and code. Stale state comes
// before permission so a client acting on an old snapshot is told to refetch.
func classify(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, errs.ErrStaleState):
		return http.StatusConflict, CodeStaleState
	case errors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden, CodePermissionDenied
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, errs.ErrVersionIsInvalid):
		return http.StatusBadRequest, CodeInvalidVersion
	case errs.IsValidation(err):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.As(err, &he):
		return he.Code, strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_")
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// ErrorHandler renders errors as ErrorResponse. Internal errors are logged
// and their text is not sent to the client.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code := classify(err)
		message := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
			message = http.StatusText(status)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Code: code, Message: message})
		}
		if writeErr != nil {
			logger.Warn("write error response", "error", writeErr)
		}
	}
}
