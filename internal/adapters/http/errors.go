package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/rihla/internal/adapters/transport"
	"github.com/samirrijal/rihla/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status     int      `json:"status"`
	Code       string   `json:"code"`    // bad_request, not_found, conflict, ...
	Message    string   `json:"message"` // Human-readable message
	Violations []string `json:"violations,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errBadGateway returns a 502 error for upstream transport failures.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errorStatus maps a domain or transport error to a status and code.
func errorStatus(err error) (int, string) {
	var se *transport.StatusError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTripNotFound),
		errors.Is(err, domain.ErrClassNotFound):
		return 404, "not_found"
	case errors.Is(err, domain.ErrSessionClosed):
		return 410, "gone"
	case errors.Is(err, domain.ErrBookingInFlight),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrNoTicketOrder),
		errors.Is(err, domain.ErrStaleResponse):
		return 409, "conflict"
	case errors.Is(err, domain.ErrValidation):
		return 400, "bad_request"
	case errors.Is(err, domain.ErrAuthMissing):
		return 401, "unauthorized"
	case errors.As(err, &se):
		return 502, "bad_gateway"
	}
	return 500, "internal_error"
}

// errFrom writes the APIError for err.
func errFrom(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status >= 500 {
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	} else {
		LoggerFromCtx(c.UserContext()).Debug("request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	}

	reqID, _ := c.Locals("requestid").(string)
	apiErr := APIError{Status: status, Code: code, Message: err.Error(), RequestID: reqID}
	var f *domain.Failure
	if errors.As(err, &f) {
		apiErr.Violations = f.Violations
	}
	return c.Status(status).JSON(apiErr)
}
