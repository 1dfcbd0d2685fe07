package api

import (
	"errors"
	"net/http"

	"github.com/taskdeck/taskdeck-api/internal/api/shared"
	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/service/auth"
	"github.com/taskdeck/taskdeck-api/internal/service/authz"
	"github.com/taskdeck/taskdeck-api/internal/service/sharing"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// Stable machine-readable reason codes used in error responses.
const (
	CodeValidationError = "validation_error"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUserNotFound    = "user_not_found"
	CodeInternalError   = "internal_error"
)

// MapError maps an internal error to the HTTP status, reason code and safe
// client message. Raw error strings never reach the client; whatever detail
// is useful goes to the logs via RespondWithErrorAndLog.
//
// Conflicts deliberately map to 400 rather than 409 to match the error
// contract of the clients.
func MapError(err error) (int, string, string) {
	switch {
	// Authentication
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeUnauthenticated, "Invalid email or password"
	case errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, CodeUnauthenticated, "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, CodeUnauthenticated, "Invalid token"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrRevokedRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized, CodeUnauthenticated, "Invalid refresh token"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthenticated, "Authentication required"

	// Authorization: shared members can see the task but not mutate it.
	case errors.Is(err, authz.ErrOwnerOnlyCompletion):
		return http.StatusForbidden, CodeForbidden,
			"Only the task owner may change completion status"
	case errors.Is(err, authz.ErrNotOwner):
		return http.StatusForbidden, CodeForbidden,
			"Only the task owner may perform this action"

	// Not found: covers both truly absent tasks and tasks the caller has no
	// relation to, with a byte-identical response.
	case errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound, CodeNotFound, "Task not found"

	// Share-target resolution
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusBadRequest, CodeUserNotFound, "User not found"

	// Conflicts
	case errors.Is(err, sharing.ErrSelfShare):
		return http.StatusBadRequest, CodeConflict, "Cannot share a task with its owner"
	case errors.Is(err, store.ErrAlreadyShared):
		return http.StatusBadRequest, CodeConflict, "Task is already shared with this user"
	case errors.Is(err, store.ErrNotShared):
		return http.StatusBadRequest, CodeConflict, "Task is not shared with this user"
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusBadRequest, CodeConflict, "Email already registered"

	// Bad input
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest, CodeValidationError, "Invalid input"

	default:
		return http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred"
	}
}

// HandleAPIError maps the error and writes the response. userMessage, when
// non-empty, overrides the mapped client message. Domain validation errors
// contribute a per-field entry when field information is available.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status, code, message := MapError(err)
	if userMessage != "" {
		message = userMessage
	}

	opts := []shared.ResponseOption{}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		opts = append(opts, shared.WithFields(map[string]string{
			validationErr.Field: validationErr.Message,
		}))
	}

	shared.RespondWithErrorAndLog(w, r, status, code, message, err, opts...)
}
