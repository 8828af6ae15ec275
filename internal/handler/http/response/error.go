package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, lock.ErrConcurrentRun):
		Conflict(w, "A reconciliation run is already in progress")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
