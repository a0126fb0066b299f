package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/couple"
	"github.com/yungbote/kinview-backend/internal/loader"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/apierr"
	"github.com/yungbote/kinview-backend/internal/session"
	"github.com/yungbote/kinview-backend/internal/tree"
)

// Classify maps a domain error to an HTTP status and error code. Anything
// unrecognised coming out of a load is treated as an upstream failure.
func Classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request_too_large"
	}
	if ae, ok := apierr.As(err); ok {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ae.Code
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, loader.ErrNotFound):
		return http.StatusNotFound, "person_not_found"
	case errors.Is(err, tree.ErrRootNotLoaded):
		return http.StatusNotFound, "root_not_loaded"
	case errors.Is(err, session.ErrNoSubject), errors.Is(err, person.ErrMissingID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable, "too_many_sessions"
	case errors.Is(err, couple.ErrPartnerInconsistency):
		return http.StatusConflict, "partner_inconsistency"
	case errors.Is(err, couple.ErrInvalidCouple):
		return http.StatusInternalServerError, "invalid_couple"
	case errors.Is(err, context.Canceled):
		return 499, "client_closed_request"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

// RespondErr writes err in the error envelope using Classify.
func RespondErr(c *gin.Context, err error) {
	status, code := Classify(err)
	RespondError(c, status, code, err)
}
