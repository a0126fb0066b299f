package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/platform/ctxutil"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx JSON response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError aborts the chain. The error is also attached to the context
// so the request log carries it.
func RespondError(c *gin.Context, status int, code string, err error) {
	e := APIError{Message: http.StatusText(status), Code: code}
	if err != nil {
		e.Message = err.Error()
		_ = c.Error(err)
	}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		e.RequestID = td.RequestID
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: e})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
