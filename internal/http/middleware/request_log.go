package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/platform/ctxutil"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

// quietRoutes are probes and scrapes; they only log at debug level unless
// they fail.
var quietRoutes = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// RequestLogger writes one line per request after it completes. Event
// streams log when the client disconnects.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched:" + c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		for _, p := range []string{"sid", "pid"} {
			if v := c.Param(p); v != "" {
				kv = append(kv, paramKeys[p], v)
			}
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request failed", kv...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		case quietRoutes[route]:
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

var paramKeys = map[string]string{"sid": "session_id", "pid": "person_id"}
