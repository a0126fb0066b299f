package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/kinview-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxRequestIDLen = 128
)

// AttachTraceContext puts trace and request ids on the request context and
// echoes them as response headers. It runs after otelgin: the server span's
// trace id wins, then a caller-supplied X-Trace-Id, then a fresh uuid.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			TraceID:   headerOr(c, headerTraceID, ""),
			RequestID: headerOr(c, headerRequestID, uuid.NewString()),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		}
		if td.TraceID == "" {
			td.TraceID = uuid.NewString()
		}

		attrs := []attribute.KeyValue{attribute.String("http.request_id", td.RequestID)}
		if sid := c.Param("sid"); sid != "" {
			attrs = append(attrs, attribute.String("kinview.session_id", sid))
		}
		span.SetAttributes(attrs...)

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Header(headerTraceID, td.TraceID)
		c.Header(headerRequestID, td.RequestID)
		c.Next()
	}
}

// headerOr returns a trimmed header value, or def when it is missing or too
// long to be an id.
func headerOr(c *gin.Context, name, def string) string {
	v := strings.TrimSpace(c.GetHeader(name))
	if v == "" || len(v) > maxRequestIDLen || strings.ContainsAny(v, "\r\n") {
		return def
	}
	return v
}
