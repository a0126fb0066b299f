package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/events"
	"github.com/yungbote/kinview-backend/internal/http/response"
	"github.com/yungbote/kinview-backend/internal/platform/apierr"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

const sseHeartbeat = 15 * time.Second

// RealtimeHandler streams a session's events as server-sent events.
type RealtimeHandler struct {
	log      *logger.Logger
	bus      events.Bus
	sessions *SessionHandler
}

func NewRealtimeHandler(log *logger.Logger, bus events.Bus, sessions *SessionHandler) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), bus: bus, sessions: sessions}
}

// GET /v1/sessions/:sid/events
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	s, ok := h.sessions.session(c)
	if !ok {
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.RespondErr(c, apierr.New(http.StatusInternalServerError, "streaming_unsupported", errors.New("streaming unsupported")))
		return
	}
	ctx := c.Request.Context()
	ch, cancel, err := h.bus.Subscribe(ctx, s.ID)
	if err != nil {
		response.RespondErr(c, apierr.New(http.StatusServiceUnavailable, "events_unavailable", err))
		return
	}
	defer cancel()

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()
	h.log.Debug("SSEStream open", "session_id", s.ID)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("SSEStream closed", "session_id", s.ID, "err", ctx.Err())
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				h.log.Warn("Failed to marshal SSE event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
			flusher.Flush()
			if e.Type == events.SessionClosed {
				return
			}
		}
	}
}
