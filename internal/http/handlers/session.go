package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/http/response"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/apierr"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
	"github.com/yungbote/kinview-backend/internal/session"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions *session.Registry
}

func NewSessionHandler(log *logger.Logger, sessions *session.Registry) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: sessions}
}

type subjectRequest struct {
	SubjectID person.ID `json:"subject_id" binding:"required"`
}

type sessionResponse struct {
	SessionID string      `json:"session_id"`
	Subject   person.View `json:"subject"`
}

// session resolves :sid or writes the error envelope.
func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("sid"))
	if err != nil {
		response.RespondErr(c, err)
		return nil, false
	}
	return s, true
}

// POST /v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	s, rec, err := h.sessions.Create(c.Request.Context(), req.SubjectID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, sessionResponse{SessionID: s.ID, Subject: rec.View()})
}

// DELETE /v1/sessions/:sid
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Close(c.Param("sid")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /v1/sessions/:sid/subject
func (h *SessionHandler) SwitchSubject(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	rec, err := s.SwitchSubject(c.Request.Context(), req.SubjectID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, sessionResponse{SessionID: s.ID, Subject: rec.View()})
}

// GET /v1/sessions/:sid/people/:pid?relations=parents,children
func (h *SessionHandler) GetPerson(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	rec, err := s.Person(c.Request.Context(), person.ID(c.Param("pid")), person.ParseRichness(c.Query("relations")))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"person": rec.View()})
}

// POST /v1/sessions/:sid/people/:pid/brick-wall
func (h *SessionHandler) ToggleBrickWall(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id := person.ID(c.Param("pid"))
	on, err := s.ToggleBrickWall(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"person_id": id, "brick_wall": on})
}
