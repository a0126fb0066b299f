package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kinview-backend/internal/chart"
	"github.com/yungbote/kinview-backend/internal/http/response"
	"github.com/yungbote/kinview-backend/internal/person"
	"github.com/yungbote/kinview-backend/internal/platform/apierr"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
	"github.com/yungbote/kinview-backend/internal/session"
	"github.com/yungbote/kinview-backend/internal/tree"
)

// TreeHandler serves the tree forest and the couple operations on it.
type TreeHandler struct {
	log      *logger.Logger
	sessions *SessionHandler
	charts   *chart.Renderer
}

// NewTreeHandler serves charts only when charts is non-nil.
func NewTreeHandler(log *logger.Logger, sessions *SessionHandler, charts *chart.Renderer) *TreeHandler {
	return &TreeHandler{log: log.With("handler", "TreeHandler"), sessions: sessions, charts: charts}
}

var errInvalidDirection = apierr.BadRequest("invalid_direction", errors.New("direction must be ancestors or descendants"))

type expandRequest struct {
	PersonID    person.ID `json:"person_id" binding:"required"`
	Direction   string    `json:"direction" binding:"required"`
	Generations int       `json:"generations"`
}

type collapseRequest struct {
	FocusID   person.ID `json:"focus_id" binding:"required"`
	PartnerID person.ID `json:"partner_id"`
	ChildID   person.ID `json:"child_id"`
	Prefix    string    `json:"prefix"`
}

type partnerRequest struct {
	PersonID  person.ID `json:"person_id" binding:"required"`
	PartnerID person.ID `json:"partner_id" binding:"required"`
}

func generationsParam(c *gin.Context) (int, error) {
	raw := c.Query("generations")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.BadRequest("invalid_generations", errors.New("generations must be a non-negative integer"))
	}
	return n, nil
}

// GET /v1/sessions/:sid/trees/:direction?generations=N&root=ID
func (h *TreeHandler) Tree(c *gin.Context) {
	dir, node, ok := h.build(c)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"direction": dir, "tree": node})
}

// GET /v1/sessions/:sid/trees/:direction/chart.png
func (h *TreeHandler) Chart(c *gin.Context) {
	if h.charts == nil {
		response.RespondErr(c, apierr.NotFound("charts_disabled", errors.New("chart rendering is not configured")))
		return
	}
	_, node, ok := h.build(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.charts.RenderPNG(&buf, node); err != nil {
		if errors.Is(err, chart.ErrTooLarge) {
			response.RespondErr(c, apierr.New(http.StatusUnprocessableEntity, "chart_too_large", err))
			return
		}
		h.log.Error("chart render failed", "error", err)
		response.RespondErr(c, apierr.New(http.StatusInternalServerError, "chart_failed", err))
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *TreeHandler) build(c *gin.Context) (tree.Direction, *tree.Node, bool) {
	s, ok := h.sessions.session(c)
	if !ok {
		return "", nil, false
	}
	dir, ok := tree.ParseDirection(c.Param("direction"))
	if !ok {
		response.RespondErr(c, errInvalidDirection)
		return "", nil, false
	}
	gens, err := generationsParam(c)
	if err != nil {
		response.RespondErr(c, err)
		return "", nil, false
	}
	root := person.ID(c.Query("root"))

	var node *tree.Node
	if dir == tree.Up {
		node, err = s.AncestorTree(c.Request.Context(), root, gens)
	} else {
		node, err = s.DescendantTree(c.Request.Context(), root, gens)
	}
	if err != nil {
		response.RespondErr(c, err)
		return "", nil, false
	}
	return dir, node, true
}

// POST /v1/sessions/:sid/expand
func (h *TreeHandler) Expand(c *gin.Context) {
	s, ok := h.sessions.session(c)
	if !ok {
		return
	}
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	dir, ok := tree.ParseDirection(req.Direction)
	if !ok {
		response.RespondErr(c, errInvalidDirection)
		return
	}
	var (
		node *tree.Node
		err  error
	)
	if dir == tree.Up {
		node, err = s.ExpandAncestors(c.Request.Context(), req.PersonID, req.Generations)
	} else {
		node, err = s.ExpandDescendants(c.Request.Context(), req.PersonID, req.Generations)
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.log.Debug("tree expanded", "session_id", s.ID, "person_id", req.PersonID, "direction", dir)
	response.RespondOK(c, gin.H{"direction": dir, "tree": node})
}

// POST /v1/sessions/:sid/collapse
func (h *TreeHandler) Collapse(c *gin.Context) {
	h.couple(c, (*session.Session).Collapse)
}

// POST /v1/sessions/:sid/uncollapse
func (h *TreeHandler) Uncollapse(c *gin.Context) {
	h.couple(c, (*session.Session).Uncollapse)
}

type coupleOp func(s *session.Session, ctx context.Context, prefix string, focus, partner, child person.ID) (*session.CoupleState, error)

func (h *TreeHandler) couple(c *gin.Context, op coupleOp) {
	s, ok := h.sessions.session(c)
	if !ok {
		return
	}
	var req collapseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	state, err := op(s, c.Request.Context(), req.Prefix, req.FocusID, req.PartnerID, req.ChildID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"couple": state})
}

// POST /v1/sessions/:sid/partner
func (h *TreeHandler) ChangePartner(c *gin.Context) {
	s, ok := h.sessions.session(c)
	if !ok {
		return
	}
	var req partnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_request", err))
		return
	}
	if err := s.ChangePartner(c.Request.Context(), req.PersonID, req.PartnerID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"person_id": req.PersonID, "preferred_spouse_id": req.PartnerID})
}
