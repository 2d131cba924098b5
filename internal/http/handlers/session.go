package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/http/response"
	"github.com/lumenlearn/assessment-backend/internal/platform/ctxutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req services.StartSessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	res, err := h.sessions.Start(dbctx.Context{Ctx: c.Request.Context()}, userID, req)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if res.Resumed {
		response.RespondOK(c, res)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	sess, err := h.sessions.Get(dbctx.Context{Ctx: c.Request.Context()}, userID, sessionID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

// POST /api/sessions/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	h.togglePause(c, h.sessions.Pause)
}

// POST /api/sessions/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	h.togglePause(c, h.sessions.Resume)
}

// POST /api/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	sess, err := h.sessions.Reset(dbctx.Context{Ctx: c.Request.Context()}, userID, sessionID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": sess})
}

func (h *SessionHandler) togglePause(c *gin.Context, op func(dbctx.Context, uuid.UUID, uuid.UUID) (*types.AssessmentSession, error)) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	sess, err := op(dbctx.Context{Ctx: c.Request.Context()}, userID, sessionID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return uuid.Nil, false
	}
	return id, true
}
