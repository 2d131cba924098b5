package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/assessment-backend/internal/http/response"
	"github.com/lumenlearn/assessment-backend/internal/platform/ctxutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

type AssessmentHandler struct {
	assessments services.AssessmentService
}

func NewAssessmentHandler(assessments services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// POST /api/sessions/:id/answers
func (h *AssessmentHandler) Submit(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.SubmitAnswerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.SessionID = sessionID
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	userID := ctxutil.UserID(c.Request.Context())
	res, err := h.assessments.SubmitAnswer(dbctx.Context{Ctx: c.Request.Context()}, userID, req)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/sessions/:id/next
func (h *AssessmentHandler) Next(c *gin.Context) {
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	res, err := h.assessments.SelectNextQuestion(dbctx.Context{Ctx: c.Request.Context()}, userID, sessionID, c.Query("strategy"))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, res)
}
