package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlearn/assessment-backend/internal/http/response"
	"github.com/lumenlearn/assessment-backend/internal/platform/ctxutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

var errMissingArea = errors.New("missing knowledge_area")

type BeliefHandler struct {
	beliefs services.BeliefService
}

func NewBeliefHandler(beliefs services.BeliefService) *BeliefHandler {
	return &BeliefHandler{beliefs: beliefs}
}

type initializeBeliefsRequest struct {
	KnowledgeArea string      `json:"knowledge_area"`
	ConceptIDs    []uuid.UUID `json:"concept_ids"`
	Familiarity   string      `json:"familiarity"`
}

// POST /api/beliefs/initialize
func (h *BeliefHandler) Initialize(c *gin.Context) {
	var req initializeBeliefsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	created, err := h.beliefs.Initialize(dbctx.Context{Ctx: c.Request.Context()}, userID, req.KnowledgeArea, req.ConceptIDs, req.Familiarity)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"created": created})
}
