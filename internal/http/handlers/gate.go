package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/assessment-backend/internal/http/response"
	"github.com/lumenlearn/assessment-backend/internal/platform/ctxutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

type GateHandler struct {
	gates services.GateService
}

func NewGateHandler(gates services.GateService) *GateHandler {
	return &GateHandler{gates: gates}
}

// GET /api/concepts/:id/gate
func (h *GateHandler) Status(c *gin.Context) {
	conceptID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	res, err := h.gates.Status(dbctx.Context{Ctx: c.Request.Context()}, userID, conceptID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/gates?knowledge_area=...
func (h *GateHandler) BulkStatus(c *gin.Context) {
	area := c.Query("knowledge_area")
	if area == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingArea)
		return
	}
	userID := ctxutil.UserID(c.Request.Context())
	res, err := h.gates.BulkStatus(dbctx.Context{Ctx: c.Request.Context()}, userID, area)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, res)
}
