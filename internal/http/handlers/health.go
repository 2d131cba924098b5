package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/assessment-backend/internal/http/response"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// GET /healthz
func (h *HealthHandler) Check(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok"})
}
