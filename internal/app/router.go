package app

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lumenlearn/assessment-backend/internal/http/handlers"
	"github.com/lumenlearn/assessment-backend/internal/http/middleware"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	Sessions    *handlers.SessionHandler
	Assessments *handlers.AssessmentHandler
	Gates       *handlers.GateHandler
	Beliefs     *handlers.BeliefHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		Health:      handlers.NewHealthHandler(),
		Sessions:    handlers.NewSessionHandler(s.Sessions),
		Assessments: handlers.NewAssessmentHandler(s.Assessments),
		Gates:       handlers.NewGateHandler(s.Gates),
		Beliefs:     handlers.NewBeliefHandler(s.Beliefs),
	}
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("assessment-backend"))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.GET("/healthz", h.Health.Check)

	auth := middleware.NewAuthMiddleware(log, cfg.JWTSecretKey)
	api := router.Group("/api", auth.RequireAuth())
	{
		api.POST("/sessions", h.Sessions.Start)
		api.GET("/sessions/:id", h.Sessions.Get)
		api.POST("/sessions/:id/pause", h.Sessions.Pause)
		api.POST("/sessions/:id/resume", h.Sessions.Resume)
		api.POST("/sessions/:id/reset", h.Sessions.Reset)
		api.POST("/sessions/:id/answers", h.Assessments.Submit)
		api.GET("/sessions/:id/next", h.Assessments.Next)

		api.GET("/concepts/:id/gate", h.Gates.Status)
		api.GET("/gates", h.Gates.BulkStatus)

		api.POST("/beliefs/initialize", h.Beliefs.Initialize)
	}
	return router
}
