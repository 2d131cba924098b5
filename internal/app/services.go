package app

import (
	"gorm.io/gorm"

	"github.com/lumenlearn/assessment-backend/internal/clients/redis"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

type Services struct {
	Beliefs     services.BeliefService
	Gates       services.GateService
	Sessions    services.SessionService
	Assessments services.AssessmentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, cache *redis.Cache) Services {
	beliefs := services.NewBeliefService(db, r.Beliefs, r.Concepts, log)
	gates := services.NewGateService(db, cfg.Engine.Gate, r.Beliefs, r.Concepts, log)
	sessions := services.NewSessionService(db, cfg.Engine, r.Sessions, r.Beliefs, r.Concepts, log)
	assessments := services.NewAssessmentService(db, cfg.Engine, r.Beliefs, r.Concepts, r.Questions, r.Sessions, r.Answers, gates, cache, log)
	return Services{
		Beliefs:     beliefs,
		Gates:       gates,
		Sessions:    sessions,
		Assessments: assessments,
	}
}
