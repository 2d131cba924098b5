package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type BeliefService interface {
	// Initialize lazily creates belief rows for a learner over a
	// knowledge area or an explicit concept list, returning how many
	// rows were created. Safe to call repeatedly.
	Initialize(dbc dbctx.Context, userID uuid.UUID, area string, conceptIDs []uuid.UUID, familiarity string) (int, error)
}

// PriorForFamiliarity maps a declared familiarity level onto a Beta
// prior. Unknown levels are a validation error.
func PriorForFamiliarity(level string) (repos.Prior, error) {
	switch level {
	case "", "none":
		return repos.UninformativePrior, nil
	case "some":
		return repos.Prior{Alpha: 2, Beta: 1.5}, nil
	case "strong":
		return repos.Prior{Alpha: 3, Beta: 1.5}, nil
	}
	return repos.Prior{}, core.ValidationError(fmt.Sprintf("unknown familiarity level %q", level))
}

type beliefService struct {
	db          *gorm.DB
	beliefRepo  repos.BeliefStateRepo
	conceptRepo repos.ConceptRepo
	log         *logger.Logger
}

func NewBeliefService(db *gorm.DB, beliefRepo repos.BeliefStateRepo, conceptRepo repos.ConceptRepo, baseLog *logger.Logger) BeliefService {
	return &beliefService{
		db:          db,
		beliefRepo:  beliefRepo,
		conceptRepo: conceptRepo,
		log:         baseLog.With("service", "BeliefService"),
	}
}

func (s *beliefService) Initialize(dbc dbctx.Context, userID uuid.UUID, area string, conceptIDs []uuid.UUID, familiarity string) (int, error) {
	if userID == uuid.Nil {
		return 0, core.ValidationError("missing user id")
	}
	prior, err := PriorForFamiliarity(familiarity)
	if err != nil {
		return 0, err
	}

	ids := conceptIDs
	if len(ids) == 0 {
		if area == "" {
			return 0, core.ValidationError("initialize requires a knowledge area or concept ids")
		}
		concepts, err := s.conceptRepo.ListByKnowledgeArea(dbc, area)
		if err != nil {
			return 0, err
		}
		for _, c := range concepts {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	created := 0
	err = s.transact(dbc, func(txc dbctx.Context) error {
		var err error
		created, err = s.beliefRepo.InitializeMissing(txc, userID, ids, prior)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug("beliefs initialized", "user_id", userID, "created", created)
	return created, nil
}

func (s *beliefService) transact(dbc dbctx.Context, fn func(dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
