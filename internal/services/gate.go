package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/assessment/gate"
	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

// BulkGateStatus aggregates gate results over a concept scope.
type BulkGateStatus struct {
	KnowledgeArea string        `json:"knowledge_area"`
	UnlockedCount int           `json:"unlocked_count"`
	LockedCount   int           `json:"locked_count"`
	Statuses      []gate.Result `json:"statuses"`
}

type GateService interface {
	Status(dbc dbctx.Context, userID uuid.UUID, conceptID uuid.UUID) (*gate.Result, error)
	BulkStatus(dbc dbctx.Context, userID uuid.UUID, area string) (*BulkGateStatus, error)
	// EvaluateSet gates many concepts off two batched reads (edges,
	// prerequisite beliefs); never one query per concept.
	EvaluateSet(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID) (map[uuid.UUID]gate.Result, error)
}

type gateService struct {
	db          *gorm.DB
	cfg         gate.Config
	beliefRepo  repos.BeliefStateRepo
	conceptRepo repos.ConceptRepo
	log         *logger.Logger
}

func NewGateService(db *gorm.DB, cfg gate.Config, beliefRepo repos.BeliefStateRepo, conceptRepo repos.ConceptRepo, baseLog *logger.Logger) GateService {
	return &gateService{
		db:          db,
		cfg:         cfg,
		beliefRepo:  beliefRepo,
		conceptRepo: conceptRepo,
		log:         baseLog.With("service", "GateService"),
	}
}

func (s *gateService) Status(dbc dbctx.Context, userID uuid.UUID, conceptID uuid.UUID) (*gate.Result, error) {
	if userID == uuid.Nil || conceptID == uuid.Nil {
		return nil, core.ValidationError("missing user or concept id")
	}
	concepts, err := s.conceptRepo.GetByIDs(dbc, []uuid.UUID{conceptID})
	if err != nil {
		return nil, err
	}
	if len(concepts) == 0 {
		return nil, core.NotFoundError("concept not found")
	}
	results, err := s.EvaluateSet(dbc, userID, []uuid.UUID{conceptID})
	if err != nil {
		return nil, err
	}
	res := results[conceptID]
	return &res, nil
}

func (s *gateService) BulkStatus(dbc dbctx.Context, userID uuid.UUID, area string) (*BulkGateStatus, error) {
	if userID == uuid.Nil {
		return nil, core.ValidationError("missing user id")
	}
	if area == "" {
		return nil, core.ValidationError("missing knowledge area")
	}
	concepts, err := s.conceptRepo.ListByKnowledgeArea(dbc, area)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(concepts))
	for _, c := range concepts {
		ids = append(ids, c.ID)
	}
	results, err := s.EvaluateSet(dbc, userID, ids)
	if err != nil {
		return nil, err
	}

	out := &BulkGateStatus{KnowledgeArea: area}
	for _, id := range ids {
		res := results[id]
		if res.Unlocked {
			out.UnlockedCount++
		} else {
			out.LockedCount++
		}
		out.Statuses = append(out.Statuses, res)
	}
	return out, nil
}

func (s *gateService) EvaluateSet(dbc dbctx.Context, userID uuid.UUID, conceptIDs []uuid.UUID) (map[uuid.UUID]gate.Result, error) {
	out := make(map[uuid.UUID]gate.Result, len(conceptIDs))
	if len(conceptIDs) == 0 {
		return out, nil
	}

	edges, err := s.conceptRepo.EdgesInto(dbc, conceptIDs)
	if err != nil {
		return nil, err
	}

	edgesByConcept := make(map[uuid.UUID][]gate.Edge)
	prereqIDs := make([]uuid.UUID, 0, len(edges))
	seen := make(map[uuid.UUID]bool)
	for _, e := range edges {
		edgesByConcept[e.ConceptID] = append(edgesByConcept[e.ConceptID], gate.Edge{
			PrereqConceptID: e.PrereqConceptID,
			EdgeType:        e.EdgeType,
			Strength:        e.Strength,
		})
		if !seen[e.PrereqConceptID] {
			seen[e.PrereqConceptID] = true
			prereqIDs = append(prereqIDs, e.PrereqConceptID)
		}
	}

	beliefs := map[uuid.UUID]core.BeliefParams{}
	if len(prereqIDs) > 0 {
		rows, err := s.beliefRepo.GetByUserAndConcepts(dbc, userID, prereqIDs)
		if err != nil {
			return nil, err
		}
		beliefs = beliefParams(rows)
	}

	for _, id := range conceptIDs {
		out[id] = gate.Evaluate(s.cfg, id, edgesByConcept[id], beliefs)
	}
	return out, nil
}

func beliefParams(rows map[uuid.UUID]*types.BeliefState) map[uuid.UUID]core.BeliefParams {
	out := make(map[uuid.UUID]core.BeliefParams, len(rows))
	for id, row := range rows {
		out[id] = core.BeliefParams{
			Alpha:         row.Alpha,
			Beta:          row.Beta,
			ResponseCount: row.ResponseCount,
		}
	}
	return out
}
