package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type testEnv struct {
	db *gorm.DB

	beliefRepo  repos.BeliefStateRepo
	conceptRepo repos.ConceptRepo
	sessionRepo repos.SessionRepo
	answerRepo  repos.AnswerEventRepo

	beliefs     BeliefService
	gates       GateService
	sessions    SessionService
	assessments AssessmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.Concept{},
		&types.ConceptEdge{},
		&types.Question{},
		&types.QuestionConcept{},
		&types.BeliefState{},
		&types.AnswerEvent{},
		&types.AssessmentSession{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log := logger.NewNop()
	cfg := DefaultEngineConfig()
	beliefRepo := repos.NewBeliefStateRepo(db, log)
	conceptRepo := repos.NewConceptRepo(db, log)
	questionRepo := repos.NewQuestionRepo(db, log)
	sessionRepo := repos.NewSessionRepo(db, log)
	answerRepo := repos.NewAnswerEventRepo(db, log)
	gates := NewGateService(db, cfg.Gate, beliefRepo, conceptRepo, log)

	return &testEnv{
		db:          db,
		beliefRepo:  beliefRepo,
		conceptRepo: conceptRepo,
		sessionRepo: sessionRepo,
		answerRepo:  answerRepo,
		beliefs:     NewBeliefService(db, beliefRepo, conceptRepo, log),
		gates:       gates,
		sessions:    NewSessionService(db, cfg, sessionRepo, beliefRepo, conceptRepo, log),
		assessments: NewAssessmentService(db, cfg, beliefRepo, conceptRepo, questionRepo, sessionRepo, answerRepo, gates, nil, log),
	}
}

func (e *testEnv) ctx() dbctx.Context {
	return dbctx.New(context.Background())
}

func (e *testEnv) seedConcept(t *testing.T, area, name string) uuid.UUID {
	t.Helper()
	row := &types.Concept{
		ID:            uuid.New(),
		Name:          name,
		KnowledgeArea: area,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := e.db.Create(row).Error; err != nil {
		t.Fatalf("seed concept: %v", err)
	}
	return row.ID
}

func (e *testEnv) seedEdge(t *testing.T, prereq, concept uuid.UUID, edgeType string, strength float64) {
	t.Helper()
	row := &types.ConceptEdge{
		ID:              uuid.New(),
		PrereqConceptID: prereq,
		ConceptID:       concept,
		EdgeType:        edgeType,
		Strength:        strength,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.db.Create(row).Error; err != nil {
		t.Fatalf("seed edge: %v", err)
	}
}

func (e *testEnv) seedQuestion(t *testing.T, area string, correct int, concepts ...uuid.UUID) uuid.UUID {
	t.Helper()
	options, err := json.Marshal([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	row := &types.Question{
		ID:             uuid.New(),
		KnowledgeArea:  area,
		Prompt:         "which one",
		Options:        options,
		CorrectOption:  correct,
		Difficulty:     0,
		Discrimination: 1,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := e.db.Create(row).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}
	for _, cid := range concepts {
		link := &types.QuestionConcept{
			ID:         uuid.New(),
			QuestionID: row.ID,
			ConceptID:  cid,
			Relevance:  1,
			CreatedAt:  time.Now().UTC(),
		}
		if err := e.db.Create(link).Error; err != nil {
			t.Fatalf("seed question concept: %v", err)
		}
	}
	return row.ID
}

func (e *testEnv) seedSession(t *testing.T, userID uuid.UUID, kind, area string, target int) *types.AssessmentSession {
	t.Helper()
	sess := &types.AssessmentSession{
		UserID:         userID,
		Kind:           kind,
		KnowledgeArea:  area,
		Status:         types.SessionStatusInProgress,
		Strategy:       "max_info_gain",
		QuestionTarget: target,
	}
	if err := e.sessionRepo.Create(e.ctx(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}
