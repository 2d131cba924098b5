package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/assessment/selector"
	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

type StartSessionInput struct {
	Kind           string `json:"kind"`
	KnowledgeArea  string `json:"knowledge_area"`
	QuestionTarget int    `json:"question_target"`
	Strategy       string `json:"strategy"`
	Familiarity    string `json:"familiarity,omitempty"`
}

type StartSessionResult struct {
	Session *types.AssessmentSession `json:"session"`
	Resumed bool                     `json:"resumed"`
}

type SessionService interface {
	// Start resumes a fresh open session for the same (user, area) scope,
	// atomically expires a stale one, or creates a new session. A fresh
	// open session of a different kind is a conflict. Belief rows for the
	// area are initialized as a side effect.
	Start(dbc dbctx.Context, userID uuid.UUID, in StartSessionInput) (*StartSessionResult, error)
	Get(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error)
	// Pause and Resume toggle the orthogonal pause flag on an open quiz.
	Pause(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error)
	Resume(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error)
	// Reset terminates a diagnostic session, re-initializes the beliefs
	// in its scope, and opens a fresh session. The old session stays
	// terminal; it is never resurrected.
	Reset(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error)
}

type sessionService struct {
	db          *gorm.DB
	cfg         EngineConfig
	sessionRepo repos.SessionRepo
	beliefRepo  repos.BeliefStateRepo
	conceptRepo repos.ConceptRepo
	log         *logger.Logger
}

func NewSessionService(db *gorm.DB, cfg EngineConfig, sessionRepo repos.SessionRepo, beliefRepo repos.BeliefStateRepo, conceptRepo repos.ConceptRepo, baseLog *logger.Logger) SessionService {
	return &sessionService{
		db:          db,
		cfg:         cfg,
		sessionRepo: sessionRepo,
		beliefRepo:  beliefRepo,
		conceptRepo: conceptRepo,
		log:         baseLog.With("service", "SessionService"),
	}
}

func (s *sessionService) Start(dbc dbctx.Context, userID uuid.UUID, in StartSessionInput) (*StartSessionResult, error) {
	if userID == uuid.Nil {
		return nil, core.ValidationError("missing user id")
	}
	if in.Kind != types.SessionKindDiagnostic && in.Kind != types.SessionKindQuiz {
		return nil, core.ValidationError(fmt.Sprintf("unknown session kind %q", in.Kind))
	}
	if in.KnowledgeArea == "" {
		return nil, core.ValidationError("missing knowledge area")
	}
	if in.Strategy == "" {
		in.Strategy = string(selector.StrategyMaxInfoGain)
	}
	if _, err := selector.ParseStrategy(in.Strategy); err != nil {
		return nil, err
	}
	if in.QuestionTarget < 0 {
		return nil, core.ValidationError("question target must be non-negative")
	}
	prior, err := PriorForFamiliarity(in.Familiarity)
	if err != nil {
		return nil, err
	}

	var out *StartSessionResult
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		existing, err := s.sessionRepo.GetOpenByUserAndAreaForUpdate(txc, userID, in.KnowledgeArea)
		if err != nil {
			return err
		}
		if existing != nil {
			if !s.isStale(existing, time.Now().UTC()) {
				if existing.Kind != in.Kind {
					return core.ConflictError(fmt.Sprintf("an open %s session already covers this knowledge area", existing.Kind))
				}
				out = &StartSessionResult{Session: existing, Resumed: true}
				return nil
			}
			now := time.Now().UTC()
			existing.Status = types.SessionStatusExpired
			existing.EndedAt = &now
			if err := s.sessionRepo.UpdateVersioned(txc, existing); err != nil {
				return err
			}
		}

		concepts, err := s.conceptRepo.ListByKnowledgeArea(txc, in.KnowledgeArea)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(concepts))
		for _, c := range concepts {
			ids = append(ids, c.ID)
		}
		if _, err := s.beliefRepo.InitializeMissing(txc, userID, ids, prior); err != nil {
			return err
		}

		sess := &types.AssessmentSession{
			UserID:         userID,
			Kind:           in.Kind,
			KnowledgeArea:  in.KnowledgeArea,
			Status:         types.SessionStatusInProgress,
			Strategy:       in.Strategy,
			QuestionTarget: in.QuestionTarget,
		}
		if err := s.sessionRepo.Create(txc, sess); err != nil {
			return err
		}
		out = &StartSessionResult{Session: sess}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sessionService) Get(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	sess, err := s.sessionRepo.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, core.NotFoundError("session not found")
	}
	return sess, nil
}

func (s *sessionService) Pause(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	return s.setPaused(dbc, userID, sessionID, true)
}

func (s *sessionService) Resume(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	return s.setPaused(dbc, userID, sessionID, false)
}

func (s *sessionService) setPaused(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID, paused bool) (*types.AssessmentSession, error) {
	var out *types.AssessmentSession
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		sess, err := s.sessionRepo.GetByIDForUpdate(txc, sessionID)
		if err != nil {
			return err
		}
		if sess == nil || sess.UserID != userID {
			return core.NotFoundError("session not found")
		}
		if sess.Kind != types.SessionKindQuiz {
			return core.ValidationError("only quiz sessions can be paused")
		}
		if !sess.Open() {
			return core.ConflictError("session has ended")
		}
		sess.IsPaused = paused
		sess.LastActivityAt = time.Now().UTC()
		if err := s.sessionRepo.UpdateVersioned(txc, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sessionService) Reset(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID) (*types.AssessmentSession, error) {
	var out *types.AssessmentSession
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		sess, err := s.sessionRepo.GetByIDForUpdate(txc, sessionID)
		if err != nil {
			return err
		}
		if sess == nil || sess.UserID != userID {
			return core.NotFoundError("session not found")
		}
		if sess.Kind != types.SessionKindDiagnostic {
			return core.ValidationError("only diagnostic sessions can be reset")
		}

		if sess.Open() {
			sess.Status = types.SessionStatusReset
			now := time.Now().UTC()
			sess.EndedAt = &now
			if err := s.sessionRepo.UpdateVersioned(txc, sess); err != nil {
				return err
			}
		}

		concepts, err := s.conceptRepo.ListByKnowledgeArea(txc, sess.KnowledgeArea)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(concepts))
		for _, c := range concepts {
			ids = append(ids, c.ID)
		}
		if err := s.beliefRepo.ResetToPrior(txc, userID, ids, repos.UninformativePrior); err != nil {
			return err
		}

		fresh := &types.AssessmentSession{
			UserID:         userID,
			Kind:           sess.Kind,
			KnowledgeArea:  sess.KnowledgeArea,
			Status:         types.SessionStatusInProgress,
			Strategy:       sess.Strategy,
			QuestionTarget: sess.QuestionTarget,
		}
		if err := s.sessionRepo.Create(txc, fresh); err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isStale applies the kind-specific inactivity timeout.
func (s *sessionService) isStale(sess *types.AssessmentSession, now time.Time) bool {
	switch sess.Kind {
	case types.SessionKindDiagnostic:
		return now.Sub(sess.StartedAt) > s.cfg.DiagnosticTimeout
	default:
		return now.Sub(sess.LastActivityAt) > s.cfg.QuizTimeout
	}
}
