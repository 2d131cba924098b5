package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/assessment/bayes"
	"github.com/lumenlearn/assessment-backend/internal/assessment/entropy"
	"github.com/lumenlearn/assessment-backend/internal/assessment/selector"
	"github.com/lumenlearn/assessment-backend/internal/clients/redis"
	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/dbctx"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/lumenlearn/assessment-backend/internal/services")

type SubmitAnswerInput struct {
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption int       `json:"selected_option"`
	IdempotencyKey string    `json:"idempotency_key"`
}

type ConceptMastery struct {
	ConceptID  uuid.UUID `json:"concept_id"`
	NewMastery float64   `json:"new_mastery"`
}

type SessionStats struct {
	AnsweredCount  int `json:"answered_count"`
	CorrectCount   int `json:"correct_count"`
	QuestionTarget int `json:"question_target"`
}

type SessionSummary struct {
	SessionID     uuid.UUID `json:"session_id"`
	KnowledgeArea string    `json:"knowledge_area"`
	AnsweredCount int       `json:"answered_count"`
	CorrectCount  int       `json:"correct_count"`
	Accuracy      float64   `json:"accuracy"`
}

type SubmitAnswerResult struct {
	IsCorrect        bool             `json:"is_correct"`
	WasLocked        bool             `json:"was_locked"`
	ConceptsUpdated  []ConceptMastery `json:"concepts_updated"`
	InfoGain         float64          `json:"info_gain"`
	SessionStats     SessionStats     `json:"session_stats"`
	SessionCompleted bool             `json:"session_completed"`
	SessionSummary   *SessionSummary  `json:"session_summary,omitempty"`
}

// NextQuestion is a selected question as exposed to the caller; the
// correct option never leaves the service.
type NextQuestion struct {
	QuestionID    uuid.UUID `json:"question_id"`
	KnowledgeArea string    `json:"knowledge_area"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	Difficulty    float64   `json:"difficulty"`
	Metric        float64   `json:"metric"`
}

type SelectResult struct {
	Question   *NextQuestion        `json:"question,omitempty"`
	NoQuestion *selector.NoQuestion `json:"no_question,omitempty"`
}

type AssessmentService interface {
	// SubmitAnswer applies one graded submission: belief updates for
	// every tested concept, the answer event, and session counters all
	// commit in one transaction. Resubmitting the same idempotency key
	// returns the originally computed result without touching state.
	SubmitAnswer(dbc dbctx.Context, userID uuid.UUID, in SubmitAnswerInput) (*SubmitAnswerResult, error)
	// SelectNextQuestion picks the next question for the session under
	// the given strategy tag (empty means the session's own strategy).
	SelectNextQuestion(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID, strategyTag string) (*SelectResult, error)
}

type assessmentService struct {
	db           *gorm.DB
	cfg          EngineConfig
	beliefRepo   repos.BeliefStateRepo
	conceptRepo  repos.ConceptRepo
	questionRepo repos.QuestionRepo
	sessionRepo  repos.SessionRepo
	answerRepo   repos.AnswerEventRepo
	gates        GateService
	cache        *redis.Cache
	log          *logger.Logger
}

func NewAssessmentService(
	db *gorm.DB,
	cfg EngineConfig,
	beliefRepo repos.BeliefStateRepo,
	conceptRepo repos.ConceptRepo,
	questionRepo repos.QuestionRepo,
	sessionRepo repos.SessionRepo,
	answerRepo repos.AnswerEventRepo,
	gates GateService,
	cache *redis.Cache,
	baseLog *logger.Logger,
) AssessmentService {
	return &assessmentService{
		db:           db,
		cfg:          cfg,
		beliefRepo:   beliefRepo,
		conceptRepo:  conceptRepo,
		questionRepo: questionRepo,
		sessionRepo:  sessionRepo,
		answerRepo:   answerRepo,
		gates:        gates,
		cache:        cache,
		log:          baseLog.With("service", "AssessmentService"),
	}
}

func (s *assessmentService) SubmitAnswer(dbc dbctx.Context, userID uuid.UUID, in SubmitAnswerInput) (*SubmitAnswerResult, error) {
	ctx, span := tracer.Start(dbc.Ctx, "assessment.submit_answer")
	defer span.End()
	dbc.Ctx = ctx
	span.SetAttributes(attribute.String("session_id", in.SessionID.String()))

	if userID == uuid.Nil {
		return nil, core.ValidationError("missing user id")
	}
	if in.SessionID == uuid.Nil || in.QuestionID == uuid.Nil {
		return nil, core.ValidationError("missing session or question id")
	}
	if in.IdempotencyKey == "" {
		return nil, core.ValidationError("missing idempotency key")
	}

	var result *SubmitAnswerResult
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		// The session row lock serializes submissions for one session.
		sess, err := s.sessionRepo.GetByIDForUpdate(txc, in.SessionID)
		if err != nil {
			return err
		}
		if sess == nil || sess.UserID != userID {
			return core.NotFoundError("session not found")
		}

		// Idempotent replay: same key returns the stored result as-is.
		if existing, err := s.answerRepo.GetBySessionAndKey(txc, in.SessionID, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			if existing.QuestionID != in.QuestionID || existing.SelectedOption != in.SelectedOption {
				return core.ConflictError("idempotency key reused with a different payload")
			}
			var stored SubmitAnswerResult
			if err := json.Unmarshal(existing.ResultJSON, &stored); err != nil {
				return fmt.Errorf("decode stored answer result: %w", err)
			}
			result = &stored
			return nil
		}

		if !sess.Open() {
			return core.ConflictError("session is no longer accepting answers")
		}

		question, err := s.questionRepo.GetByID(txc, in.QuestionID)
		if err != nil {
			return err
		}
		if question == nil {
			return core.NotFoundError("question not found")
		}
		var options []string
		if err := json.Unmarshal(question.Options, &options); err != nil {
			return fmt.Errorf("decode question options: %w", err)
		}
		if in.SelectedOption < 0 || in.SelectedOption >= len(options) {
			return core.ValidationError(fmt.Sprintf("selected option %d out of range", in.SelectedOption))
		}

		joins, err := s.questionRepo.ConceptsFor(txc, []uuid.UUID{question.ID})
		if err != nil {
			return err
		}
		conceptIDs := make([]uuid.UUID, 0, len(joins))
		for _, j := range joins {
			conceptIDs = append(conceptIDs, j.ConceptID)
		}

		// A locked concept never blocks submission; it is only flagged.
		wasLocked := false
		if gates, err := s.gates.EvaluateSet(txc, userID, conceptIDs); err != nil {
			return err
		} else {
			for _, res := range gates {
				if !res.Unlocked {
					wasLocked = true
					break
				}
			}
		}

		isCorrect := in.SelectedOption == question.CorrectOption
		slip, guess := selector.ResolveRates(question.SlipRate, question.GuessRate, s.cfg.DefaultSlip, s.cfg.DefaultGuess)

		beliefs, err := s.beliefRepo.LoadForUpdate(txc, userID, conceptIDs, repos.UninformativePrior)
		if err != nil {
			return err
		}

		before := make(map[uuid.UUID]core.BeliefParams, len(conceptIDs))
		after := make(map[uuid.UUID]core.BeliefParams, len(conceptIDs))
		updated := make([]*types.BeliefState, 0, len(conceptIDs))
		masteries := make([]ConceptMastery, 0, len(conceptIDs))
		for _, id := range conceptIDs {
			row, ok := beliefs[id]
			if !ok {
				// Lazy init makes this unreachable for valid concepts;
				// a dangling reference must not sink the other updates.
				s.log.Warn("no belief row for tested concept, skipping", "concept_id", id, "question_id", question.ID)
				continue
			}
			prev := core.BeliefParams{Alpha: row.Alpha, Beta: row.Beta, ResponseCount: row.ResponseCount}
			next, err := bayes.ApplyObservation(prev, isCorrect, slip, guess)
			if err != nil {
				return err
			}
			before[id] = prev
			after[id] = next
			row.Alpha = next.Alpha
			row.Beta = next.Beta
			row.ResponseCount = next.ResponseCount
			updated = append(updated, row)
			masteries = append(masteries, ConceptMastery{ConceptID: id, NewMastery: next.Mean()})
		}
		sort.Slice(masteries, func(i, j int) bool {
			return masteries[i].ConceptID.String() < masteries[j].ConceptID.String()
		})

		if err := s.beliefRepo.PersistAll(txc, updated); err != nil {
			return err
		}

		gain := entropy.InformationGain(before, after, conceptIDs)

		now := time.Now().UTC()
		sess.AnsweredCount++
		if isCorrect {
			sess.CorrectCount++
		}
		sess.LastActivityAt = now

		completed := sess.QuestionTarget > 0 && sess.AnsweredCount == sess.QuestionTarget
		var summary *SessionSummary
		if completed {
			sess.Status = types.SessionStatusCompleted
			sess.EndedAt = &now
			summary = &SessionSummary{
				SessionID:     sess.ID,
				KnowledgeArea: sess.KnowledgeArea,
				AnsweredCount: sess.AnsweredCount,
				CorrectCount:  sess.CorrectCount,
				Accuracy:      float64(sess.CorrectCount) / float64(sess.AnsweredCount),
			}
		}
		if err := s.sessionRepo.UpdateVersioned(txc, sess); err != nil {
			return err
		}

		result = &SubmitAnswerResult{
			IsCorrect:       isCorrect,
			WasLocked:       wasLocked,
			ConceptsUpdated: masteries,
			InfoGain:        gain,
			SessionStats: SessionStats{
				AnsweredCount:  sess.AnsweredCount,
				CorrectCount:   sess.CorrectCount,
				QuestionTarget: sess.QuestionTarget,
			},
			SessionCompleted: completed,
			SessionSummary:   summary,
		}

		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode answer result: %w", err)
		}
		return s.answerRepo.Insert(txc, &types.AnswerEvent{
			SessionID:      sess.ID,
			IdempotencyKey: in.IdempotencyKey,
			UserID:         userID,
			QuestionID:     question.ID,
			SelectedOption: in.SelectedOption,
			IsCorrect:      isCorrect,
			WasLocked:      wasLocked,
			ResultJSON:     raw,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *assessmentService) SelectNextQuestion(dbc dbctx.Context, userID uuid.UUID, sessionID uuid.UUID, strategyTag string) (*SelectResult, error) {
	ctx, span := tracer.Start(dbc.Ctx, "assessment.select_next_question")
	defer span.End()
	dbc.Ctx = ctx

	if userID == uuid.Nil || sessionID == uuid.Nil {
		return nil, core.ValidationError("missing user or session id")
	}

	sess, err := s.sessionRepo.GetByID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, core.NotFoundError("session not found")
	}
	if !sess.Open() {
		return nil, core.ConflictError("session is no longer accepting answers")
	}

	if strategyTag == "" {
		strategyTag = sess.Strategy
	}
	strategy, err := selector.ParseStrategy(strategyTag)
	if err != nil {
		return nil, err
	}

	pool, err := s.loadPool(dbc, sess.KnowledgeArea)
	if err != nil {
		return nil, err
	}

	recentIDs, err := s.answerRepo.ListQuestionIDsBySession(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	recent := make(map[uuid.UUID]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}

	conceptSet := map[uuid.UUID]bool{}
	candidates := make([]selector.Candidate, 0, len(pool))
	byID := make(map[uuid.UUID]pooledQuestion, len(pool))
	answeredPerArea := map[string]int{}
	for _, q := range pool {
		byID[q.ID] = q
		if recent[q.ID] {
			answeredPerArea[q.KnowledgeArea]++
		}
		slip, guess := selector.ResolveRates(q.SlipRate, q.GuessRate, s.cfg.DefaultSlip, s.cfg.DefaultGuess)
		cand := selector.Candidate{
			QuestionID:    q.ID,
			KnowledgeArea: q.KnowledgeArea,
			Difficulty:    q.Difficulty,
			Slip:          slip,
			Guess:         guess,
		}
		for _, c := range q.Concepts {
			cand.ConceptIDs = append(cand.ConceptIDs, c.ConceptID)
			conceptSet[c.ConceptID] = true
		}
		candidates = append(candidates, cand)
	}

	conceptIDs := make([]uuid.UUID, 0, len(conceptSet))
	for id := range conceptSet {
		conceptIDs = append(conceptIDs, id)
	}
	beliefRows, err := s.beliefRepo.GetByUserAndConcepts(dbc, userID, conceptIDs)
	if err != nil {
		return nil, err
	}

	gates, err := s.gates.EvaluateSet(dbc, userID, conceptIDs)
	if err != nil {
		return nil, err
	}
	locked := make(map[uuid.UUID]bool, len(gates))
	for id, res := range gates {
		if !res.Unlocked {
			locked[id] = true
		}
	}

	pick, noQuestion, err := selector.Select(strategy, candidates, selector.Input{
		Beliefs:         beliefParams(beliefRows),
		Locked:          locked,
		Mode:            s.cfg.Gate.Mode,
		Recent:          recent,
		AnsweredPerArea: answeredPerArea,
	})
	if err != nil {
		return nil, err
	}
	if noQuestion != nil {
		span.SetAttributes(attribute.String("no_question_reason", noQuestion.Reason))
		return &SelectResult{NoQuestion: noQuestion}, nil
	}

	chosen := byID[pick.QuestionID]
	return &SelectResult{Question: &NextQuestion{
		QuestionID:    chosen.ID,
		KnowledgeArea: chosen.KnowledgeArea,
		Prompt:        chosen.Prompt,
		Options:       chosen.Options,
		Difficulty:    chosen.Difficulty,
		Metric:        pick.Metric,
	}}, nil
}

// pooledQuestion is the cacheable projection of a question and its
// tested concepts. It deliberately excludes the correct option.
type pooledQuestion struct {
	ID            uuid.UUID       `json:"id"`
	KnowledgeArea string          `json:"knowledge_area"`
	Prompt        string          `json:"prompt"`
	Options       []string        `json:"options"`
	Difficulty    float64         `json:"difficulty"`
	SlipRate      *float64        `json:"slip_rate,omitempty"`
	GuessRate     *float64        `json:"guess_rate,omitempty"`
	Concepts      []pooledConcept `json:"concepts"`
}

type pooledConcept struct {
	ConceptID uuid.UUID `json:"concept_id"`
	Relevance float64   `json:"relevance"`
}

// loadPool fetches the candidate pool for a knowledge area through the
// redis read-through cache. Questions are read-only to this core, so
// the cache needs no invalidation beyond its TTL.
func (s *assessmentService) loadPool(dbc dbctx.Context, area string) ([]pooledQuestion, error) {
	cacheKey := "assessment:qpool:" + area
	var pool []pooledQuestion
	if s.cache.GetJSON(dbc.Ctx, cacheKey, &pool) {
		return pool, nil
	}

	questions, err := s.questionRepo.ListByKnowledgeArea(dbc, area)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	joins, err := s.questionRepo.ConceptsFor(dbc, ids)
	if err != nil {
		return nil, err
	}
	conceptsByQuestion := make(map[uuid.UUID][]pooledConcept, len(questions))
	for _, j := range joins {
		conceptsByQuestion[j.QuestionID] = append(conceptsByQuestion[j.QuestionID], pooledConcept{
			ConceptID: j.ConceptID,
			Relevance: j.Relevance,
		})
	}

	pool = make([]pooledQuestion, 0, len(questions))
	for _, q := range questions {
		var options []string
		if err := json.Unmarshal(q.Options, &options); err != nil {
			s.log.Warn("question has corrupt options, excluding from pool", "question_id", q.ID, "error", err)
			continue
		}
		pool = append(pool, pooledQuestion{
			ID:            q.ID,
			KnowledgeArea: q.KnowledgeArea,
			Prompt:        q.Prompt,
			Options:       options,
			Difficulty:    q.Difficulty,
			SlipRate:      q.SlipRate,
			GuessRate:     q.GuessRate,
			Concepts:      conceptsByQuestion[q.ID],
		})
	}

	s.cache.SetJSON(dbc.Ctx, cacheKey, pool)
	return pool, nil
}
