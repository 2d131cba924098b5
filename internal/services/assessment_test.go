package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/assessment/selector"
	repos "github.com/lumenlearn/assessment-backend/internal/data/repos/assessment"
	types "github.com/lumenlearn/assessment-backend/internal/domain/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

func TestSubmitAnswerUpdatesBeliefs(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "linear equations")
	questionID := env.seedQuestion(t, "algebra", 1, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	res, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 1,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.IsCorrect {
		t.Fatalf("expected correct answer")
	}
	if len(res.ConceptsUpdated) != 1 {
		t.Fatalf("got %d concept updates, want 1", len(res.ConceptsUpdated))
	}
	if m := res.ConceptsUpdated[0].NewMastery; m <= 0.5 {
		t.Fatalf("mastery after correct answer from uniform prior = %v, want > 0.5", m)
	}
	if res.InfoGain <= 0 {
		t.Fatalf("info gain = %v, want > 0", res.InfoGain)
	}
	if res.SessionStats.AnsweredCount != 1 || res.SessionStats.CorrectCount != 1 {
		t.Fatalf("session stats = %+v", res.SessionStats)
	}

	rows, err := env.beliefRepo.GetByUserAndConcepts(env.ctx(), userID, []uuid.UUID{conceptID})
	if err != nil {
		t.Fatalf("GetByUserAndConcepts: %v", err)
	}
	row, ok := rows[conceptID]
	if !ok {
		t.Fatalf("belief row was not created")
	}
	if row.ResponseCount != 1 {
		t.Fatalf("response count = %d, want 1", row.ResponseCount)
	}

	stored, err := env.sessionRepo.GetByID(env.ctx(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Version != 2 {
		t.Fatalf("session version = %d, want 2", stored.Version)
	}
	if stored.AnsweredCount != 1 {
		t.Fatalf("answered count = %d, want 1", stored.AnsweredCount)
	}
}

func TestSubmitAnswerUsesConfiguredDefaultRates(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "inequalities")
	questionID := env.seedQuestion(t, "algebra", 1, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	cfg := DefaultEngineConfig()
	cfg.DefaultSlip = 0.40
	cfg.DefaultGuess = 0.05
	log := logger.NewNop()
	assessments := NewAssessmentService(env.db, cfg, env.beliefRepo, env.conceptRepo,
		repos.NewQuestionRepo(env.db, log), env.sessionRepo, env.answerRepo, env.gates, nil, log)

	res, err := assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 1,
		IdempotencyKey: "rates-key",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	// The question carries no overrides, so the configured rates apply:
	// slip=0.40 guess=0.05 from Beta(1,1) gives p_obs = 0.6*0.5 + 0.05*0.5
	// = 0.325, posterior = 0.3/0.325, mean = 1.92308/3 ≈ 0.641.
	got := res.ConceptsUpdated[0].NewMastery
	if math.Abs(got-0.641026) > 0.0005 {
		t.Fatalf("mastery under configured rates ≈ 0.641, got %g", got)
	}
}

func TestSubmitAnswerIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "factoring")
	questionID := env.seedQuestion(t, "algebra", 2, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	in := SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 2,
		IdempotencyKey: "replay-key",
	}
	first, err := env.assessments.SubmitAnswer(env.ctx(), userID, in)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := env.assessments.SubmitAnswer(env.ctx(), userID, in)
	if err != nil {
		t.Fatalf("replay submit: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("replay result differs:\nfirst:  %s\nsecond: %s", a, b)
	}

	n, err := env.answerRepo.CountBySession(env.ctx(), sess.ID)
	if err != nil {
		t.Fatalf("CountBySession: %v", err)
	}
	if n != 1 {
		t.Fatalf("answer events = %d, want 1", n)
	}
	stored, err := env.sessionRepo.GetByID(env.ctx(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.AnsweredCount != 1 {
		t.Fatalf("replay incremented answered count to %d", stored.AnsweredCount)
	}
}

func TestSubmitAnswerKeyReuseDifferentPayload(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "exponents")
	questionID := env.seedQuestion(t, "algebra", 0, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	in := SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 0,
		IdempotencyKey: "shared-key",
	}
	if _, err := env.assessments.SubmitAnswer(env.ctx(), userID, in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	in.SelectedOption = 3
	_, err := env.assessments.SubmitAnswer(env.ctx(), userID, in)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("got %v, want conflict for key reuse with new payload", err)
	}
}

func TestSubmitAnswerCompletesAtTarget(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "polynomials")
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 2)

	var last *SubmitAnswerResult
	for i := 0; i < 2; i++ {
		questionID := env.seedQuestion(t, "algebra", 1, conceptID)
		res, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
			SessionID:      sess.ID,
			QuestionID:     questionID,
			SelectedOption: 1,
			IdempotencyKey: fmt.Sprintf("key-%d", i),
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		last = res
	}
	if !last.SessionCompleted {
		t.Fatalf("session did not complete at target")
	}
	if last.SessionSummary == nil {
		t.Fatalf("completed session has no summary")
	}
	if last.SessionSummary.Accuracy != 1 {
		t.Fatalf("accuracy = %v, want 1", last.SessionSummary.Accuracy)
	}

	extraID := env.seedQuestion(t, "algebra", 1, conceptID)
	_, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     extraID,
		SelectedOption: 1,
		IdempotencyKey: "key-extra",
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("got %v, want conflict on answering a completed session", err)
	}
}

func TestSubmitAnswerWrongUser(t *testing.T) {
	env := newTestEnv(t)
	owner := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "roots")
	questionID := env.seedQuestion(t, "algebra", 0, conceptID)
	sess := env.seedSession(t, owner, types.SessionKindQuiz, "algebra", 0)

	_, err := env.assessments.SubmitAnswer(env.ctx(), uuid.New(), SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 0,
		IdempotencyKey: "key",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want not found for another user's session", err)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "sets")
	questionID := env.seedQuestion(t, "algebra", 0, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	_, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 0,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("got %v, want validation error for missing idempotency key", err)
	}

	_, err = env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 9,
		IdempotencyKey: "key",
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("got %v, want validation error for out-of-range option", err)
	}
}

func TestSelectNextQuestionSkipsAnswered(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	conceptID := env.seedConcept(t, "algebra", "ratios")
	q1 := env.seedQuestion(t, "algebra", 0, conceptID)
	q2 := env.seedQuestion(t, "algebra", 0, conceptID)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	answered := map[uuid.UUID]bool{}
	for i := 0; i < 2; i++ {
		res, err := env.assessments.SelectNextQuestion(env.ctx(), userID, sess.ID, "")
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if res.Question == nil {
			t.Fatalf("select %d returned no question: %+v", i, res.NoQuestion)
		}
		id := res.Question.QuestionID
		if id != q1 && id != q2 {
			t.Fatalf("selected unknown question %s", id)
		}
		if answered[id] {
			t.Fatalf("question %s selected twice", id)
		}
		answered[id] = true
		if _, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
			SessionID:      sess.ID,
			QuestionID:     id,
			SelectedOption: 0,
			IdempotencyKey: fmt.Sprintf("key-%d", i),
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	res, err := env.assessments.SelectNextQuestion(env.ctx(), userID, sess.ID, "")
	if err != nil {
		t.Fatalf("final select: %v", err)
	}
	if res.NoQuestion == nil || res.NoQuestion.Reason != selector.ReasonAllRecent {
		t.Fatalf("got %+v, want no-question with reason %q", res, selector.ReasonAllRecent)
	}
}

func TestSelectNextQuestionEmptyArea(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "empty-area", 0)

	res, err := env.assessments.SelectNextQuestion(env.ctx(), userID, sess.ID, "")
	if err != nil {
		t.Fatalf("SelectNextQuestion: %v", err)
	}
	if res.NoQuestion == nil || res.NoQuestion.Reason != selector.ReasonKnowledgeAreaEmpty {
		t.Fatalf("got %+v, want no-question with reason %q", res, selector.ReasonKnowledgeAreaEmpty)
	}
}

func TestSelectNextQuestionRejectsBadStrategy(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	_, err := env.assessments.SelectNextQuestion(env.ctx(), userID, sess.ID, "random_walk")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestSubmitAnswerFlagsLockedConcept(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	prereq := env.seedConcept(t, "algebra", "arithmetic")
	gated := env.seedConcept(t, "algebra", "equations")
	env.seedEdge(t, prereq, gated, types.EdgeTypeRequired, 1)
	questionID := env.seedQuestion(t, "algebra", 1, gated)
	sess := env.seedSession(t, userID, types.SessionKindQuiz, "algebra", 0)

	// Drive the prerequisite belief low with enough observations to let
	// the gate block.
	if _, err := env.beliefs.Initialize(env.ctx(), userID, "algebra", nil, ""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := env.db.Model(&types.BeliefState{}).
		Where("user_id = ? AND concept_id = ?", userID, prereq).
		Updates(map[string]interface{}{"alpha": 1.0, "beta": 5.0, "response_count": 5}).Error; err != nil {
		t.Fatalf("force weak prereq: %v", err)
	}

	res, err := env.assessments.SubmitAnswer(env.ctx(), userID, SubmitAnswerInput{
		SessionID:      sess.ID,
		QuestionID:     questionID,
		SelectedOption: 1,
		IdempotencyKey: "locked-key",
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.WasLocked {
		t.Fatalf("expected submission against a gated concept to be flagged")
	}
	if len(res.ConceptsUpdated) != 1 {
		t.Fatalf("locked submission must still update beliefs, got %d updates", len(res.ConceptsUpdated))
	}
}
