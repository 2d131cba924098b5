package gate

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lumenlearn/assessment-backend/internal/assessment"
)

func TestEvaluate_NoPrerequisitesAlwaysUnlocked(t *testing.T) {
	res := Evaluate(DefaultConfig(), uuid.New(), nil, nil)
	if !res.Unlocked {
		t.Fatalf("concept with zero prerequisites must be unlocked")
	}
	if res.MasteryProgress != 1.0 {
		t.Fatalf("expected mastery_progress=1.0, got %g", res.MasteryProgress)
	}
}

func TestEvaluate_InsufficientEvidenceCannotBlock(t *testing.T) {
	prereq := uuid.New()
	edges := []Edge{{PrereqConceptID: prereq, EdgeType: "required", Strength: 1}}
	// Terrible mastery but only 2 responses: below min_responses, so it
	// cannot hold the concept back.
	beliefs := map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 1, Beta: 9, ResponseCount: 2},
	}
	res := Evaluate(DefaultConfig(), uuid.New(), edges, beliefs)
	if !res.Unlocked {
		t.Fatalf("prerequisite with < min_responses must not block")
	}
}

func TestEvaluate_WeakRequiredPrerequisiteBlocks(t *testing.T) {
	prereq := uuid.New()
	edges := []Edge{{PrereqConceptID: prereq, EdgeType: "required", Strength: 1}}
	beliefs := map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 2, Beta: 8, ResponseCount: 8},
	}
	res := Evaluate(DefaultConfig(), uuid.New(), edges, beliefs)
	if res.Unlocked {
		t.Fatalf("weak required prerequisite must block")
	}
	if len(res.Blocking) != 1 || res.Blocking[0].ConceptID != prereq {
		t.Fatalf("expected the prerequisite in the blocking list, got %+v", res.Blocking)
	}
	bl := res.Blocking[0]
	if bl.ProgressToUnlock < 0 || bl.ProgressToUnlock > 1 {
		t.Fatalf("progress_to_unlock out of [0,1]: %g", bl.ProgressToUnlock)
	}
	if res.EstimatedQuestionsToUnlock < 1 || res.EstimatedQuestionsToUnlock > 20 {
		t.Fatalf("estimated questions out of range: %d", res.EstimatedQuestionsToUnlock)
	}
}

func TestEvaluate_HelpfulAndRelatedNeverBlock(t *testing.T) {
	prereq := uuid.New()
	beliefs := map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 1, Beta: 20, ResponseCount: 20},
	}
	for _, et := range []string{"helpful", "related"} {
		edges := []Edge{{PrereqConceptID: prereq, EdgeType: et, Strength: 1}}
		res := Evaluate(DefaultConfig(), uuid.New(), edges, beliefs)
		if !res.Unlocked {
			t.Fatalf("%s prerequisite must never block", et)
		}
	}
}

func TestEvaluate_MasteredPrerequisiteUnlocks(t *testing.T) {
	prereq := uuid.New()
	edges := []Edge{{PrereqConceptID: prereq, EdgeType: "required", Strength: 1}}
	// mean 0.8, confidence 1-1/(1+10) ≈ 0.909, 10 responses: passes both.
	beliefs := map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 8, Beta: 2, ResponseCount: 10},
	}
	res := Evaluate(DefaultConfig(), uuid.New(), edges, beliefs)
	if !res.Unlocked {
		t.Fatalf("mastered prerequisite must unlock, got %+v", res)
	}
}

func TestEvaluate_MissingBeliefCountsAsPrior(t *testing.T) {
	prereq := uuid.New()
	edges := []Edge{{PrereqConceptID: prereq, EdgeType: "required", Strength: 1}}
	// No belief row: lazy prior has zero responses, which is below the
	// evidence floor, so the concept stays unlocked.
	res := Evaluate(DefaultConfig(), uuid.New(), edges, nil)
	if !res.Unlocked {
		t.Fatalf("unknown prerequisite belief must not block")
	}
}

func TestEvaluate_EstimatedQuestionsMonotoneInDistance(t *testing.T) {
	prereq := uuid.New()
	edges := []Edge{{PrereqConceptID: prereq, EdgeType: "required", Strength: 1}}
	far := Evaluate(DefaultConfig(), uuid.New(), edges, map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 1, Beta: 9, ResponseCount: 10},
	})
	near := Evaluate(DefaultConfig(), uuid.New(), edges, map[uuid.UUID]assessment.BeliefParams{
		prereq: {Alpha: 6, Beta: 4, ResponseCount: 10},
	})
	if far.EstimatedQuestionsToUnlock < near.EstimatedQuestionsToUnlock {
		t.Fatalf("farther from threshold must estimate at least as many questions: far=%d near=%d",
			far.EstimatedQuestionsToUnlock, near.EstimatedQuestionsToUnlock)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("soft"); err != nil || m != ModeSoft {
		t.Fatalf("parse soft: %v %v", m, err)
	}
	if m, err := ParseMode("hard"); err != nil || m != ModeHard {
		t.Fatalf("parse hard: %v %v", m, err)
	}
	if _, err := ParseMode("lenient"); !errors.Is(err, assessment.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
