// Package gate decides whether a concept's prerequisites are mastered
// well enough to unlock it.
package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/lumenlearn/assessment-backend/internal/assessment"
)

type Mode string

const (
	// ModeSoft deprioritizes locked-concept questions during selection.
	ModeSoft Mode = "soft"
	// ModeHard removes locked-concept questions from the pool entirely.
	ModeHard Mode = "hard"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSoft:
		return ModeSoft, nil
	case ModeHard:
		return ModeHard, nil
	}
	return "", assessment.ValidationError(fmt.Sprintf("unknown enforcement mode %q", s))
}

type Config struct {
	MasteryThreshold    float64
	ConfidenceThreshold float64
	MinResponses        int
	Mode                Mode
	// TypicalGainPerQuestion feeds the questions-to-unlock heuristic.
	// It is a tunable, not a contract.
	TypicalGainPerQuestion float64
}

func DefaultConfig() Config {
	return Config{
		MasteryThreshold:       0.7,
		ConfidenceThreshold:    0.6,
		MinResponses:           3,
		Mode:                   ModeSoft,
		TypicalGainPerQuestion: 0.15,
	}
}

// Edge is one prerequisite edge pointing at the concept under evaluation.
type Edge struct {
	PrereqConceptID uuid.UUID
	EdgeType        string
	Strength        float64
}

// Blocker describes one prerequisite holding a concept locked.
type Blocker struct {
	ConceptID          uuid.UUID `json:"concept_id"`
	CurrentMastery     float64   `json:"current_mastery"`
	RequiredMastery    float64   `json:"required_mastery"`
	CurrentConfidence  float64   `json:"current_confidence"`
	RequiredConfidence float64   `json:"required_confidence"`
	ResponseCount      int       `json:"response_count"`
	ProgressToUnlock   float64   `json:"progress_to_unlock"`
}

// Result is the gating decision for one concept.
type Result struct {
	ConceptID                  uuid.UUID `json:"concept_id"`
	Unlocked                   bool      `json:"is_unlocked"`
	Blocking                   []Blocker `json:"blocking_prerequisites,omitempty"`
	MasteryProgress            float64   `json:"mastery_progress"`
	EstimatedQuestionsToUnlock int       `json:"estimated_questions_to_unlock"`
}

// Evaluate checks a concept against its prerequisite edges. A concept
// with no edges is always unlocked. Only required-type edges can block,
// and only when the prerequisite has at least MinResponses observations;
// with less evidence there is not enough signal to hold anything back.
// Missing beliefs count as the uninformative prior.
func Evaluate(cfg Config, conceptID uuid.UUID, edges []Edge, beliefs map[uuid.UUID]assessment.BeliefParams) Result {
	res := Result{ConceptID: conceptID, Unlocked: true, MasteryProgress: 1.0}

	maxDistance := 0.0
	for _, e := range edges {
		if e.EdgeType != "required" {
			continue
		}
		b, ok := beliefs[e.PrereqConceptID]
		if !ok {
			b = assessment.BeliefParams{Alpha: 1, Beta: 1}
		}
		if b.ResponseCount < cfg.MinResponses {
			continue
		}
		mastery := b.Mean()
		confidence := b.Confidence()
		if mastery >= cfg.MasteryThreshold && confidence >= cfg.ConfidenceThreshold {
			continue
		}

		progress := blockerProgress(cfg, mastery, confidence)
		res.Blocking = append(res.Blocking, Blocker{
			ConceptID:          e.PrereqConceptID,
			CurrentMastery:     mastery,
			RequiredMastery:    cfg.MasteryThreshold,
			CurrentConfidence:  confidence,
			RequiredConfidence: cfg.ConfidenceThreshold,
			ResponseCount:      b.ResponseCount,
			ProgressToUnlock:   progress,
		})
		if d := 1 - progress; d > maxDistance {
			maxDistance = d
		}
	}

	if len(res.Blocking) == 0 {
		return res
	}

	sort.Slice(res.Blocking, func(i, j int) bool {
		return res.Blocking[i].ConceptID.String() < res.Blocking[j].ConceptID.String()
	})

	res.Unlocked = false
	sum := 0.0
	for _, bl := range res.Blocking {
		sum += bl.ProgressToUnlock
	}
	res.MasteryProgress = sum / float64(len(res.Blocking))

	// Questions-to-unlock: distance of the weakest blocker over the
	// typical per-question gain, clamped. Monotone in distance.
	est := int(math.Ceil(maxDistance / cfg.TypicalGainPerQuestion))
	if est < 1 {
		est = 1
	}
	if est > 20 {
		est = 20
	}
	res.EstimatedQuestionsToUnlock = est
	return res
}

// blockerProgress normalizes how close a prerequisite is to passing both
// thresholds, in [0,1].
func blockerProgress(cfg Config, mastery, confidence float64) float64 {
	mp := mastery / cfg.MasteryThreshold
	if mp > 1 {
		mp = 1
	}
	cp := confidence / cfg.ConfidenceThreshold
	if cp > 1 {
		cp = 1
	}
	p := (mp + cp) / 2
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}
