// Package selector ranks candidate questions and picks the next one
// under a selection strategy.
package selector

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/assessment/entropy"
	"github.com/lumenlearn/assessment-backend/internal/assessment/gate"
)

type Strategy string

const (
	StrategyMaxInfoGain       Strategy = "max_info_gain"
	StrategyMaxUncertainty    Strategy = "max_uncertainty"
	StrategyPrerequisiteFirst Strategy = "prerequisite_first"
	StrategyBalanced          Strategy = "balanced"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyMaxInfoGain, StrategyMaxUncertainty, StrategyPrerequisiteFirst, StrategyBalanced:
		return Strategy(s), nil
	}
	return "", assessment.ValidationError(fmt.Sprintf("unknown strategy %q", s))
}

// Reasons a selection can come back empty.
const (
	ReasonExhausted          = "exhausted"
	ReasonKnowledgeAreaEmpty = "knowledge_area_empty"
	ReasonAllRecent          = "all_recent"
)

// Candidate is a rankable question with its tested concepts and
// resolved error rates.
type Candidate struct {
	QuestionID    uuid.UUID
	KnowledgeArea string
	Difficulty    float64
	Slip          float64
	Guess         float64
	ConceptIDs    []uuid.UUID
}

// Input carries the learner state a selection runs against.
type Input struct {
	Beliefs map[uuid.UUID]assessment.BeliefParams
	// Locked marks concepts whose gate check failed.
	Locked map[uuid.UUID]bool
	Mode   gate.Mode
	// Recent marks question ids answered within the session or the
	// caller's lookback window; they are excluded before ranking.
	Recent map[uuid.UUID]bool
	// AnsweredPerArea drives round-robin interleaving for the balanced
	// strategy.
	AnsweredPerArea map[string]int
}

type Pick struct {
	QuestionID uuid.UUID
	Metric     float64
}

// NoQuestion is the structured empty result.
type NoQuestion struct {
	Reason string
}

// softLockWeight keeps locked-concept questions selectable only when
// nothing better exists.
const softLockWeight = 0.1

// Select picks one question from the pool, or explains why it could not.
func Select(strategy Strategy, pool []Candidate, in Input) (*Pick, *NoQuestion, error) {
	if len(pool) == 0 {
		return nil, &NoQuestion{Reason: ReasonKnowledgeAreaEmpty}, nil
	}

	fresh := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if !in.Recent[c.QuestionID] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return nil, &NoQuestion{Reason: ReasonAllRecent}, nil
	}

	type scored struct {
		cand     Candidate
		metric   float64
		locked   bool
		prereqOK bool
	}
	ranked := make([]scored, 0, len(fresh))
	for _, c := range fresh {
		locked := false
		for _, id := range c.ConceptIDs {
			if in.Locked[id] {
				locked = true
				break
			}
		}
		if locked && in.Mode == gate.ModeHard {
			continue
		}

		metric, err := metricFor(strategy, c, in)
		if err != nil {
			return nil, nil, err
		}
		if locked {
			metric *= softLockWeight
		}
		ranked = append(ranked, scored{cand: c, metric: metric, locked: locked, prereqOK: !locked})
	}
	if len(ranked) == 0 {
		return nil, &NoQuestion{Reason: ReasonExhausted}, nil
	}

	ability := estimatedAbility(in.Beliefs)

	less := func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if strategy == StrategyPrerequisiteFirst && a.prereqOK != b.prereqOK {
			return a.prereqOK
		}
		if a.metric != b.metric {
			return a.metric > b.metric
		}
		da := abs(a.cand.Difficulty - ability)
		db := abs(b.cand.Difficulty - ability)
		if da != db {
			return da < db
		}
		return a.cand.QuestionID.String() < b.cand.QuestionID.String()
	}

	if strategy == StrategyBalanced {
		ranked = filterLeastServedArea(ranked, in.AnsweredPerArea, func(s scored) string { return s.cand.KnowledgeArea })
	}

	sort.SliceStable(ranked, less)
	top := ranked[0]
	return &Pick{QuestionID: top.cand.QuestionID, Metric: top.metric}, nil, nil
}

func metricFor(strategy Strategy, c Candidate, in Input) (float64, error) {
	switch strategy {
	case StrategyMaxUncertainty:
		total := 0.0
		for _, id := range c.ConceptIDs {
			h, err := entropy.Beta(beliefFor(in, id).Alpha, beliefFor(in, id).Beta)
			if err != nil {
				return 0, err
			}
			total += h
		}
		return total, nil
	case StrategyMaxInfoGain, StrategyPrerequisiteFirst, StrategyBalanced:
		// prerequisite_first and balanced fall back to info-gain ordering
		// inside their partitions.
		total := 0.0
		for _, id := range c.ConceptIDs {
			g, err := entropy.EstimatedGain(beliefFor(in, id), c.Slip, c.Guess)
			if err != nil {
				return 0, err
			}
			total += g
		}
		return total, nil
	}
	return 0, assessment.ValidationError(fmt.Sprintf("unknown strategy %q", strategy))
}

func beliefFor(in Input, conceptID uuid.UUID) assessment.BeliefParams {
	if b, ok := in.Beliefs[conceptID]; ok {
		return b
	}
	return assessment.BeliefParams{Alpha: 1, Beta: 1}
}

// estimatedAbility maps the learner's mean mastery across known beliefs
// onto the IRT difficulty scale [-3,3]. Used only for tie-breaking.
func estimatedAbility(beliefs map[uuid.UUID]assessment.BeliefParams) float64 {
	if len(beliefs) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range beliefs {
		sum += b.Mean()
	}
	mean := sum / float64(len(beliefs))
	return (mean - 0.5) * 6
}

// filterLeastServedArea keeps only candidates from the knowledge area
// with the fewest answers so far (ties broken alphabetically), which
// interleaves areas round-robin across a session.
func filterLeastServedArea[T any](items []T, served map[string]int, area func(T) string) []T {
	if len(items) == 0 {
		return items
	}
	best := ""
	bestCount := -1
	for _, it := range items {
		a := area(it)
		c := served[a]
		if bestCount == -1 || c < bestCount || (c == bestCount && a < best) {
			best, bestCount = a, c
		}
	}
	out := items[:0:0]
	for _, it := range items {
		if area(it) == best {
			out = append(out, it)
		}
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// ResolveRates applies the engine-configured defaults when a question
// carries no slip/guess overrides.
func ResolveRates(slip, guess *float64, defaultSlip, defaultGuess float64) (float64, float64) {
	s, g := defaultSlip, defaultGuess
	if slip != nil {
		s = *slip
	}
	if guess != nil {
		g = *guess
	}
	return s, g
}
