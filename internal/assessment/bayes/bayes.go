// Package bayes implements the Beta-Bernoulli mastery update applied
// after each observed answer.
package bayes

import (
	"fmt"

	"github.com/lumenlearn/assessment-backend/internal/assessment"
)

// Engine-wide defaults, used when a question does not override them.
const (
	DefaultSlip  = 0.10
	DefaultGuess = 0.25
)

// ObservationProbability returns p_obs, the model probability of the
// observed correctness outcome under the current belief.
func ObservationProbability(p assessment.BeliefParams, isCorrect bool, slip, guess float64) float64 {
	m := p.Mean()
	if isCorrect {
		return (1-slip)*m + guess*(1-m)
	}
	return slip*m + (1-guess)*(1-m)
}

// ApplyObservation folds one correctness observation into a belief.
//
// The posterior mastery probability is computed via Bayes' rule with the
// question's slip/guess rates, then added to the Beta parameters as a
// fractional pseudo-observation: alpha' = alpha + posterior,
// beta' = beta + (1 - posterior). The response count always advances by
// one, so alpha'+beta' > alpha+beta for every valid input.
func ApplyObservation(p assessment.BeliefParams, isCorrect bool, slip, guess float64) (assessment.BeliefParams, error) {
	if !p.Valid() {
		return p, assessment.DomainError(fmt.Sprintf("invalid belief parameters alpha=%g beta=%g", p.Alpha, p.Beta))
	}
	if slip <= 0 || slip >= 1 || guess <= 0 || guess >= 1 {
		return p, assessment.ValidationError(fmt.Sprintf("slip/guess out of range slip=%g guess=%g", slip, guess))
	}

	m := p.Mean()
	var posterior float64
	if isCorrect {
		pObs := (1-slip)*m + guess*(1-m)
		posterior = (1 - slip) * m / pObs
	} else {
		pObs := slip*m + (1-guess)*(1-m)
		posterior = slip * m / pObs
	}

	return assessment.BeliefParams{
		Alpha:         p.Alpha + posterior,
		Beta:          p.Beta + (1 - posterior),
		ResponseCount: p.ResponseCount + 1,
	}, nil
}
