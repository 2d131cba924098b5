package assessment

// BeliefParams is the in-memory view of a mastery belief that the pure
// engine packages operate on, decoupled from the persisted row.
type BeliefParams struct {
	Alpha         float64
	Beta          float64
	ResponseCount int
}

// Mean returns alpha/(alpha+beta).
func (p BeliefParams) Mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

// Confidence maps the pseudo-observation count into [0,1).
func (p BeliefParams) Confidence() float64 {
	return 1 - 1/(1+p.Alpha+p.Beta)
}

// Valid reports whether the parameters are a well-formed Beta distribution.
func (p BeliefParams) Valid() bool {
	return p.Alpha > 0 && p.Beta > 0
}
