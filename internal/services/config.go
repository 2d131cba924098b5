package services

import (
	"time"

	"github.com/lumenlearn/assessment-backend/internal/assessment/bayes"
	"github.com/lumenlearn/assessment-backend/internal/assessment/gate"
)

// EngineConfig carries the tunables of the assessment core.
type EngineConfig struct {
	DefaultSlip  float64
	DefaultGuess float64
	Gate         gate.Config
	// DiagnosticTimeout is measured from session creation,
	// QuizTimeout from last activity.
	DiagnosticTimeout time.Duration
	QuizTimeout       time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultSlip:       bayes.DefaultSlip,
		DefaultGuess:      bayes.DefaultGuess,
		Gate:              gate.DefaultConfig(),
		DiagnosticTimeout: 30 * time.Minute,
		QuizTimeout:       2 * time.Hour,
	}
}
