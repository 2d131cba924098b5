package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lumenlearn/assessment-backend/internal/assessment/gate"
	"github.com/lumenlearn/assessment-backend/internal/platform/envutil"
	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
	"github.com/lumenlearn/assessment-backend/internal/services"
)

type Config struct {
	Port         string
	JWTSecretKey string
	CORSOrigins  []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	SweepInterval time.Duration

	Engine services.EngineConfig
}

// fileConfig is the optional YAML overlay; any zero field falls back
// to the env-derived value.
type fileConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Engine      struct {
		DefaultSlip         float64 `yaml:"default_slip"`
		DefaultGuess        float64 `yaml:"default_guess"`
		MasteryThreshold    float64 `yaml:"mastery_threshold"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
		MinResponses        int     `yaml:"min_responses"`
		GateMode            string  `yaml:"gate_mode"`
	} `yaml:"engine"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	engine := services.DefaultEngineConfig()
	engine.DefaultSlip = envutil.Float("ENGINE_DEFAULT_SLIP", engine.DefaultSlip)
	engine.DefaultGuess = envutil.Float("ENGINE_DEFAULT_GUESS", engine.DefaultGuess)
	engine.Gate.MasteryThreshold = envutil.Float("GATE_MASTERY_THRESHOLD", engine.Gate.MasteryThreshold)
	engine.Gate.ConfidenceThreshold = envutil.Float("GATE_CONFIDENCE_THRESHOLD", engine.Gate.ConfidenceThreshold)
	engine.Gate.MinResponses = envutil.Int("GATE_MIN_RESPONSES", engine.Gate.MinResponses)
	engine.DiagnosticTimeout = envutil.Duration("DIAGNOSTIC_TIMEOUT", engine.DiagnosticTimeout)
	engine.QuizTimeout = envutil.Duration("QUIZ_TIMEOUT", engine.QuizTimeout)
	if raw := envutil.String("GATE_MODE", ""); raw != "" {
		mode, err := gate.ParseMode(raw)
		if err != nil {
			return Config{}, fmt.Errorf("GATE_MODE: %w", err)
		}
		engine.Gate.Mode = mode
	}

	cfg := Config{
		Port:          envutil.String("PORT", "8080"),
		JWTSecretKey:  envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		CacheTTL:      envutil.Duration("CACHE_TTL", 10*time.Minute),
		SweepInterval: envutil.Duration("SESSION_SWEEP_INTERVAL", time.Minute),
		Engine:        engine,
	}

	path := envutil.String("CONFIG_FILE", "")
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.Engine.DefaultSlip > 0 {
		cfg.Engine.DefaultSlip = fc.Engine.DefaultSlip
	}
	if fc.Engine.DefaultGuess > 0 {
		cfg.Engine.DefaultGuess = fc.Engine.DefaultGuess
	}
	if fc.Engine.MasteryThreshold > 0 {
		cfg.Engine.Gate.MasteryThreshold = fc.Engine.MasteryThreshold
	}
	if fc.Engine.ConfidenceThreshold > 0 {
		cfg.Engine.Gate.ConfidenceThreshold = fc.Engine.ConfidenceThreshold
	}
	if fc.Engine.MinResponses > 0 {
		cfg.Engine.Gate.MinResponses = fc.Engine.MinResponses
	}
	if fc.Engine.GateMode != "" {
		mode, err := gate.ParseMode(fc.Engine.GateMode)
		if err != nil {
			return Config{}, fmt.Errorf("config file gate_mode: %w", err)
		}
		cfg.Engine.Gate.Mode = mode
	}
	log.Info("Config loaded", "config_file", path)
	return cfg, nil
}
