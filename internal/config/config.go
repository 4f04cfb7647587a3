package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/venturahq/ventura/internal/workflow"
)

type Config struct {
	GRPCAddr         string
	HTTPAddr         string
	StoreDriver      string
	DataFile         string
	DatabaseURL      string
	AuthToken        string
	EnableReflection bool

	// Reasoning backend. Empty command selects the built-in scripted client,
	// which is only useful for demos and tests.
	ReasoningCommand string
	ReasoningArgs    []string
	ReasoningWorkdir string
	ReasoningUsePTY  bool
	RedactTranscript bool

	BreakerThreshold int
	BreakerCooldown  time.Duration

	Workflow workflow.Config
}

func Load() Config {
	wf := workflow.DefaultConfig()
	wf.ConfidenceThreshold = envFloatInRange("PHASE_CONFIDENCE_THRESHOLD", wf.ConfidenceThreshold, 0, 1)
	wf.SwarmPoolSize = envIntOrDefault("SWARM_POOL_SIZE", wf.SwarmPoolSize)
	wf.ScenarioTimeout = envDurationOrDefault("SCENARIO_TIMEOUT", wf.ScenarioTimeout)
	wf.SwarmDeadline = envDurationOrDefault("SWARM_DEADLINE", wf.SwarmDeadline)
	wf.FailedScenarioSeverity = envFloatInRange("FAILED_SCENARIO_SEVERITY", wf.FailedScenarioSeverity, 0, 10)
	wf.ReasoningPolicy.MaxAttempts = envIntOrDefault("REASONING_MAX_ATTEMPTS", wf.ReasoningPolicy.MaxAttempts)
	wf.ReasoningPolicy.BaseDelay = envDurationOrDefault("REASONING_BASE_DELAY", wf.ReasoningPolicy.BaseDelay)
	wf.ReasoningPolicy.MaxDelay = envDurationOrDefault("REASONING_MAX_DELAY", wf.ReasoningPolicy.MaxDelay)
	wf.ReasoningPolicy.PerAttemptTimeout = envDurationOrDefault("REASONING_ATTEMPT_TIMEOUT", wf.ReasoningPolicy.PerAttemptTimeout)

	return Config{
		GRPCAddr:         envOrDefault("GRPC_ADDR", "127.0.0.1:50051"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", "127.0.0.1:8080"),
		StoreDriver:      envOrDefault("STORE_DRIVER", "file"),
		DataFile:         envOrDefault("DATA_FILE", "./data/ventura.db.json"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AuthToken:        os.Getenv("AUTH_TOKEN"),
		EnableReflection: envBoolOrDefault("ENABLE_REFLECTION", false),
		ReasoningCommand: os.Getenv("REASONING_COMMAND"),
		ReasoningArgs:    splitArgs(os.Getenv("REASONING_ARGS")),
		ReasoningWorkdir: os.Getenv("REASONING_WORKDIR"),
		ReasoningUsePTY:  envBoolOrDefault("REASONING_USE_PTY", true),
		RedactTranscript: envBoolOrDefault("REDACT_TRANSCRIPTS", true),
		BreakerThreshold: envIntOrDefault("BREAKER_THRESHOLD", 5),
		BreakerCooldown:  envDurationOrDefault("BREAKER_COOLDOWN", 30*time.Second),
		Workflow:         wf,
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBoolOrDefault(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envIntOrDefault(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envFloatInRange(key string, fallback, lo, hi float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < lo || value > hi {
		return fallback
	}
	return value
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func splitArgs(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
