// Package workflow drives validation sessions: the sequential 7-phase
// pipeline, the 8-scenario stress swarm, and the aggregation of their
// results into a report.
package workflow

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/venturahq/ventura/internal/retry"
)

type Config struct {
	ConfidenceThreshold    float64
	ContextMaxBytes        int
	ReasoningPolicy        retry.Policy
	ToolPolicy             retry.Policy
	SwarmPoolSize          int
	ScenarioTimeout        time.Duration
	SwarmDeadline          time.Duration
	FailedScenarioSeverity float64
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:    0.70,
		ContextMaxBytes:        60000,
		ReasoningPolicy:        retry.ReasoningPolicy,
		ToolPolicy:             retry.ComputePolicy,
		SwarmPoolSize:          4,
		ScenarioTimeout:        60 * time.Second,
		SwarmDeadline:          5 * time.Minute,
		FailedScenarioSeverity: 7.5,
	}
}

func timeNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func newID(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return prefix + "_" + time.Now().UTC().Format("20060102150405.000000000")
	}
	return prefix + "_" + time.Now().UTC().Format("20060102150405") + "_" + hex.EncodeToString(buf)
}
