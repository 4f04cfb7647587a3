package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/venturahq/ventura/internal/agent"
	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/retry"
)

// SwarmCoordinator stress-tests an idea against every scenario type through
// a bounded worker pool. Scenarios are independent: one failing, timing out,
// or tripping a breaker never cancels its siblings, and the result set
// always covers all scenarios.
type SwarmCoordinator struct {
	Client agent.ReasoningClient
	Exec   *retry.Executor
	Cfg    Config

	OnScenario func(domain.ScenarioResult)
}

func (c *SwarmCoordinator) Run(ctx context.Context, idea domain.Idea) []domain.ScenarioResult {
	if c.Cfg.SwarmDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Cfg.SwarmDeadline)
		defer cancel()
	}

	results := make([]domain.ScenarioResult, len(domain.ScenarioTypes))
	g := &errgroup.Group{}
	limit := c.Cfg.SwarmPoolSize
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, scenario := range domain.ScenarioTypes {
		g.Go(func() error {
			results[i] = c.runScenario(ctx, idea, scenario)
			if c.OnScenario != nil {
				c.OnScenario(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *SwarmCoordinator) runScenario(ctx context.Context, idea domain.Idea, scenario domain.ScenarioType) domain.ScenarioResult {
	specialist := domain.ScenarioSpecialists[scenario]
	result := domain.ScenarioResult{
		ScenarioType: scenario,
		Specialist:   specialist,
		StartedAt:    timeNow(),
	}

	scenarioCtx := ctx
	if c.Cfg.ScenarioTimeout > 0 {
		var cancel context.CancelFunc
		scenarioCtx, cancel = context.WithTimeout(ctx, c.Cfg.ScenarioTimeout)
		defer cancel()
	}

	prompt := agent.BuildPrompt(agent.PromptInput{
		Role:     specialist,
		Idea:     idea,
		Scenario: scenario,
	})
	analysis, _, err := retry.Do(scenarioCtx, c.Exec, retry.ClassReasoning, c.Cfg.ReasoningPolicy,
		func(ctx context.Context) (agent.Analysis, error) {
			return c.Client.Invoke(ctx, specialist, prompt)
		})
	result.EndedAt = timeNow()
	if err != nil {
		result.Status = domain.StepFailed
		result.FailureReason = failureReason(err)
		log.Printf("swarm: scenario=%s failed reason=%s: %v", scenario, result.FailureReason, err)
		return result
	}

	severity := parseSeverity(analysis.Text, domain.SeverityPriors[scenario])
	result.SeverityScore = &severity
	result.Mitigations = parseMitigations(analysis.Text)
	result.Status = domain.StepSuccess
	if analysis.Confidence < c.Cfg.ConfidenceThreshold {
		result.Status = domain.StepDegraded
	}
	return result
}

func failureReason(err error) string {
	typed, ok := domain.AsAppError(err)
	if !ok {
		return "error"
	}
	switch typed.Code {
	case domain.CodeTimeout:
		return "timeout"
	case domain.CodeUnavailable:
		return "unavailable"
	default:
		return string(typed.Code)
	}
}

// parseSeverity looks for a "Severity: N" declaration anywhere in the
// analysis; the scenario's prior applies when the specialist did not commit
// to a number.
func parseSeverity(text string, prior float64) float64 {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefixFold(line, "severity:")
		if !ok {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(strings.TrimSuffix(rest, "/10")), "%f", &v); err != nil {
			continue
		}
		if v < 0 {
			v = 0
		}
		if v > 10 {
			v = 10
		}
		return v
	}
	return prior
}

func parseMitigations(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefixFold(line, "mitigation:")
		if !ok {
			continue
		}
		if m := strings.TrimSpace(rest); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
