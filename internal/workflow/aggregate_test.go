package workflow

import (
	"testing"

	"github.com/venturahq/ventura/internal/domain"
)

func phase(index int, name string, conf float64, status domain.StepStatus) domain.PhaseResult {
	return domain.PhaseResult{PhaseIndex: index, PhaseName: name, Confidence: conf, Status: status}
}

func TestAggregateSequentialValidated(t *testing.T) {
	outcome := PhaseOutcome{Phases: []domain.PhaseResult{
		phase(1, "Market Research", 0.9, domain.StepSuccess),
		phase(2, "Financial Modeling", 0.8, domain.StepSuccess),
	}}
	report := AggregateSequential(outcome, 0.70)
	if report.OverallStatus != domain.OverallValidated {
		t.Fatalf("status %s", report.OverallStatus)
	}
	if report.CompositeScore < 0.84 || report.CompositeScore > 0.86 {
		t.Fatalf("composite %v", report.CompositeScore)
	}
	if report.Mode != domain.ModeSequential {
		t.Fatalf("mode %s", report.Mode)
	}
}

func TestAggregateSequentialDegradedDiscounted(t *testing.T) {
	outcome := PhaseOutcome{Phases: []domain.PhaseResult{
		phase(1, "Market Research", 0.8, domain.StepSuccess),
		phase(2, "Financial Modeling", 0.8, domain.StepDegraded),
	}}
	report := AggregateSequential(outcome, 0.70)
	if report.OverallStatus != domain.OverallWithWarnings {
		t.Fatalf("status %s", report.OverallStatus)
	}
	want := (0.8 + 0.8*degradedWeight) / 2
	if diff := report.CompositeScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("composite %v, want %v", report.CompositeScore, want)
	}
	if len(report.DegradedPhases) != 1 || report.DegradedPhases[0] != "Financial Modeling" {
		t.Fatalf("degraded list %v", report.DegradedPhases)
	}
}

func TestAggregateSequentialAborted(t *testing.T) {
	outcome := PhaseOutcome{
		Phases: []domain.PhaseResult{
			phase(1, "Market Research", 0.9, domain.StepSuccess),
			phase(2, "Financial Modeling", 0.9, domain.StepSuccess),
		},
		Aborted:     true,
		FailedPhase: "Legal & Regulatory",
	}
	report := AggregateSequential(outcome, 0.70)
	if report.OverallStatus != domain.OverallAborted {
		t.Fatalf("status %s", report.OverallStatus)
	}
	if report.FailedPhase != "Legal & Regulatory" {
		t.Fatalf("failed phase %q", report.FailedPhase)
	}
	if len(report.Phases) != 2 {
		t.Fatalf("aborted report lost recorded phases: %d", len(report.Phases))
	}
}

func TestAggregateSequentialNotViableBelowThreshold(t *testing.T) {
	outcome := PhaseOutcome{Phases: []domain.PhaseResult{
		phase(1, "Market Research", 0.4, domain.StepSuccess),
	}}
	report := AggregateSequential(outcome, 0.70)
	if report.OverallStatus != domain.OverallNotViable {
		t.Fatalf("status %s", report.OverallStatus)
	}
}

func scenario(st domain.ScenarioType, severity float64, status domain.StepStatus) domain.ScenarioResult {
	r := domain.ScenarioResult{ScenarioType: st, Status: status}
	if status != domain.StepFailed {
		r.SeverityScore = &severity
	}
	return r
}

func TestAggregateSwarmLowRiskValidated(t *testing.T) {
	results := []domain.ScenarioResult{
		scenario(domain.ScenarioEconomicDownturn, 3, domain.StepSuccess),
		scenario(domain.ScenarioFundingDrought, 5, domain.StepSuccess),
	}
	report := AggregateSwarm(results, 7.5)
	if report.OverallStatus != domain.OverallValidated {
		t.Fatalf("status %s", report.OverallStatus)
	}
	if report.CompositeScore != 0.6 {
		t.Fatalf("composite %v", report.CompositeScore)
	}
}

func TestAggregateSwarmFailedScenariosPenalized(t *testing.T) {
	results := []domain.ScenarioResult{
		scenario(domain.ScenarioEconomicDownturn, 3, domain.StepSuccess),
		scenario(domain.ScenarioRegulatoryChanges, 0, domain.StepFailed),
	}
	report := AggregateSwarm(results, 7.5)
	// A failed scenario is assumed high risk, which blocks clean validation.
	if report.OverallStatus != domain.OverallWithWarnings {
		t.Fatalf("status %s", report.OverallStatus)
	}
	if len(report.FailedScenarios) != 1 || report.FailedScenarios[0] != domain.ScenarioRegulatoryChanges {
		t.Fatalf("failed scenarios %v", report.FailedScenarios)
	}
}

func TestAggregateSwarmHighRiskNotViable(t *testing.T) {
	results := []domain.ScenarioResult{
		scenario(domain.ScenarioEconomicDownturn, 9, domain.StepSuccess),
		scenario(domain.ScenarioFundingDrought, 8, domain.StepSuccess),
	}
	report := AggregateSwarm(results, 7.5)
	if report.OverallStatus != domain.OverallNotViable {
		t.Fatalf("status %s", report.OverallStatus)
	}
}
