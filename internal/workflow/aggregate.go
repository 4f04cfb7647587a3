package workflow

import (
	"github.com/venturahq/ventura/internal/domain"
)

// Degraded phases still inform the composite, at a discount.
const degradedWeight = 0.75

// AggregateSequential folds phase results into the final report. Pure
// function of its inputs; callers stamp SessionID and GeneratedAt.
func AggregateSequential(outcome PhaseOutcome, threshold float64) domain.Report {
	report := domain.Report{
		Mode:       domain.ModeSequential,
		Phases:     outcome.Phases,
		Financials: outcome.Financials,
	}

	total := 0.0
	for _, p := range outcome.Phases {
		if p.Status == domain.StepDegraded {
			report.DegradedPhases = append(report.DegradedPhases, p.PhaseName)
			total += p.Confidence * degradedWeight
			continue
		}
		total += p.Confidence
	}
	if len(outcome.Phases) > 0 {
		report.CompositeScore = total / float64(len(outcome.Phases))
	}

	switch {
	case outcome.Aborted:
		report.OverallStatus = domain.OverallAborted
		report.FailedPhase = outcome.FailedPhase
	case len(report.DegradedPhases) > 0:
		report.OverallStatus = domain.OverallWithWarnings
	case report.CompositeScore >= threshold:
		report.OverallStatus = domain.OverallValidated
	default:
		report.OverallStatus = domain.OverallNotViable
	}
	return report
}

// AggregateSwarm folds scenario results into a composite risk view. Failed
// scenarios contribute the penalty severity: an unanalyzed risk is assumed
// high, not absent.
func AggregateSwarm(results []domain.ScenarioResult, penaltySeverity float64) domain.Report {
	report := domain.Report{
		Mode:      domain.ModeSwarm,
		Scenarios: results,
	}

	totalRisk := 0.0
	for _, r := range results {
		if r.Status == domain.StepFailed || r.SeverityScore == nil {
			report.FailedScenarios = append(report.FailedScenarios, r.ScenarioType)
			totalRisk += penaltySeverity
			continue
		}
		totalRisk += *r.SeverityScore
	}

	meanRisk := 0.0
	if len(results) > 0 {
		meanRisk = totalRisk / float64(len(results))
	}
	// Score is resilience on 0..1: 10 is catastrophic mean severity.
	report.CompositeScore = (10 - meanRisk) / 10

	switch {
	case meanRisk < 5 && len(report.FailedScenarios) == 0:
		report.OverallStatus = domain.OverallValidated
	case meanRisk < 7:
		report.OverallStatus = domain.OverallWithWarnings
	default:
		report.OverallStatus = domain.OverallNotViable
	}
	return report
}
