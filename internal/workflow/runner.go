package workflow

import (
	"context"
	"fmt"
	"log"

	"github.com/venturahq/ventura/internal/agent"
	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/retry"
)

// PhaseRunner executes the sequential pipeline. Phases run strictly in
// order; each one sees the accumulated findings of those before it, and a
// failed phase ends the session with everything recorded so far intact.
type PhaseRunner struct {
	Client agent.ReasoningClient
	Exec   *retry.Executor
	Cfg    Config

	// OnPhase, when set, receives each phase result as soon as it is final
	// so callers can persist progress incrementally.
	OnPhase func(domain.PhaseResult)
}

type PhaseOutcome struct {
	Phases      []domain.PhaseResult
	Financials  *domain.FinancialProjection
	Aborted     bool
	FailedPhase string
	FailureErr  error
}

const financialPhaseName = "Financial Modeling"

func (r *PhaseRunner) Run(ctx context.Context, idea domain.Idea) PhaseOutcome {
	outcome := PhaseOutcome{Phases: []domain.PhaseResult{}}

	for i, name := range domain.PhaseNames {
		index := i + 1
		specialist := domain.PhaseSpecialists[name]
		startedAt := timeNow()

		var toolCalls []domain.ToolCallRecord
		redFlag := false
		if name == financialPhaseName && idea.Financials != nil {
			toolCalls, outcome.Financials, redFlag = r.runFinancialTools(ctx, idea.Financials)
		}

		prompt := agent.BuildPrompt(agent.PromptInput{
			Role:         specialist,
			Objective:    phaseObjective(name),
			Idea:         idea,
			PriorContext: r.priorContext(outcome.Phases, outcome.Financials),
		})

		analysis, attempts, err := retry.Do(ctx, r.Exec, retry.ClassReasoning, r.Cfg.ReasoningPolicy,
			func(ctx context.Context) (agent.Analysis, error) {
				return r.Client.Invoke(ctx, specialist, prompt)
			})
		if err != nil {
			// The failed phase is not recorded; the session aborts with the
			// results that actually completed.
			log.Printf("phase runner: phase=%d name=%q aborted after %d attempt(s): %v", index, name, attempts, err)
			outcome.Aborted = true
			outcome.FailedPhase = name
			outcome.FailureErr = err
			return outcome
		}

		status := domain.StepSuccess
		if analysis.Confidence < r.Cfg.ConfidenceThreshold || redFlag {
			status = domain.StepDegraded
		}

		result := domain.PhaseResult{
			PhaseIndex: index,
			PhaseName:  name,
			Specialist: specialist,
			Output:     analysis.Text,
			ToolCalls:  toolCalls,
			Confidence: analysis.Confidence,
			Status:     status,
			RetryCount: attempts - 1,
			StartedAt:  startedAt,
			EndedAt:    timeNow(),
		}
		outcome.Phases = append(outcome.Phases, result)
		if r.OnPhase != nil {
			r.OnPhase(result)
		}
	}
	return outcome
}

func (r *PhaseRunner) priorContext(phases []domain.PhaseResult, fin *domain.FinancialProjection) string {
	prior := BuildPriorContext(phases, r.Cfg.ContextMaxBytes)
	if fin == nil {
		return prior
	}
	summary := fmt.Sprintf("## Computed Financials\nNPV: %.2f at %.1f%% discount", fin.NPV, fin.DiscountRate*100)
	if fin.IRR != nil {
		summary += fmt.Sprintf("\nIRR: %.2f%%", *fin.IRR*100)
	} else {
		summary += "\nIRR: undefined for this cash flow shape"
	}
	if fin.PaybackPeriods != nil {
		summary += fmt.Sprintf("\nPayback: period %d", *fin.PaybackPeriods)
	} else {
		summary += "\nPayback: investment never recovered within the horizon"
	}
	if prior == "" {
		return summary
	}
	return prior + "\n\n" + summary
}

func phaseObjective(name string) string {
	switch name {
	case "Market Research":
		return "Size the market and characterize demand for the idea."
	case financialPhaseName:
		return "Assess financial viability using the computed figures below."
	case "Legal & Regulatory":
		return "Identify licensing, liability, and compliance constraints."
	case "Technical Feasibility":
		return "Assess whether the product can be built and operated as described."
	case "Competitive Analysis":
		return "Map competitors and the idea's defensibility against them."
	case "Risk Assessment":
		return "Enumerate the top risks across all prior findings."
	case "Strategic Planning":
		return "Synthesize prior findings into a go/no-go recommendation and plan."
	}
	return "Assess the business idea below."
}
