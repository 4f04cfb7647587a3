package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/venturahq/ventura/internal/agent"
	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/retry"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReasoningPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond, BackoffMultiplier: 2, MaxDelay: time.Millisecond}
	cfg.ToolPolicy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Microsecond, BackoffMultiplier: 2, MaxDelay: time.Millisecond}
	cfg.ScenarioTimeout = 5 * time.Second
	cfg.SwarmDeadline = 10 * time.Second
	return cfg
}

func testIdea() domain.Idea {
	return domain.Idea{
		Description:  "On-demand tool rental for hobbyist workshops",
		Industry:     "consumer rental",
		TargetMarket: "urban hobbyists",
		BusinessMod:  "marketplace",
	}
}

func newRunner(client agent.ReasoningClient) *PhaseRunner {
	return &PhaseRunner{
		Client: client,
		Exec:   retry.NewExecutor(5, time.Minute),
		Cfg:    testConfig(),
	}
}

func TestPhaseRunnerCompletesAllPhases(t *testing.T) {
	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "solid findings\nConfidence: 0.9", Confidence: 0.9}}

	outcome := newRunner(client).Run(context.Background(), testIdea())
	if outcome.Aborted {
		t.Fatalf("unexpected abort on phase %q: %v", outcome.FailedPhase, outcome.FailureErr)
	}
	if len(outcome.Phases) != len(domain.PhaseNames) {
		t.Fatalf("got %d phases, want %d", len(outcome.Phases), len(domain.PhaseNames))
	}
	for i, p := range outcome.Phases {
		if p.PhaseIndex != i+1 {
			t.Fatalf("phase %d has index %d", i, p.PhaseIndex)
		}
		if p.PhaseName != domain.PhaseNames[i] {
			t.Fatalf("phase %d named %q, want %q", i, p.PhaseName, domain.PhaseNames[i])
		}
		if p.Status != domain.StepSuccess {
			t.Fatalf("phase %q status %s, want success", p.PhaseName, p.Status)
		}
		if p.Specialist != domain.PhaseSpecialists[p.PhaseName] {
			t.Fatalf("phase %q ran %s", p.PhaseName, p.Specialist)
		}
	}
}

func TestPhaseRunnerAbortsOnThirdPhaseFailure(t *testing.T) {
	client := agent.NewScripted()
	good := agent.ScriptStep{Analysis: agent.Analysis{Text: "fine", Confidence: 0.85}}
	// Phases 1 and 2 are the economist; phase 3 is the lawyer, and fails
	// fatally so no retry applies.
	client.Push(domain.SpecialistEconomist, good)
	client.Push(domain.SpecialistEconomist, good)
	client.Push(domain.SpecialistLawyer, agent.ScriptStep{Err: domain.InvalidArgument("unanalyzable jurisdiction")})

	outcome := newRunner(client).Run(context.Background(), testIdea())
	if !outcome.Aborted {
		t.Fatal("expected abort")
	}
	if len(outcome.Phases) != 2 {
		t.Fatalf("got %d recorded phases, want exactly 2", len(outcome.Phases))
	}
	if outcome.FailedPhase != "Legal & Regulatory" {
		t.Fatalf("failed phase %q", outcome.FailedPhase)
	}
	if outcome.Phases[0].PhaseName != "Market Research" || outcome.Phases[1].PhaseName != "Financial Modeling" {
		t.Fatalf("retained phases wrong: %+v", outcome.Phases)
	}
}

func TestPhaseRunnerRetriesTransientThenRecords(t *testing.T) {
	client := agent.NewScripted()
	client.Push(domain.SpecialistEconomist, agent.ScriptStep{Err: domain.Unavailable("backend busy", nil)})
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "recovered", Confidence: 0.8}}

	outcome := newRunner(client).Run(context.Background(), testIdea())
	if outcome.Aborted {
		t.Fatalf("unexpected abort: %v", outcome.FailureErr)
	}
	if outcome.Phases[0].RetryCount != 1 {
		t.Fatalf("phase 1 retry count %d, want 1", outcome.Phases[0].RetryCount)
	}
	if outcome.Phases[1].RetryCount != 0 {
		t.Fatalf("phase 2 retry count %d, want 0", outcome.Phases[1].RetryCount)
	}
}

func TestPhaseRunnerDegradesLowConfidence(t *testing.T) {
	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "thin evidence", Confidence: 0.55}}

	outcome := newRunner(client).Run(context.Background(), testIdea())
	if outcome.Aborted {
		t.Fatal("low confidence must degrade, not abort")
	}
	for _, p := range outcome.Phases {
		if p.Status != domain.StepDegraded {
			t.Fatalf("phase %q status %s, want degraded", p.PhaseName, p.Status)
		}
	}
}

func TestPhaseRunnerFinancialRedFlagDegradesPhase(t *testing.T) {
	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "looks great", Confidence: 0.95}}

	idea := testIdea()
	idea.Financials = &domain.FinancialAssumptions{
		// Never recovers: NPV is negative and IRR undefined.
		CashFlows:    []float64{-1000, -200, -300},
		DiscountRate: 0.1,
	}
	outcome := newRunner(client).Run(context.Background(), idea)
	if outcome.Aborted {
		t.Fatalf("unexpected abort: %v", outcome.FailureErr)
	}

	var financial *domain.PhaseResult
	for i := range outcome.Phases {
		if outcome.Phases[i].PhaseName == financialPhaseName {
			financial = &outcome.Phases[i]
		}
	}
	if financial == nil {
		t.Fatal("financial phase missing")
	}
	if financial.Status != domain.StepDegraded {
		t.Fatalf("financial phase status %s, want degraded despite confidence 0.95", financial.Status)
	}
	if len(financial.ToolCalls) == 0 {
		t.Fatal("financial phase recorded no tool calls")
	}
	for _, tc := range financial.ToolCalls {
		if tc.AttemptCount < 1 {
			t.Fatalf("tool call %s has attempt count %d", tc.ToolName, tc.AttemptCount)
		}
	}
	if outcome.Financials == nil {
		t.Fatal("projection missing")
	}
	if outcome.Financials.IRR != nil {
		t.Fatal("IRR should be undefined for all-negative flows")
	}
	if outcome.Financials.PaybackPeriods != nil {
		t.Fatal("payback should be undefined")
	}
}

func TestPhaseRunnerHealthyFinancialsStaySuccess(t *testing.T) {
	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "strong", Confidence: 0.9}}

	idea := testIdea()
	idea.Financials = &domain.FinancialAssumptions{
		CashFlows:    []float64{-1000, 300, 400, 500, 400},
		DiscountRate: 0.10,
	}
	outcome := newRunner(client).Run(context.Background(), idea)
	if outcome.Aborted {
		t.Fatalf("unexpected abort: %v", outcome.FailureErr)
	}
	if outcome.Financials == nil || outcome.Financials.IRR == nil {
		t.Fatal("expected defined IRR")
	}
	if *outcome.Financials.IRR < 0.17 || *outcome.Financials.IRR > 0.19 {
		t.Fatalf("IRR %.4f outside expected band", *outcome.Financials.IRR)
	}
	if outcome.Financials.PaybackPeriods == nil || *outcome.Financials.PaybackPeriods != 3 {
		t.Fatalf("payback %+v, want 3", outcome.Financials.PaybackPeriods)
	}
	for _, p := range outcome.Phases {
		if p.PhaseName == financialPhaseName && p.Status != domain.StepSuccess {
			t.Fatalf("financial phase status %s", p.Status)
		}
	}
}

func TestFinancialToolsFailOnOwnBreakerNotCache(t *testing.T) {
	exec := retry.NewExecutor(1, time.Minute)
	failing := retry.Policy{MaxAttempts: 1, BaseDelay: time.Microsecond, BackoffMultiplier: 2, MaxDelay: time.Millisecond}
	_, _, err := retry.Do(context.Background(), exec, retry.ClassCompute, failing, func(context.Context) (struct{}, error) {
		return struct{}{}, domain.Unavailable("kernel stalled", nil)
	})
	if err == nil {
		t.Fatal("expected exhaustion")
	}
	if state := exec.BreakerState(retry.ClassCompute); state != retry.BreakerOpen {
		t.Fatalf("compute breaker %s, want open", state)
	}

	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "strong", Confidence: 0.95}}
	r := &PhaseRunner{Client: client, Exec: exec, Cfg: testConfig()}

	idea := testIdea()
	idea.Financials = &domain.FinancialAssumptions{
		CashFlows:    []float64{-1000, 300, 400, 500, 400},
		DiscountRate: 0.10,
	}
	outcome := r.Run(context.Background(), idea)
	if outcome.Aborted {
		t.Fatalf("unexpected abort: %v", outcome.FailureErr)
	}

	var financial *domain.PhaseResult
	for i := range outcome.Phases {
		if outcome.Phases[i].PhaseName == financialPhaseName {
			financial = &outcome.Phases[i]
		}
	}
	if financial == nil {
		t.Fatal("financial phase missing")
	}
	if financial.Status != domain.StepDegraded {
		t.Fatalf("financial phase status %s, want degraded with compute open", financial.Status)
	}
	if len(financial.ToolCalls) == 0 {
		t.Fatal("financial phase recorded no tool calls")
	}
	for _, tc := range financial.ToolCalls {
		if tc.Outcome != domain.ToolCallTransientFailure {
			t.Fatalf("tool call %s outcome %s, want transient failure", tc.ToolName, tc.Outcome)
		}
		if tc.AttemptCount != 0 {
			t.Fatalf("tool call %s ran %d attempts through an open breaker", tc.ToolName, tc.AttemptCount)
		}
	}
	// Only the compute breaker tripped. Cache and reasoning stay healthy.
	if state := exec.BreakerState(retry.ClassCache); state != retry.BreakerClosed {
		t.Fatalf("cache breaker %s, want closed", state)
	}
	if state := exec.BreakerState(retry.ClassReasoning); state != retry.BreakerClosed {
		t.Fatalf("reasoning breaker %s, want closed", state)
	}
}

func TestPhaseRunnerReportsProgress(t *testing.T) {
	client := agent.NewScripted()
	client.Default = agent.ScriptStep{Analysis: agent.Analysis{Text: "ok", Confidence: 0.9}}
	r := newRunner(client)
	seen := []string{}
	r.OnPhase = func(p domain.PhaseResult) { seen = append(seen, p.PhaseName) }

	r.Run(context.Background(), testIdea())
	if len(seen) != len(domain.PhaseNames) {
		t.Fatalf("progress callback fired %d times", len(seen))
	}
	if !strings.HasPrefix(seen[0], "Market") {
		t.Fatalf("first progress %q", seen[0])
	}
}

func TestBuildPriorContextTruncatesOldestFirst(t *testing.T) {
	phases := []domain.PhaseResult{
		{PhaseIndex: 1, PhaseName: "Market Research", Output: strings.Repeat("a", 400), Confidence: 0.9, Status: domain.StepSuccess},
		{PhaseIndex: 2, PhaseName: "Financial Modeling", Output: strings.Repeat("b", 400), Confidence: 0.9, Status: domain.StepSuccess},
	}
	out := BuildPriorContext(phases, 500)
	if !strings.Contains(out, "Financial Modeling") {
		t.Fatal("latest phase must survive truncation")
	}
	if strings.Contains(out, strings.Repeat("a", 400)) {
		t.Fatal("oldest phase should have been dropped")
	}
	if !strings.Contains(out, "truncated") {
		t.Fatal("truncation marker missing")
	}

	full := BuildPriorContext(phases, 100000)
	if !strings.Contains(full, "Market Research") || !strings.Contains(full, "Financial Modeling") {
		t.Fatal("untruncated context missing phases")
	}
}
