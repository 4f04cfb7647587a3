package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/venturahq/ventura/internal/domain"
)

func testIdea() domain.Idea {
	return domain.Idea{
		Description:  "Subscription meal kits for shift workers",
		Industry:     "food delivery",
		TargetMarket: "night-shift healthcare staff",
		BusinessMod:  "subscription",
		Region:       "DE",
	}
}

func TestBuildPromptContainsRequiredSections(t *testing.T) {
	out := BuildPrompt(PromptInput{
		Role:         domain.SpecialistEconomist,
		Objective:    "Evaluate market attractiveness",
		Idea:         testIdea(),
		PriorContext: "Phase 1 found strong demand signals.",
	})
	for _, section := range []string{
		"Role:",
		"Objective:",
		"Business Idea:",
		"Prior Findings:",
		"Deliverables:",
		"Confidence: 0.NN",
	} {
		if !strings.Contains(out, section) {
			t.Fatalf("prompt missing %q:\n%s", section, out)
		}
	}
	if !strings.Contains(out, "night-shift healthcare staff") {
		t.Fatalf("prompt missing idea fields:\n%s", out)
	}
}

func TestBuildPromptScenarioVariant(t *testing.T) {
	out := BuildPrompt(PromptInput{
		Role:     domain.SpecialistLawyer,
		Idea:     testIdea(),
		Scenario: domain.ScenarioRegulatoryChanges,
	})
	if !strings.Contains(out, "Stress scenario:") {
		t.Fatalf("scenario prompt missing stress section:\n%s", out)
	}
	if !strings.Contains(out, "Mitigation:") {
		t.Fatalf("scenario prompt missing mitigation instruction:\n%s", out)
	}
	if strings.Contains(out, "Prior Findings:") {
		t.Fatalf("scenario prompt should not include prior findings:\n%s", out)
	}
}

func TestBuildPromptDefaultsEmptyObjective(t *testing.T) {
	out := BuildPrompt(PromptInput{Role: domain.SpecialistSynthesizer, Idea: testIdea()})
	if !strings.Contains(out, "Assess the business idea below.") {
		t.Fatalf("missing default objective:\n%s", out)
	}
}

func TestParseConfidence(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"analysis...\nConfidence: 0.85", 0.85},
		{"analysis...\nconfidence: 0.4\n", 0.4},
		{"analysis...\nConfidence: 1.7", 1.0},
		{"analysis...\nConfidence: -0.2", 0.0},
		{"no declaration at all", 0.5},
		{"Confidence: 0.9\nbut buried too far up\na\nb\nc\nd\ne\nf", 0.5},
	}
	for _, tc := range cases {
		if got := ParseConfidence(tc.text, 0.5); got != tc.want {
			t.Fatalf("ParseConfidence(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestScriptedReplaysPerRole(t *testing.T) {
	s := NewScripted()
	s.Push(domain.SpecialistEconomist, ScriptStep{Analysis: Analysis{Text: "first", Confidence: 0.8}})
	s.Push(domain.SpecialistEconomist, ScriptStep{Err: domain.Unavailable("down", nil)})

	got, err := s.Invoke(context.Background(), domain.SpecialistEconomist, "p")
	if err != nil || got.Text != "first" {
		t.Fatalf("step 1: got %+v, %v", got, err)
	}
	if _, err := s.Invoke(context.Background(), domain.SpecialistEconomist, "p"); err == nil {
		t.Fatal("step 2: expected scripted error")
	}
	// Exhausted scripts fall back to the default.
	got, err = s.Invoke(context.Background(), domain.SpecialistEconomist, "p")
	if err != nil || got.Text != "analysis complete" {
		t.Fatalf("default step: got %+v, %v", got, err)
	}
	// Other roles are unaffected.
	got, err = s.Invoke(context.Background(), domain.SpecialistLawyer, "p")
	if err != nil || got.Text != "analysis complete" {
		t.Fatalf("other role: got %+v, %v", got, err)
	}
}

func TestClassifyProcError(t *testing.T) {
	cases := []struct {
		err      error
		exitCode int
		tail     string
		want     domain.ErrorCode
	}{
		{context.DeadlineExceeded, -1, "", domain.CodeTimeout},
		{errString("exec: connection refused"), 1, "", domain.CodeUnavailable},
		{errString("backend exited with code 1"), 1, "error: rate limit exceeded", domain.CodeUnavailable},
		{errString("fork/exec: no such file"), -1, "", domain.CodeUnavailable},
		{errString("backend exited with code 2"), 2, "invalid flag", domain.CodeInternal},
	}
	for _, tc := range cases {
		got := classifyProcError(tc.err, tc.exitCode, tc.tail)
		typed, ok := domain.AsAppError(got)
		if !ok {
			t.Fatalf("classifyProcError(%v) returned %T, want AppError", tc.err, got)
		}
		if typed.Code != tc.want {
			t.Fatalf("classifyProcError(%v, %d, %q) = %s, want %s", tc.err, tc.exitCode, tc.tail, typed.Code, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
