// Package agent defines the specialist reasoning layer. A ReasoningClient
// turns a role and a prompt into analysis text plus a self-reported
// confidence; everything above it treats that output as opaque.
package agent

import (
	"context"
	"sync"

	"github.com/venturahq/ventura/internal/domain"
)

type Analysis struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	TokensIn   int64   `json:"tokens_in,omitempty"`
	TokensOut  int64   `json:"tokens_out,omitempty"`
}

type ReasoningClient interface {
	Invoke(ctx context.Context, role domain.Specialist, prompt string) (Analysis, error)
}

// Scripted replays canned analyses in order per role. Used by tests and by
// the dry-run mode of the CLI.
type Scripted struct {
	ByRole  map[domain.Specialist][]ScriptStep
	Default ScriptStep

	mu     sync.Mutex
	cursor map[domain.Specialist]int
}

type ScriptStep struct {
	Analysis Analysis
	Err      error
}

func NewScripted() *Scripted {
	return &Scripted{
		ByRole:  map[domain.Specialist][]ScriptStep{},
		Default: ScriptStep{Analysis: Analysis{Text: "analysis complete", Confidence: 0.9}},
		cursor:  map[domain.Specialist]int{},
	}
}

func (s *Scripted) Push(role domain.Specialist, step ScriptStep) {
	s.ByRole[role] = append(s.ByRole[role], step)
}

func (s *Scripted) Invoke(ctx context.Context, role domain.Specialist, _ string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, domain.Timeout("reasoning cancelled", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := s.ByRole[role]
	i := s.cursor[role]
	if i >= len(steps) {
		if s.Default.Err != nil {
			return Analysis{}, s.Default.Err
		}
		return s.Default.Analysis, nil
	}
	s.cursor[role] = i + 1
	if steps[i].Err != nil {
		return Analysis{}, steps[i].Err
	}
	return steps[i].Analysis, nil
}
