package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/redact"
)

// CLIClient runs a local reasoning CLI per invocation. The role is passed
// via --role so one backend binary can serve every specialist.
type CLIClient struct {
	Command            string
	Args               []string
	Dir                string
	UsePTY             bool
	MaxTranscriptBytes int
	FallbackConfidence float64
	Redactor           *redact.Redactor
}

func NewCLIClient(command string, usePTY bool, redactor *redact.Redactor) *CLIClient {
	return &CLIClient{
		Command:            command,
		UsePTY:             usePTY,
		FallbackConfidence: 0.5,
		Redactor:           redactor,
	}
}

func (c *CLIClient) Invoke(ctx context.Context, role domain.Specialist, prompt string) (Analysis, error) {
	if strings.TrimSpace(c.Command) == "" {
		return Analysis{}, domain.FailedPrecondition("reasoning backend command is not configured")
	}
	args := append([]string{}, c.Args...)
	args = append(args, "--role", string(role))

	res, err := runProc(ctx, procOptions{
		Command:            c.Command,
		Args:               args,
		Dir:                c.Dir,
		Prompt:             prompt,
		UsePTY:             c.UsePTY,
		MaxTranscriptBytes: c.MaxTranscriptBytes,
	})
	text := res.Transcript
	if c.Redactor != nil {
		text = c.Redactor.Apply(text)
	}
	if err != nil {
		return Analysis{}, classifyProcError(err, res.ExitCode, text)
	}
	if res.ExitCode != 0 {
		return Analysis{}, classifyProcError(fmt.Errorf("backend exited with code %d", res.ExitCode), res.ExitCode, text)
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, domain.Internal("backend produced no output", nil)
	}
	return Analysis{
		Text:       text,
		Confidence: ParseConfidence(text, c.FallbackConfidence),
		TokensIn:   int64(len(prompt)) / 4,
		TokensOut:  int64(len(text)) / 4,
	}, nil
}

// Hints that a failure is the dependency's fault rather than the request's.
var transientHints = []string{
	"timeout",
	"context deadline",
	"rate limit",
	"too many requests",
	"temporar",
	"connection",
	"unavailable",
	"network",
	"i/o",
	"overloaded",
}

func classifyProcError(err error, exitCode int, transcript string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Timeout("reasoning backend timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.Timeout("reasoning backend cancelled", err)
	}
	probe := strings.ToLower(err.Error() + " " + tail(transcript, 2000))
	for _, hint := range transientHints {
		if strings.Contains(probe, hint) {
			return domain.Unavailable("reasoning backend transient failure", err)
		}
	}
	if exitCode < 0 {
		// Could not even start: missing binary, bad permissions.
		return domain.Unavailable("reasoning backend failed to start", err)
	}
	return domain.Internal("reasoning backend failed", err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
