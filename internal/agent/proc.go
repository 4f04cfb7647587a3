package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var errPTYUnsupported = errors.New("pty execution is not supported on this platform")

type procOptions struct {
	Command            string
	Args               []string
	Dir                string
	Prompt             string
	UsePTY             bool
	MaxTranscriptBytes int
}

type procResult struct {
	ExitCode   int
	Transcript string
	Truncated  bool
	Duration   time.Duration
}

// runProc executes the reasoning CLI once, feeding the prompt on stdin (or
// the pty when requested) and capturing a size-capped transcript. A missing
// pty falls back to stdin injection.
func runProc(ctx context.Context, opts procOptions) (procResult, error) {
	start := time.Now()
	if opts.MaxTranscriptBytes <= 0 {
		opts.MaxTranscriptBytes = 200000
	}
	transcript := newCappedBuffer(opts.MaxTranscriptBytes)

	var code int
	var err error
	if opts.UsePTY {
		code, err = runWithPTY(ctx, opts, transcript)
		if err != nil && errors.Is(err, errPTYUnsupported) {
			code, err = runInjected(ctx, opts, transcript)
		}
	} else {
		code, err = runInjected(ctx, opts, transcript)
	}

	return procResult{
		ExitCode:   code,
		Transcript: transcript.String(),
		Truncated:  transcript.Truncated(),
		Duration:   time.Since(start),
	}, err
}

func runInjected(ctx context.Context, opts procOptions, transcript io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Stdout = transcript
	cmd.Stderr = transcript

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return -1, err
	}
	if err := cmd.Start(); err != nil {
		return -1, err
	}
	if prompt := strings.TrimSpace(opts.Prompt); prompt != "" {
		_, _ = io.WriteString(stdin, prompt+"\n")
	}
	_ = stdin.Close()

	waitErr := cmd.Wait()
	return exitCode(cmd, waitErr), waitErr
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

type cappedBuffer struct {
	mu        sync.Mutex
	max       int
	buf       bytes.Buffer
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	if max <= 0 {
		max = 200000
	}
	return &cappedBuffer{max: max}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.max - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) <= remaining {
		_, _ = c.buf.Write(p)
		return len(p), nil
	}
	_, _ = c.buf.Write(p[:remaining])
	c.truncated = true
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *cappedBuffer) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}
