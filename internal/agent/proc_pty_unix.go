//go:build linux || darwin

package agent

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// runWithPTY drives backends that refuse to stream output without a
// terminal attached.
func runWithPTY(ctx context.Context, opts procOptions, transcript io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return -1, errPTYUnsupported
	}
	defer func() {
		_ = ptmx.Close()
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		_, _ = io.Copy(transcript, ptmx)
	}()

	if prompt := strings.TrimSpace(opts.Prompt); prompt != "" {
		_, _ = io.WriteString(ptmx, prompt+"\n")
	}
	// EOT tells line-oriented REPL backends the prompt is complete.
	_, _ = ptmx.Write([]byte{4})

	waitErr := cmd.Wait()
	code := exitCode(cmd, waitErr)
	_ = ptmx.Close()

	select {
	case <-readerDone:
	case <-time.After(400 * time.Millisecond):
	}
	return code, waitErr
}
