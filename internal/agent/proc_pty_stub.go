//go:build !linux && !darwin

package agent

import (
	"context"
	"io"
)

func runWithPTY(_ context.Context, _ procOptions, _ io.Writer) (int, error) {
	return -1, errPTYUnsupported
}
