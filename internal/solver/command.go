package solver

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Runner lets tests stub the OCR binary.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// CommandSolver pipes the image into an OCR binary and reads the guess from
// its standard output.
type CommandSolver struct {
	command string
	args    []string
	timeout time.Duration
	runner  Runner
}

func NewCommandSolver(command string, args []string, timeout time.Duration) *CommandSolver {
	return &CommandSolver{
		command: command,
		args:    args,
		timeout: timeout,
		runner:  execRunner{},
	}
}

// WithRunner replaces the process runner.
func (s *CommandSolver) WithRunner(r Runner) *CommandSolver {
	s.runner = r
	return s
}

func (s *CommandSolver) Solve(ctx context.Context, image []byte) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, err := s.runner.Run(ctx, image, s.command, s.args...)
	if err != nil {
		zap.S().Named("solver").Warnw("ocr command failed",
			"command", s.command,
			"duration", time.Since(start),
			"stderr", truncate(stderr, 1<<10),
		)
		return "", errors.Wrapf(err, "running %s", s.command)
	}

	return clean(stdout), nil
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
