// Package command adapts shell commands into microburn units for the CLI.
// One hit is one completed process run; prepare and teardown commands run
// once around a unit's sampling phase.
package command

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/microburn/microburn"

	"github.com/microburn/microburn/internal/config"
)

const maxCapturedOutput = 1024

// Builder constructs units that execute commands through a shell.
type Builder struct {
	shell string
	ctx   context.Context
}

// NewBuilder returns a Builder running commands with the given shell
// (e.g. /bin/sh). The context bounds every spawned process.
func NewBuilder(ctx context.Context, shell string) (*Builder, error) {
	if strings.TrimSpace(shell) == "" {
		return nil, fmt.Errorf("shell must not be empty")
	}
	if _, err := exec.LookPath(shell); err != nil {
		return nil, fmt.Errorf("shell %q: %w", shell, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Builder{shell: shell, ctx: ctx}, nil
}

// Unit converts one configured command into registration options for
// Runner.Add. Command output is discarded; a failing process surfaces its
// exit status and a trailing snippet of stderr.
func (b *Builder) Unit(uc config.UnitConfig) microburn.UnitOptions {
	opts := microburn.UnitOptions{
		Unit: func() error { return b.runOnce(uc.Command) },
	}
	if strings.TrimSpace(uc.Prepare) != "" {
		opts.Prepare = func() error { return b.runOnce(uc.Prepare) }
	}
	if strings.TrimSpace(uc.Teardown) != "" {
		opts.Teardown = func() error { return b.runOnce(uc.Teardown) }
	}
	return opts
}

func (b *Builder) runOnce(command string) error {
	cmd := exec.CommandContext(b.ctx, b.shell, "-c", command)
	cmd.Stdout = io.Discard
	var stderr tailBuffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if snippet := stderr.String(); snippet != "" {
			return fmt.Errorf("%s: %w: %s", command, err, snippet)
		}
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// tailBuffer keeps the last maxCapturedOutput bytes written to it, so error
// messages carry the end of a failing command's stderr without unbounded
// growth across thousands of benchmark invocations.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > maxCapturedOutput {
		t.buf = t.buf[len(t.buf)-maxCapturedOutput:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
