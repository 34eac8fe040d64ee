// Package opener launches a path or URL in the operating system's default
// handler and waits for the launcher process to exit.
package opener

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Opener opens a directory or URL in the default handler.
type Opener interface {
	Open(ctx context.Context, target string) error
}

// CommandOpener runs Command with the target appended as the last argument.
type CommandOpener struct {
	Command []string
}

// New returns a CommandOpener for the given command line. An empty command
// line selects the platform default.
func New(commandLine string) (*CommandOpener, error) {
	if strings.TrimSpace(commandLine) == "" {
		return &CommandOpener{Command: defaultCommand()}, nil
	}
	args, err := shellwords.Parse(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse opener command %q: %w", commandLine, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("opener command %q is empty", commandLine)
	}
	return &CommandOpener{Command: args}, nil
}

// Open spawns the opener and blocks until it exits.
func (o *CommandOpener) Open(ctx context.Context, target string) error {
	if len(o.Command) == 0 {
		return fmt.Errorf("no opener command configured")
	}
	args := append(append([]string{}, o.Command[1:]...), target)
	cmd := exec.CommandContext(ctx, o.Command[0], args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("open %s: %w (output: %s)", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// String returns the command line used to open targets.
func (o *CommandOpener) String() string {
	return strings.Join(o.Command, " ")
}
