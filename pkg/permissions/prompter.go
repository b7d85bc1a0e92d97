package permissions

import (
	"context"
	"errors"
	"os/exec"

	"github.com/rs/zerolog"
)

// Prompter asks the operator to approve a permission. Implementations
// block until the operator answers or ctx expires.
type Prompter interface {
	Prompt(ctx context.Context, key string, rationale Rationale) (bool, error)
}

// StaticPrompter answers every prompt the same way. For development
// configurations and tests.
type StaticPrompter struct {
	Grant bool
}

func (p StaticPrompter) Prompt(ctx context.Context, key string, rationale Rationale) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.Grant, nil
}

// ExecPrompter delegates the prompt to an external helper, typically a
// small UI binary on the device. The helper receives the key, rationale
// title and message as arguments; exit status zero means granted.
type ExecPrompter struct {
	Command string
	Logger  zerolog.Logger
}

func (p ExecPrompter) Prompt(ctx context.Context, key string, rationale Rationale) (bool, error) {
	if p.Command == "" {
		return false, errors.New("no prompt command configured")
	}

	cmd := exec.CommandContext(ctx, p.Command, key, rationale.Title, rationale.Message)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.Logger.Debug().Str("key", key).Int("status", exitErr.ExitCode()).Msg("Prompt helper declined permission")
		return false, nil
	}
	return false, err
}
