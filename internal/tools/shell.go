package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

var ErrShellDisabled = errors.New("shell_command is disabled")

// ShellCommand runs a command through /bin/sh inside the workspace.
type ShellCommand struct {
	ws      *Workspace
	enabled bool
	timeout time.Duration
}

func NewShellCommand(ws *Workspace, enabled bool, timeout time.Duration) *ShellCommand {
	return &ShellCommand{ws: ws, enabled: enabled, timeout: timeout}
}

func (s *ShellCommand) Name() string { return "shell_command" }

func (s *ShellCommand) Description() string {
	return "Executes a shell command in the agent workspace and returns its output. Params: command."
}

func (s *ShellCommand) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	if !s.enabled {
		return "", ErrShellDisabled
	}
	command, err := stringParam(params, "command")
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = s.ws.Root()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out.String(), fmt.Errorf("command timed out after %s", s.timeout)
	}
	if err != nil {
		return out.String(), fmt.Errorf("command failed: %w", err)
	}
	return out.String(), nil
}
