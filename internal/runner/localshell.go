package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
)

// ModuleLocalShell is the module locator of the built-in shell runner.
const ModuleLocalShell = "actiond.runners.localshell"

const defaultShellTimeout = 60 * time.Second

// LocalShellRunner executes the live action's "cmd" parameter through the
// local shell. A nonzero exit is a completed execution with a failed result,
// not a dispatch fault; only failing to run the command at all is a fault.
type LocalShellRunner struct {
	shell   string
	timeout time.Duration
}

func NewLocalShellRunner() (Runner, error) {
	return &LocalShellRunner{shell: "/bin/sh", timeout: defaultShellTimeout}, nil
}

func (r *LocalShellRunner) Dispatch(ctx context.Context, la domain.LiveAction) (domain.Metadata, error) {
	cmd, ok := la.Parameters["cmd"].(string)
	if !ok || strings.TrimSpace(cmd) == "" {
		return nil, fmt.Errorf("local shell runner requires a cmd parameter")
	}

	timeout := r.timeout
	if seconds, ok := la.Parameters["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	proc := exec.CommandContext(runCtx, r.shell, "-c", cmd)
	if cwd, ok := la.Parameters["cwd"].(string); ok && strings.TrimSpace(cwd) != "" {
		proc.Dir = cwd
	}
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %q: %w", cmd, err)
		}
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run %q: %w", cmd, ctxErr)
	}

	return domain.Metadata{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
		"succeeded": exitCode == 0,
	}, nil
}
