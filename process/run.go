package process

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent to the process group first,
// then SIGKILL after GracePeriod.
//
// A non-zero exit yields an EXTERNAL_SERVICE_ERROR carrying the exit code and
// the tail of stderr; a context deadline yields a TIMEOUT. The Result is
// returned alongside the error whenever the process was started.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, apperrors.InvalidInput("binary", "is required")
	}

	gracePeriod := cmd.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	// Process group so the whole tree goes down (yt-dlp forks ffmpeg).
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = gracePeriod

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return result, apperrors.Timeout(cmd.Binary).WithCause(err)
		}
		return result, apperrors.ExternalServiceError(cmd.Binary, ctxErr).
			WithDetail("reason", "canceled")
	}
	appErr := apperrors.ExternalServiceError(cmd.Binary, err).
		WithDetail("exit_code", result.ExitCode)
	if tail := result.StderrTail(); tail != "" {
		appErr = appErr.WithDetail("stderr", tail)
	}
	return result, appErr
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
