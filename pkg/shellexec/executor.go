// Package shellexec abstracts command execution for the execution
// delegate. Failures never surface as Go errors: the contract is a
// captured output string plus an exit code, with 124 reserved for
// timeouts, so the delegate can always report something usable back to
// the model.
package shellexec

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single command when the caller does not
// specify one.
const DefaultTimeout = 30 * time.Second

// TimeoutExitCode follows the shell convention for timed-out commands.
const TimeoutExitCode = 124

// Executor runs commands in some environment (local shell, container).
type Executor interface {
	// Execute runs cmd and returns its combined output and exit code.
	Execute(ctx context.Context, cmd string, timeout time.Duration) (string, int)

	// ExecuteBackground starts cmd without waiting for it. Failures are
	// silently ignored.
	ExecuteBackground(cmd string)
}

// LocalExecutor runs commands through `sh -c` in a working directory.
type LocalExecutor struct {
	WorkingDirectory string
}

func NewLocalExecutor(workingDirectory string) *LocalExecutor {
	return &LocalExecutor{WorkingDirectory: workingDirectory}
}

func (e *LocalExecutor) Execute(ctx context.Context, cmd string, timeout time.Duration) (string, int) {
	return runCommand(ctx, timeout, e.WorkingDirectory, "sh", "-c", cmd)
}

func (e *LocalExecutor) ExecuteBackground(cmd string) {
	c := exec.Command("sh", "-c", cmd)
	c.Dir = e.WorkingDirectory
	if err := c.Start(); err != nil {
		log.Debug().Err(err).Str("cmd", cmd).Msg("Background command failed to start")
		return
	}
	go func() {
		_ = c.Wait()
	}()
}

var _ Executor = (*LocalExecutor)(nil)

// DockerExecutor runs commands inside a container via docker exec.
type DockerExecutor struct {
	ContainerName string
}

func NewDockerExecutor(containerName string) *DockerExecutor {
	return &DockerExecutor{ContainerName: containerName}
}

func (e *DockerExecutor) Execute(ctx context.Context, cmd string, timeout time.Duration) (string, int) {
	return runCommand(ctx, timeout, "", "docker", "exec", e.ContainerName, "sh", "-c", cmd)
}

func (e *DockerExecutor) ExecuteBackground(cmd string) {
	c := exec.Command("docker", "exec", "-d", e.ContainerName, "sh", "-c", cmd)
	if err := c.Start(); err != nil {
		log.Debug().Err(err).Str("cmd", cmd).Msg("Background docker command failed to start")
		return
	}
	go func() {
		_ = c.Wait()
	}()
}

var _ Executor = (*DockerExecutor)(nil)

func runCommand(ctx context.Context, timeout time.Duration, dir string, name string, args ...string) (string, int) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(cmdCtx, name, args...)
	c.Dir = dir

	start := time.Now()
	out, err := c.CombinedOutput()
	elapsed := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		log.Warn().Dur("timeout", timeout).Str("cmd", name).Msg("Command timed out")
		return fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())), TimeoutExitCode
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return fmt.Sprintf("Error executing command: %v", err), 1
		}
	}

	log.Debug().
		Int("exit_code", exitCode).
		Dur("elapsed", elapsed).
		Msg("Command finished")

	return string(out), exitCode
}
