// Package inference runs the external sleep-stage inference script.
package inference

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// Default and max timeout for inference commands.
const (
	DefaultTimeout = 60 * time.Second
	MaxTimeout     = 10 * time.Minute

	waitDelay = time.Second
)

// Request describes one invocation of the inference command.
type Request struct {
	Command string            // run via "sh -c"
	Dir     string            // working directory; ignored when missing
	Env     map[string]string // overlaid on the process environment
	Timeout time.Duration
}

// Result holds the output of a single inference run.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// Runner executes inference requests.
type Runner interface {
	Run(ctx context.Context, req Request) Result
}

// CommandRunner runs requests as local shell commands.
type CommandRunner struct{}

// Run executes the command with the given timeout and environment.
func (CommandRunner) Run(ctx context.Context, req Request) Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", req.Command) //nolint:gosec // command comes from service config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren of sh can hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay

	if req.Dir != "" {
		if info, err := os.Stat(req.Dir); err == nil && info.IsDir() {
			cmd.Dir = req.Dir
		}
	}

	// Inherit process environment and overlay request vars.
	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	start := time.Now()
	err := cmd.Run()
	if err == nil && runCtx.Err() != nil {
		err = runCtx.Err()
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		Err:      err,
	}
}
