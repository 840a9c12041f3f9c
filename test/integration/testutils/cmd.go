package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Command is a CLI invocation.
type Command struct {
	Binary string
	Args   []string
	// Env is appended to the process environment, so it overrides it.
	Env   []string
	NoLog bool
}

// Result is the outcome of a CLI invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// JSON decodes the stdout of the invocation.
func (r Result) JSON(v any) error {
	if err := json.Unmarshal(r.Stdout, v); err != nil {
		return fmt.Errorf("stdout is not JSON (stderr: %s): %w", r.Stderr, err)
	}
	return nil
}

// Run executes a command and waits for it. A non zero exit code is returned
// as an error together with the result.
func Run(ctx context.Context, c Command) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	env := append([]string{}, os.Environ()...)
	env = append(env, c.Env...)
	if c.NoLog {
		env = append(env, "FIELDWORK_NO_LOG=true")
	}
	cmd.Env = env

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}

	return res, err
}
