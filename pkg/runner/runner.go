// Package runner launches the external binaries that do the actual dumping
// and loading.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner runs an external program to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecError is returned when a program exits non-zero.
type ExecError struct {
	Command  string
	ExitCode int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

// Exec runs programs with os/exec. Stdout and stderr of the child are both
// copied to Out as they are produced; nothing is buffered in memory.
type Exec struct {
	Out io.Writer
	Env []string // appended to the environment of the current process
}

var _ Runner = &Exec{}

// NewExec returns an Exec writing to out, or to os.Stdout when out is nil.
func NewExec(out io.Writer) *Exec {
	if out == nil {
		out = os.Stdout
	}
	return &Exec{Out: out}
}

// Run starts name and waits for it. The context is checked before the
// program starts but a running program is never killed: it gets the same
// signals as this process and is left to handle them.
func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdout = e.Out
	cmd.Stderr = e.Out
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExecError{Command: name, ExitCode: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("could not run %s: %w", name, err)
	}
	return nil
}

// Invocation is one recorded call of a Recorder.
type Invocation struct {
	Name string
	Args []string
}

// String renders the invocation as a shell-like command line.
func (i Invocation) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// Recorder is a Runner that records invocations instead of running them.
// OnRun, if set, is called for every invocation and its error returned; it
// is where tests emulate what the real program leaves on disk.
type Recorder struct {
	Invocations []Invocation
	OnRun       func(inv Invocation) error
}

var _ Runner = &Recorder{}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) error {
	inv := Invocation{Name: name, Args: append([]string(nil), args...)}
	r.Invocations = append(r.Invocations, inv)
	if r.OnRun != nil {
		return r.OnRun(inv)
	}
	return nil
}
