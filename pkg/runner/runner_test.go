package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExecStreamsCombinedOutput(t *testing.T) {
	var out bytes.Buffer
	r := NewExec(&out)
	err := r.Run(t.Context(), "/bin/sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "out\n")
	assert.Contains(t, out.String(), "err\n")
}

func TestExecNonZeroExit(t *testing.T) {
	var out bytes.Buffer
	r := NewExec(&out)
	err := r.Run(t.Context(), "/bin/sh", "-c", "echo failing; exit 3")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Equal(t, "/bin/sh", execErr.Command)
	assert.Equal(t, "/bin/sh exited with status 3", err.Error())
	assert.Equal(t, "failing\n", out.String())
}

func TestExecEnv(t *testing.T) {
	var out bytes.Buffer
	r := NewExec(&out)
	r.Env = []string{"MYDUMP_RUNNER_TEST=yes"}
	require.NoError(t, r.Run(t.Context(), "/bin/sh", "-c", "echo $MYDUMP_RUNNER_TEST"))
	assert.Equal(t, "yes\n", out.String())
}

func TestExecMissingBinary(t *testing.T) {
	r := NewExec(&bytes.Buffer{})
	err := r.Run(t.Context(), "/nonexistent/mydumper")
	require.Error(t, err)
	var execErr *ExecError
	assert.False(t, errors.As(err, &execErr))
}

func TestExecCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	var out bytes.Buffer
	err := NewExec(&out).Run(ctx, "/bin/sh", "-c", "echo never")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestNewExecDefaultsToStdout(t *testing.T) {
	assert.NotNil(t, NewExec(nil).Out)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	args := []string{"--outputdir=/tmp/x"}
	require.NoError(t, r.Run(t.Context(), "mydumper", args...))
	args[0] = "changed"
	require.Len(t, r.Invocations, 1)
	assert.Equal(t, "mydumper --outputdir=/tmp/x", r.Invocations[0].String())

	r.OnRun = func(inv Invocation) error { return &ExecError{Command: inv.Name, ExitCode: 1} }
	var execErr *ExecError
	assert.ErrorAs(t, r.Run(t.Context(), "myloader"), &execErr)
	assert.Len(t, r.Invocations, 2)
}
