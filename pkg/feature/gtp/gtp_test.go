package gtp

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

func TestCreate(t *testing.T) {
	runner := connection.NewFakeRunner().On("ip link add gtp1 type gtp role sgsn", "")
	require.NoError(t, New(runner, "").Create(context.Background(), "gtp1", ""))
	assert.Equal(t, []string{"ip link add gtp1 type gtp role sgsn"}, runner.Calls())
}

func TestCreateInNamespace(t *testing.T) {
	runner := connection.NewFakeRunner().On("ip netns exec blue ip link add gtp1 type gtp role ggsn", "")
	require.NoError(t, New(runner, "blue").Create(context.Background(), "gtp1", "ggsn"))
}

func TestCreateFailure(t *testing.T) {
	runner := connection.NewFakeRunner().OnResult("ip link add gtp1 type gtp role sgsn",
		connection.Result{ExitCode: 1, Stderr: "Error"})
	err := New(runner, "").Create(context.Background(), "gtp1", "sgsn")
	var cmdErr *types.CommandFailedError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestCreateInvalidRole(t *testing.T) {
	runner := connection.NewFakeRunner()
	assert.Error(t, New(runner, "").Create(context.Background(), "gtp1", "pgw"))
	assert.Empty(t, runner.Calls())
}

func TestDelete(t *testing.T) {
	runner := connection.NewFakeRunner().On("ip link del gtp1", "")
	require.NoError(t, New(runner, "").Delete(context.Background(), "gtp1"))
	assert.Equal(t, []string{"ip link del gtp1"}, runner.Calls())
}

func TestDeleteMissingDevice(t *testing.T) {
	var buf bytes.Buffer
	pkg.SetOutput(&buf)
	defer pkg.SetOutput(os.Stderr)

	runner := connection.NewFakeRunner().OnResult("ip link del gtp1",
		connection.Result{ExitCode: 1, Stderr: "Cannot find device \"gtp1\""})
	require.NoError(t, New(runner, "").Delete(context.Background(), "gtp1"))
	if !strings.Contains(buf.String(), "GTP device gtp1 not present!") {
		t.Errorf("expected log message, got %q", buf.String())
	}
}

func TestDeleteFailure(t *testing.T) {
	runner := connection.NewFakeRunner().OnResult("ip link del gtp1",
		connection.Result{ExitCode: 1, Stderr: "Error"})
	err := New(runner, "").Delete(context.Background(), "gtp1")
	var cmdErr *types.CommandFailedError
	assert.ErrorAs(t, err, &cmdErr)
}
