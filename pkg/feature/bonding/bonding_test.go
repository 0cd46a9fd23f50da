package bonding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

func TestBondInterfaces(t *testing.T) {
	tests := []struct {
		name     string
		result   connection.Result
		expected []string
	}{
		{name: "two bonds", result: connection.Result{Stdout: "bond0 bond1\n"}, expected: []string{"bond0", "bond1"}},
		{
			name:     "driver not loaded",
			result:   connection.Result{ExitCode: 1, Stderr: "cat: /sys/class/net/bonding_masters: No such file or directory"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := connection.NewFakeRunner().OnResult("cat /sys/class/net/bonding_masters", tt.result)
			got, err := New(runner, "").BondInterfaces(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBondInterfacesTransportError(t *testing.T) {
	runner := connection.NewFakeRunner().OnError("cat /sys/class/net/bonding_masters", errors.New("session closed"))
	_, err := New(runner, "").BondInterfaces(context.Background())
	assert.EqualError(t, err, "session closed")
}

func TestChildren(t *testing.T) {
	runner := connection.NewFakeRunner().On("ip netns exec blue cat /sys/class/net/bond0/bonding/slaves", "eth3 eth4\n")
	got, err := New(runner, "blue").Children(context.Background(), "bond0")
	require.NoError(t, err)
	assert.Equal(t, []string{"eth3", "eth4"}, got)
}

func TestChildrenFailure(t *testing.T) {
	runner := connection.NewFakeRunner().OnResult("cat /sys/class/net/bond9/bonding/slaves", connection.Result{ExitCode: 1})
	_, err := New(runner, "").Children(context.Background(), "bond9")
	var cf *types.CommandFailedError
	assert.True(t, errors.As(err, &cf))
}

func TestSetup(t *testing.T) {
	runner := connection.NewFakeRunner()
	runner.Fallback = &connection.Result{}

	err := New(runner, "").Setup(context.Background(), Config{
		Name:     "bond0",
		Mode:     "active-backup",
		MIIMon:   100,
		Children: []string{"eth2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ip link add bond0 type bond",
		"echo active-backup > /sys/class/net/bond0/bonding/mode",
		"echo 100 > /sys/class/net/bond0/bonding/miimon",
		"ip link set eth2 down",
		"echo +eth2 > /sys/class/net/bond0/bonding/slaves",
		"ip link set bond0 up",
	}, runner.Calls())
}

func TestDeleteBond(t *testing.T) {
	runner := connection.NewFakeRunner()
	runner.Fallback = &connection.Result{}

	require.NoError(t, New(runner, "").DeleteBond(context.Background(), "bond0", []string{"eth2"}))
	assert.Equal(t, []string{
		"ip link set eth2 down",
		"ip link set eth2 nomaster",
		"ip link set eth2 up",
		"ip link delete bond0",
	}, runner.Calls())
}

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		name     string
		call     func(b *Bonding) error
		expected string
	}{
		{"enslave", func(b *Bonding) error { return b.Enslave(context.Background(), "bond0", "eth1") }, "ifenslave bond0 eth1"},
		{"release", func(b *Bonding) error { return b.Release(context.Background(), "bond0", "eth1") }, "ifenslave -d bond0 eth1"},
		{"active child", func(b *Bonding) error { return b.SetActiveChild(context.Background(), "bond0", "eth1") }, "ifenslave -c bond0 eth1"},
		{"remove child", func(b *Bonding) error { return b.RemoveChild(context.Background(), "bond0", "eth1") }, "echo -eth1 > /sys/class/net/bond0/bonding/slaves"},
		{"load", func(b *Bonding) error { return b.Load(context.Background(), "active-backup", 100, 1) }, "modprobe bonding mode=active-backup miimon=100 max_bonds=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := connection.NewFakeRunner().On(tt.expected, "")
			require.NoError(t, tt.call(New(runner, "")))
			assert.Equal(t, []string{tt.expected}, runner.Calls())
		})
	}
}

func TestModeAndActiveChild(t *testing.T) {
	runner := connection.NewFakeRunner().
		On(`cat /proc/net/bonding/bond0 | grep "Bonding Mode"`, "Bonding Mode: adaptive load balancing\n").
		On("cat /sys/class/net/bond0/bonding/active_slave", "eth0\n")
	b := New(runner, "")

	mode, err := b.Mode(context.Background(), "bond0")
	require.NoError(t, err)
	assert.Equal(t, "adaptive load balancing", mode)

	child, err := b.ActiveChild(context.Background(), "bond0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", child)
}
