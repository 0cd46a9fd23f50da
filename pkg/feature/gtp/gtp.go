// Package gtp creates and deletes GTP tunnel links.
package gtp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

// DefaultRole is the role used when none is given.
const DefaultRole = "sgsn"

// GTP issues GTP link commands in one network namespace.
type GTP struct {
	runner    connection.Runner
	namespace string
}

func New(runner connection.Runner, namespace string) *GTP {
	return &GTP{runner: runner, namespace: namespace}
}

// Create adds a GTP link called name with role ("sgsn" or "ggsn").
func (g *GTP) Create(ctx context.Context, name, role string) error {
	if role == "" {
		role = DefaultRole
	}
	if role != "sgsn" && role != "ggsn" {
		return fmt.Errorf("invalid GTP role %q", role)
	}
	cmd := connection.InNamespace(g.namespace, fmt.Sprintf("ip link add %s type gtp role %s", name, role))
	_, err := connection.RunChecked(ctx, g.runner, cmd)
	return err
}

// Delete removes the GTP link called name. A link that does not exist is
// not an error.
func (g *GTP) Delete(ctx context.Context, name string) error {
	cmd := connection.InNamespace(g.namespace, "ip link del "+name)
	_, err := connection.RunChecked(ctx, g.runner, cmd)
	if err == nil {
		return nil
	}
	var cmdErr *types.CommandFailedError
	if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "Cannot find device") {
		pkg.WithField("namespace", g.namespace).Infof("GTP device %s not present!", name)
		return nil
	}
	return err
}
