// Package bonding drives the Linux bonding driver through shell commands.
package bonding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
)

const bondingMasters = "/sys/class/net/bonding_masters"

// Config describes a bond to create.
type Config struct {
	Name     string   `yaml:"name"`
	Mode     string   `yaml:"mode"`
	MIIMon   int      `yaml:"miimon"`
	Children []string `yaml:"children"`
}

// Bonding issues bonding commands in one network namespace.
type Bonding struct {
	runner    connection.Runner
	namespace string
}

// New returns a Bonding bound to runner and namespace ("" is the default namespace).
func New(runner connection.Runner, namespace string) *Bonding {
	return &Bonding{runner: runner, namespace: namespace}
}

func (b *Bonding) cmd(command string) string {
	return connection.InNamespace(b.namespace, command)
}

func (b *Bonding) exec(ctx context.Context, command string) (string, error) {
	return connection.RunChecked(ctx, b.runner, b.cmd(command))
}

// BondInterfaces lists bond masters. A missing bonding_masters file (driver
// not loaded) yields an empty list.
func (b *Bonding) BondInterfaces(ctx context.Context) ([]string, error) {
	res, err := b.runner.Run(ctx, b.cmd("cat "+bondingMasters))
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return []string{}, nil
	}
	return strings.Fields(res.Stdout), nil
}

// Children lists the links enslaved to bond.
func (b *Bonding) Children(ctx context.Context, bond string) ([]string, error) {
	out, err := b.exec(ctx, fmt.Sprintf("cat /sys/class/net/%s/bonding/slaves", bond))
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// Load loads the bonding module with the given parameters.
func (b *Bonding) Load(ctx context.Context, mode string, miimon, maxBonds int) error {
	params := []string{"bonding"}
	if mode != "" {
		params = append(params, "mode="+mode)
	}
	if miimon > 0 {
		params = append(params, "miimon="+strconv.Itoa(miimon))
	}
	if maxBonds > 0 {
		params = append(params, "max_bonds="+strconv.Itoa(maxBonds))
	}
	_, err := connection.RunChecked(ctx, b.runner, "modprobe "+strings.Join(params, " "))
	return err
}

// CreateBond adds a bond link.
func (b *Bonding) CreateBond(ctx context.Context, bond string) error {
	_, err := b.exec(ctx, fmt.Sprintf("ip link add %s type bond", bond))
	return err
}

// DeleteBond releases children and removes the bond link.
func (b *Bonding) DeleteBond(ctx context.Context, bond string, children []string) error {
	for _, child := range children {
		for _, c := range []string{
			fmt.Sprintf("ip link set %s down", child),
			fmt.Sprintf("ip link set %s nomaster", child),
			fmt.Sprintf("ip link set %s up", child),
		} {
			if _, err := b.exec(ctx, c); err != nil {
				return err
			}
		}
	}
	_, err := b.exec(ctx, fmt.Sprintf("ip link delete %s", bond))
	return err
}

// Enslave attaches child to bond with ifenslave.
func (b *Bonding) Enslave(ctx context.Context, bond, child string) error {
	_, err := b.exec(ctx, fmt.Sprintf("ifenslave %s %s", bond, child))
	return err
}

// Release detaches child from bond with ifenslave.
func (b *Bonding) Release(ctx context.Context, bond, child string) error {
	_, err := b.exec(ctx, fmt.Sprintf("ifenslave -d %s %s", bond, child))
	return err
}

// AddChild attaches child to bond through sysfs.
func (b *Bonding) AddChild(ctx context.Context, bond, child string) error {
	_, err := b.exec(ctx, fmt.Sprintf("echo +%s > /sys/class/net/%s/bonding/slaves", child, bond))
	return err
}

// RemoveChild detaches child from bond through sysfs.
func (b *Bonding) RemoveChild(ctx context.Context, bond, child string) error {
	_, err := b.exec(ctx, fmt.Sprintf("echo -%s > /sys/class/net/%s/bonding/slaves", child, bond))
	return err
}

// SetParam writes a bonding attribute such as mode or miimon.
func (b *Bonding) SetParam(ctx context.Context, bond, param, value string) error {
	_, err := b.exec(ctx, fmt.Sprintf("echo %s > /sys/class/net/%s/bonding/%s", value, bond, param))
	return err
}

// SetActiveChild makes child the active slave of an active-backup bond.
func (b *Bonding) SetActiveChild(ctx context.Context, bond, child string) error {
	_, err := b.exec(ctx, fmt.Sprintf("ifenslave -c %s %s", bond, child))
	return err
}

// ActiveChild returns the active slave of bond.
func (b *Bonding) ActiveChild(ctx context.Context, bond string) (string, error) {
	out, err := b.exec(ctx, fmt.Sprintf("cat /sys/class/net/%s/bonding/active_slave", bond))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Mode returns the "Bonding Mode" reported in /proc/net/bonding.
func (b *Bonding) Mode(ctx context.Context, bond string) (string, error) {
	out, err := b.exec(ctx, fmt.Sprintf(`cat /proc/net/bonding/%s | grep "Bonding Mode"`, bond))
	if err != nil {
		return "", err
	}
	_, mode, ok := strings.Cut(out, ":")
	if !ok {
		return "", fmt.Errorf("unexpected bonding mode output: %q", out)
	}
	return strings.TrimSpace(mode), nil
}

// Setup creates the bond described by cfg, sets its parameters, attaches the
// children and brings it up.
func (b *Bonding) Setup(ctx context.Context, cfg Config) error {
	logger := pkg.WithFields(log.Fields{"bond": cfg.Name, "namespace": b.namespace})
	logger.Info("creating bond interface")

	if err := b.CreateBond(ctx, cfg.Name); err != nil {
		return fmt.Errorf("failed to create bond %s: %w", cfg.Name, err)
	}
	if cfg.Mode != "" {
		if err := b.SetParam(ctx, cfg.Name, "mode", cfg.Mode); err != nil {
			return fmt.Errorf("failed to set bond mode: %w", err)
		}
	}
	if cfg.MIIMon > 0 {
		if err := b.SetParam(ctx, cfg.Name, "miimon", strconv.Itoa(cfg.MIIMon)); err != nil {
			return fmt.Errorf("failed to set MII monitor: %w", err)
		}
	}
	for _, child := range cfg.Children {
		if _, err := b.exec(ctx, fmt.Sprintf("ip link set %s down", child)); err != nil {
			return err
		}
		if err := b.AddChild(ctx, cfg.Name, child); err != nil {
			return fmt.Errorf("failed to add %s to bond: %w", child, err)
		}
	}
	if _, err := b.exec(ctx, fmt.Sprintf("ip link set %s up", cfg.Name)); err != nil {
		return fmt.Errorf("failed to bring up bond: %w", err)
	}

	logger.WithField("children", cfg.Children).Info("bond interface created")
	return nil
}
