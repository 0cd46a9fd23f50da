// Package vlan creates and removes 802.1Q and macvlan links.
package vlan

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/discovery"
	"example.com/netadapter/pkg/types"
)

const procVlan = "/proc/net/vlan"

// VLAN issues VLAN commands in one network namespace.
type VLAN struct {
	runner    connection.Runner
	namespace string
}

// New returns a VLAN bound to runner and namespace ("" is the default namespace).
func New(runner connection.Runner, namespace string) *VLAN {
	return &VLAN{runner: runner, namespace: namespace}
}

func (v *VLAN) exec(ctx context.Context, command string) (string, error) {
	return connection.RunChecked(ctx, v.runner, connection.InNamespace(v.namespace, command))
}

// Name returns the conventional name of VLAN id on parent.
func Name(parent string, id int) string {
	return parent + "." + strconv.Itoa(id)
}

func validID(id int) error {
	if id < 1 || id > 4094 {
		return fmt.Errorf("invalid vlan id %d", id)
	}
	return nil
}

// Create adds VLAN id on parent and brings it up. Header reordering is
// disabled unless reorder is set.
func (v *VLAN) Create(ctx context.Context, parent string, id int, reorder bool) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}
	name := Name(parent, id)
	cmd := fmt.Sprintf("ip link add link %s name %s type vlan id %d", parent, name, id)
	if !reorder {
		cmd += " reorder_hdr off"
	}

	pkg.WithFields(log.Fields{"parent": parent, "vlan_id": id, "namespace": v.namespace}).Info("creating vlan")
	if _, err := v.exec(ctx, cmd); err != nil {
		return "", err
	}
	if _, err := v.exec(ctx, "ip link set dev "+name+" up"); err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes the named link.
func (v *VLAN) Remove(ctx context.Context, name string) error {
	pkg.WithFields(log.Fields{"interface": name, "namespace": v.namespace}).Info("removing vlan")
	_, err := v.exec(ctx, "ip link del "+name)
	return err
}

// List returns the VLAN links known to the 8021q driver. A missing
// /proc/net/vlan means the driver is not loaded and yields nothing.
func (v *VLAN) List(ctx context.Context) ([]string, error) {
	res, err := v.runner.Run(ctx, connection.InNamespace(v.namespace, "ls "+procVlan))
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return []string{}, nil
	}
	return discovery.ParseVlanNames(res.Stdout), nil
}

// RemoveAll deletes every VLAN link, stacked ones first.
func (v *VLAN) RemoveAll(ctx context.Context) error {
	names, err := v.List(ctx)
	if err != nil {
		return err
	}
	for i := len(names) - 1; i >= 0; i-- {
		if err := v.Remove(ctx, names[i]); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the sorted VLAN ids stacked directly on parent.
func (v *VLAN) IDs(ctx context.Context, parent string) ([]int, error) {
	names, err := v.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	ids := []int{}
	for _, n := range names {
		suffix, ok := strings.CutPrefix(n, parent+".")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// CreateMACVLAN adds a macvlan link called name on parent with the given address.
func (v *VLAN) CreateMACVLAN(ctx context.Context, parent, name string, mac net.HardwareAddr) error {
	if len(mac) == 0 {
		return fmt.Errorf("macvlan %s: mac address required", name)
	}
	_, err := v.exec(ctx, fmt.Sprintf("ip link add link %s name %s address %s type macvlan", parent, name, mac))
	return err
}

// ForRecord returns the parent and id of a VLAN record.
func ForRecord(rec types.InterfaceRecord) (string, int, error) {
	if err := types.RequireType(rec, types.VLAN); err != nil {
		return "", 0, err
	}
	if rec.VlanInfo == nil {
		return "", 0, fmt.Errorf("interface %s has no vlan details", rec.Name)
	}
	return rec.VlanInfo.Parent, rec.VlanInfo.ID, nil
}
