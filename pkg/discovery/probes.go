package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

const (
	physfnCommand    = "find /sys/class/net/*/device/physfn"
	vlanListCommand  = "ls /proc/net/vlan"
	linkAddrCommand  = "ip a"
	inetAddrCommand  = "ip -4 addr show"
	tunnelCommand    = "ip tunnel show"
	namespaceCommand = "ip netns list"
)

// probe runs a command whose non-zero exit status means "nothing present".
// It returns stdout and whether the command succeeded.
func (d *Discoverer) probe(ctx context.Context, namespace, command string) (string, bool, error) {
	cmd := connection.InNamespace(namespace, command)
	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", cmd, err)
	}
	if !res.Success() {
		pkg.WithFields(log.Fields{
			"command":   cmd,
			"exit_code": res.ExitCode,
			"stderr":    res.Stderr,
		}).Debug("probe returned no data")
		return res.Stdout, false, nil
	}
	return res.Stdout, true, nil
}

// pciInventory returns the ETH_CONTROLLER stubs reported by lspci.
func (d *Discoverer) pciInventory(ctx context.Context, namespace string) ([]types.InterfaceRecord, error) {
	out, ok, err := d.probe(ctx, "", LspciCommand)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return ParseLspci(out, namespace)
}

func (d *Discoverer) sysfsLines(ctx context.Context, namespace string) ([]string, error) {
	out, err := connection.RunChecked(ctx, d.runner, connection.InNamespace(namespace, SysfsCommand))
	if err != nil {
		return nil, err
	}
	return strings.Split(out, "\n"), nil
}

// busInfo probes driver information for each candidate and returns the
// parsable bus_info addresses.
func (d *Discoverer) busInfo(ctx context.Context, namespace string, names []string) (map[string]types.PCIAddress, error) {
	result := make(map[string]types.PCIAddress)
	for _, name := range names {
		info, err := d.driverInfo.DriverInfo(ctx, namespace, name)
		if err != nil {
			return nil, err
		}
		if info == nil || info.BusInfo == "" {
			continue
		}
		addr, err := types.ParsePCIAddress(info.BusInfo)
		if err != nil {
			pkg.WithFields(log.Fields{"interface": name, "bus_info": info.BusInfo}).Debug("bus_info is not a PCI address")
			continue
		}
		result[name] = addr
	}
	return result, nil
}

// virtualFunctions lists links with a physfn symlink. find exits non-zero
// when some globbed links have no device or loop; stdout is still valid.
func (d *Discoverer) virtualFunctions(ctx context.Context, namespace string) ([]string, error) {
	out, _, err := d.probe(ctx, namespace, physfnCommand)
	if err != nil {
		return nil, err
	}
	return ParsePhysfnLinks(out), nil
}

func (d *Discoverer) vlans(ctx context.Context, namespace string) (map[string]types.VlanInfo, error) {
	out, ok, err := d.probe(ctx, namespace, vlanListCommand)
	if err != nil {
		return nil, err
	}
	vlans := make(map[string]types.VlanInfo)
	if !ok {
		return vlans, nil
	}
	for _, name := range ParseVlanNames(out) {
		detail, ok, err := d.probe(ctx, namespace, "ip -d link show "+name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		info, found := ParseVlanDetail(detail)
		if !found {
			pkg.WithField("interface", name).Debug("no vlan id in link details")
			continue
		}
		vlans[name] = info
	}
	return vlans, nil
}

// bonding errors are never recovered.
func (d *Discoverer) bonding(ctx context.Context, namespace string) ([]string, map[string][]string, error) {
	prober := d.bondingFor(namespace)
	masters, err := prober.BondInterfaces(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list bond interfaces: %w", err)
	}
	children := make(map[string][]string, len(masters))
	for _, m := range masters {
		c, err := prober.Children(ctx, m)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list children of %s: %w", m, err)
		}
		children[m] = c
	}
	return masters, children, nil
}

// linkMACs errors are never recovered.
func (d *Discoverer) linkMACs(ctx context.Context, namespace string) (map[string]net.HardwareAddr, error) {
	out, err := connection.RunChecked(ctx, d.runner, connection.InNamespace(namespace, linkAddrCommand))
	if err != nil {
		return nil, err
	}
	return ParseLinkMACs(out), nil
}

func (d *Discoverer) inetAddresses(ctx context.Context, namespace string) (map[string][]net.IP, error) {
	out, ok, err := d.probe(ctx, namespace, inetAddrCommand)
	if err != nil || !ok {
		return nil, err
	}
	return ParseInetAddresses(out), nil
}

func (d *Discoverer) tunnels(ctx context.Context, namespace string) ([]string, error) {
	out, ok, err := d.probe(ctx, namespace, tunnelCommand)
	if err != nil || !ok {
		return nil, err
	}
	return ParseTunnelNames(out), nil
}
