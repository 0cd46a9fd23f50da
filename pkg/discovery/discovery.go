// Package discovery enumerates the network links of a Linux host and
// classifies them by reconciling lspci, sysfs and iproute2 output.
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/ethtool"
	"example.com/netadapter/pkg/feature/bonding"
	"example.com/netadapter/pkg/types"
)

// DefaultBTSPrefixes are the alias prefixes of backplane links.
var DefaultBTSPrefixes = []string{"nac_"}

// BondingProber lists bond masters and their children in one namespace.
type BondingProber interface {
	BondInterfaces(ctx context.Context) ([]string, error)
	Children(ctx context.Context, bond string) ([]string, error)
}

// Options tune a Discoverer. Zero values select the defaults.
type Options struct {
	// BTSPrefixes are the link name prefixes checked against driver bus_info.
	BTSPrefixes []string
	// ManagementIP overrides the IP reported by the runner.
	ManagementIP string
	// ManagementNetworks are CIDRs whose addresses mark a management link.
	ManagementNetworks []string
	// Bonding builds the bonding prober for a namespace.
	Bonding func(namespace string) BondingProber
	// DriverInfo answers the BTS bus_info probe.
	DriverInfo ethtool.Prober
	// LookupIP resolves a connection host name. Defaults to net.LookupIP.
	LookupIP func(host string) ([]net.IP, error)
	// Metrics, when set, records every run.
	Metrics *Metrics
}

// Discoverer runs the reconciliation pipeline against one host. It keeps no
// state between runs; the runner must not be shared with a concurrent run.
type Discoverer struct {
	runner      connection.Runner
	btsPrefixes []string
	management  managementMatcher
	bondingFor  func(namespace string) BondingProber
	driverInfo  ethtool.Prober
	metrics     *Metrics
}

// New validates opts and returns a Discoverer.
func New(runner connection.Runner, opts Options) (*Discoverer, error) {
	d := &Discoverer{
		runner:      runner,
		btsPrefixes: opts.BTSPrefixes,
		bondingFor:  opts.Bonding,
		driverInfo:  opts.DriverInfo,
		metrics:     opts.Metrics,
	}
	if d.btsPrefixes == nil {
		d.btsPrefixes = DefaultBTSPrefixes
	}
	if d.bondingFor == nil {
		d.bondingFor = func(namespace string) BondingProber {
			return bonding.New(runner, namespace)
		}
	}
	if d.driverInfo == nil {
		d.driverInfo = &ethtool.CommandProber{Runner: runner}
	}

	ipText := opts.ManagementIP
	if ipText == "" {
		if r, ok := runner.(connection.IPReporter); ok {
			ipText = r.IP()
		}
	}
	if ipText != "" {
		lookup := opts.LookupIP
		if lookup == nil {
			lookup = net.LookupIP
		}
		ip, err := resolveIP(ipText, lookup)
		if err != nil {
			pkg.WithError(err).WithField("host", ipText).Warn("cannot resolve connection address, management match by address disabled")
		}
		d.management.connIP = ip
	}
	for _, cidr := range opts.ManagementNetworks {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid management network %q: %w", cidr, err)
		}
		d.management.networks = append(d.management.networks, n)
	}
	return d, nil
}

// resolveIP returns host as an IP, resolving it when it is a name. IPv4
// results are preferred since management links are matched on inet addresses.
func resolveIP(host string, lookup func(string) ([]net.IP, error)) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := lookup(host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no address for %s", host)
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

// Discover returns the classified links of one namespace ("" for the default).
func (d *Discoverer) Discover(ctx context.Context, namespace string) ([]types.InterfaceRecord, error) {
	start := time.Now()
	records, err := d.discover(ctx, namespace)
	d.metrics.observe(namespace, records, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Discoverer) discover(ctx context.Context, namespace string) ([]types.InterfaceRecord, error) {
	logger := pkg.WithField("namespace", namespace)
	logger.Debug("starting interface discovery")

	stubs, err := d.pciInventory(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCI inventory: %w", err)
	}
	lines, err := d.sysfsLines(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list /sys/class/net: %w", err)
	}

	records := gatherSysfs(lines, namespace)
	records = enrichPCIDevices(records, stubs)
	records, stubs = markVPorts(records, stubs)

	if candidates := btsCandidates(records, d.btsPrefixes); len(stubs) > 0 && len(candidates) > 0 {
		bus, err := d.busInfo(ctx, namespace, candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to probe driver info: %w", err)
		}
		records, stubs = markBTS(records, stubs, bus, d.btsPrefixes)
	}

	records, dropped := completePFs(records, stubs)
	for _, stub := range dropped {
		logger.WithField("pci", stub.ID()).Debug("PCI function has no network link")
	}

	vfs, err := d.virtualFunctions(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to detect virtual functions: %w", err)
	}
	records = markVFs(records, vfs)

	vlans, err := d.vlans(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to detect vlans: %w", err)
	}
	records = applyVLANs(records, vlans)

	masters, children, err := d.bonding(ctx, namespace)
	if err != nil {
		return nil, err
	}
	records = applyBonding(records, masters, children)

	macs, err := d.linkMACs(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to read link addresses: %w", err)
	}
	records = applyMACs(records, macs)

	if d.management.enabled() {
		addrs, err := d.inetAddresses(ctx, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to read inet addresses: %w", err)
		}
		records = markManagement(records, addrs, d.management)
	}

	tunnels, err := d.tunnels(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list tunnels: %w", err)
	}
	records = removeTunnels(records, tunnels)

	records = finalize(records)
	logger.WithFields(log.Fields{"interfaces": len(records), "unbound_pci": len(dropped)}).Info("interface discovery finished")
	return records, nil
}

// Namespaces lists the named network namespaces of the host.
func (d *Discoverer) Namespaces(ctx context.Context) ([]string, error) {
	out, ok, err := d.probe(ctx, "", namespaceCommand)
	if err != nil || !ok {
		return nil, err
	}
	return ParseNamespaces(out), nil
}

// DiscoverAll runs Discover for the default namespace and then for every
// named namespace, in the order `ip netns list` reports them.
func (d *Discoverer) DiscoverAll(ctx context.Context) ([]types.InterfaceRecord, error) {
	namespaces, err := d.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return d.DiscoverNamespaces(ctx, append([]string{""}, namespaces...))
}

// DiscoverNamespaces runs Discover for each namespace in turn.
func (d *Discoverer) DiscoverNamespaces(ctx context.Context, namespaces []string) ([]types.InterfaceRecord, error) {
	var all []types.InterfaceRecord
	for _, ns := range namespaces {
		records, err := d.Discover(ctx, ns)
		if err != nil {
			if ns == "" {
				return nil, fmt.Errorf("default namespace: %w", err)
			}
			return nil, fmt.Errorf("namespace %s: %w", ns, err)
		}
		all = append(all, records...)
	}
	return all, nil
}
