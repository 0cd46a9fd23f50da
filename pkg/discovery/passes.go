package discovery

import (
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/types"
)

// Each pass takes the working list (and, where relevant, the list of PCI
// stubs not yet consumed) and returns new slices. Inputs are never modified.

func cloneRecords(records []types.InterfaceRecord) []types.InterfaceRecord {
	out := make([]types.InterfaceRecord, len(records))
	copy(out, records)
	return out
}

func removeAt(stubs []types.InterfaceRecord, i int) []types.InterfaceRecord {
	out := make([]types.InterfaceRecord, 0, len(stubs)-1)
	out = append(out, stubs[:i]...)
	return append(out, stubs[i+1:]...)
}

// enrichPCIDevices copies the PCI device identity from the stub with the same
// address into every record that has an address but no device yet.
func enrichPCIDevices(records, stubs []types.InterfaceRecord) []types.InterfaceRecord {
	out := cloneRecords(records)
	for i := range out {
		rec := &out[i]
		if rec.PCIAddress == nil || rec.PCIDevice != nil {
			continue
		}
		for _, stub := range stubs {
			if stub.PCIDevice != nil && stub.HasAddress(*rec.PCIAddress) {
				dev := *stub.PCIDevice
				rec.PCIDevice = &dev
				break
			}
		}
	}
	return out
}

// markVPorts reclassifies PF records whose PCI function is exposed by more
// than one link. Each such record, in order, consumes at most one stub with
// the same identity; records left without a stub stay PF.
func markVPorts(records, stubs []types.InterfaceRecord) ([]types.InterfaceRecord, []types.InterfaceRecord) {
	out := cloneRecords(records)
	remaining := cloneRecords(stubs)

	shared := make(map[types.PCIAddress]int)
	for _, rec := range out {
		if rec.Type == types.PF && rec.PCIAddress != nil {
			shared[*rec.PCIAddress]++
		}
	}

	for i := range out {
		rec := &out[i]
		key, ok := rec.Key()
		if rec.Type != types.PF || !ok || shared[key.Address] < 2 {
			continue
		}
		for j, stub := range remaining {
			if stubKey, ok := stub.Key(); ok && stubKey == key {
				rec.Type = types.VPort
				remaining = removeAt(remaining, j)
				pkg.WithFields(log.Fields{"interface": rec.Name, "pci": key.Address.String()}).Debug("marked as VPORT")
				break
			}
		}
	}
	return out, remaining
}

// hasAnyPrefix reports whether name starts with one of prefixes.
func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// btsCandidates returns the names the driver-info probe should be run for.
func btsCandidates(records []types.InterfaceRecord, prefixes []string) []string {
	var names []string
	for _, rec := range records {
		if rec.Name != "" && hasAnyPrefix(rec.Name, prefixes) {
			names = append(names, rec.Name)
		}
	}
	return names
}

// markBTS reclassifies alias-prefixed records whose bus_info points at a
// remaining stub. The record takes over the stub's PCI identity.
func markBTS(records, stubs []types.InterfaceRecord, busInfo map[string]types.PCIAddress, prefixes []string) ([]types.InterfaceRecord, []types.InterfaceRecord) {
	out := cloneRecords(records)
	remaining := cloneRecords(stubs)

	for i := range out {
		rec := &out[i]
		if !hasAnyPrefix(rec.Name, prefixes) {
			continue
		}
		addr, ok := busInfo[rec.Name]
		if !ok {
			continue
		}
		for j, stub := range remaining {
			if !stub.HasAddress(addr) {
				continue
			}
			a := addr
			rec.PCIAddress = &a
			if stub.PCIDevice != nil {
				dev := *stub.PCIDevice
				rec.PCIDevice = &dev
			}
			rec.Type = types.BTS
			remaining = removeAt(remaining, j)
			pkg.WithFields(log.Fields{"interface": rec.Name, "pci": addr.String()}).Debug("marked as BTS")
			break
		}
	}
	return out, remaining
}

// completePFs merges each remaining stub into the installed record on the same
// PCI function. Stubs that match nothing are returned as dropped.
func completePFs(records, stubs []types.InterfaceRecord) ([]types.InterfaceRecord, []types.InterfaceRecord) {
	out := cloneRecords(records)
	var dropped []types.InterfaceRecord

	for _, stub := range stubs {
		merged := false
		for i := range out {
			rec := &out[i]
			if stub.PCIAddress == nil || !rec.HasAddress(*stub.PCIAddress) {
				continue
			}
			if rec.PCIDevice == nil && stub.PCIDevice != nil {
				dev := *stub.PCIDevice
				rec.PCIDevice = &dev
			}
			merged = true
			break
		}
		if !merged {
			dropped = append(dropped, stub)
		}
	}
	return out, dropped
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// markVFs reclassifies records whose link has a physfn symlink.
func markVFs(records []types.InterfaceRecord, vfNames []string) []types.InterfaceRecord {
	out := cloneRecords(records)
	vfs := nameSet(vfNames)
	for i := range out {
		if _, ok := vfs[out[i].Name]; ok && out[i].Name != "" {
			out[i].Type = types.VF
		}
	}
	return out
}

// applyVLANs reclassifies virtual links that the 8021q driver reports.
func applyVLANs(records []types.InterfaceRecord, vlans map[string]types.VlanInfo) []types.InterfaceRecord {
	out := cloneRecords(records)
	for i := range out {
		rec := &out[i]
		info, ok := vlans[rec.Name]
		if !ok || rec.Type != types.VirtualDevice {
			continue
		}
		v := info
		rec.Type = types.VLAN
		rec.VlanInfo = &v
	}
	return out
}

// applyBonding marks bond masters and then their children. Children are
// reclassified regardless of their previous type.
func applyBonding(records []types.InterfaceRecord, masters []string, children map[string][]string) []types.InterfaceRecord {
	out := cloneRecords(records)
	masterSet := nameSet(masters)
	slaveSet := make(map[string]struct{})
	for _, m := range masters {
		for _, c := range children[m] {
			slaveSet[c] = struct{}{}
		}
	}

	for i := range out {
		rec := &out[i]
		if rec.Name == "" {
			continue
		}
		if _, ok := masterSet[rec.Name]; ok {
			rec.Type = types.Bond
		}
		if _, ok := slaveSet[rec.Name]; ok {
			rec.Type = types.BondSlave
		}
	}
	return out
}

// applyMACs sets the hardware address of every record named in macs.
func applyMACs(records []types.InterfaceRecord, macs map[string]net.HardwareAddr) []types.InterfaceRecord {
	out := cloneRecords(records)
	for i := range out {
		if mac, ok := macs[out[i].Name]; ok && out[i].Name != "" {
			out[i].MACAddress = append(net.HardwareAddr(nil), mac...)
		}
	}
	return out
}

// managementMatcher decides whether an address identifies the management link.
type managementMatcher struct {
	connIP   net.IP
	networks []*net.IPNet
}

func (m managementMatcher) enabled() bool {
	return m.connIP != nil || len(m.networks) > 0
}

func (m managementMatcher) match(ip net.IP) bool {
	if m.connIP != nil && m.connIP.Equal(ip) {
		return true
	}
	for _, n := range m.networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// markManagement reclassifies records carrying the connection IP or an
// address inside a configured management network.
func markManagement(records []types.InterfaceRecord, addrs map[string][]net.IP, m managementMatcher) []types.InterfaceRecord {
	out := cloneRecords(records)
	for i := range out {
		rec := &out[i]
		for _, ip := range addrs[rec.Name] {
			if rec.Name != "" && m.match(ip) {
				rec.Type = types.Management
				pkg.WithFields(log.Fields{"interface": rec.Name, "ip": ip.String()}).Debug("marked as MANAGEMENT")
				break
			}
		}
	}
	return out
}

// removeTunnels drops records whose name is a tunnel, keeping order.
func removeTunnels(records []types.InterfaceRecord, tunnels []string) []types.InterfaceRecord {
	set := nameSet(tunnels)
	out := make([]types.InterfaceRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := set[rec.Name]; ok && rec.Name != "" {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// finalize keeps installed, named records and the first record for every
// (name, namespace) pair.
func finalize(records []types.InterfaceRecord) []types.InterfaceRecord {
	type nameKey struct{ name, namespace string }
	seen := make(map[nameKey]struct{}, len(records))
	out := make([]types.InterfaceRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Installed || rec.Name == "" {
			continue
		}
		k := nameKey{rec.Name, rec.Namespace}
		if _, dup := seen[k]; dup {
			pkg.WithFields(log.Fields{"interface": rec.Name, "namespace": rec.Namespace}).Warn("duplicate interface dropped")
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}
