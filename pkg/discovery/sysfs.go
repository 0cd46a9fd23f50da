package discovery

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/types"
)

// SysfsCommand lists the links of the current network namespace.
const SysfsCommand = "ls -la /sys/class/net"

var (
	pciSegment  = regexp.MustCompile(`([0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7])/net/`)
	vmbusGUID   = regexp.MustCompile(`/VMBUS:[0-9a-fA-F]+/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})/`)
	vmbusMarker = regexp.MustCompile(`/devices/LNXSYSTM:|/VMBUS:`)
)

type linkKind int

const (
	kindVirtual linkKind = iota
	kindPCI
	kindVMNIC
	kindVMBus
	kindGeneric
)

// sysfsLink is one symlink entry of /sys/class/net.
type sysfsLink struct {
	name   string
	target string
}

// parseSysfsLinks extracts "name -> target" pairs from `ls -la` output.
// Regular files such as bonding_masters are skipped.
func parseSysfsLinks(lines []string) []sysfsLink {
	var links []sysfsLink
	for _, line := range lines {
		left, right, ok := strings.Cut(line, " -> ")
		if !ok {
			continue
		}
		nameFields := strings.Fields(left)
		targetFields := strings.Fields(right)
		if len(nameFields) == 0 || len(targetFields) == 0 {
			continue
		}
		links = append(links, sysfsLink{name: nameFields[len(nameFields)-1], target: targetFields[0]})
	}
	return links
}

func (l sysfsLink) kind() linkKind {
	onVMBus := vmbusMarker.MatchString(l.target)
	hasPCI := pciSegment.MatchString(l.target)
	switch {
	case onVMBus && hasPCI && vmbusGUID.MatchString(l.target):
		return kindVMNIC
	case onVMBus && hasPCI:
		return kindPCI
	case onVMBus:
		return kindVMBus
	case hasPCI:
		return kindPCI
	case strings.Contains(l.target, "/devices/pci"):
		return kindGeneric
	default:
		return kindVirtual
	}
}

func (l sysfsLink) pciAddress() (*types.PCIAddress, bool) {
	m := pciSegment.FindStringSubmatch(l.target)
	if m == nil {
		return nil, false
	}
	addr, err := types.ParsePCIAddress(m[1])
	if err != nil {
		return nil, false
	}
	return &addr, true
}

func (l sysfsLink) guid() *uuid.UUID {
	m := vmbusGUID.FindStringSubmatch(l.target)
	if m == nil {
		return nil
	}
	id, err := uuid.Parse(m[1])
	if err != nil {
		return nil
	}
	return &id
}

// ParseSysfsVirtual returns VIRTUAL_DEVICE records for links without PCI or
// VMBus ancestry, in listing order.
func ParseSysfsVirtual(lines []string, namespace string) []types.InterfaceRecord {
	var records []types.InterfaceRecord
	for _, link := range parseSysfsLinks(lines) {
		if link.kind() != kindVirtual {
			continue
		}
		records = append(records, types.InterfaceRecord{
			Name:      link.name,
			Type:      types.VirtualDevice,
			Installed: true,
			Namespace: namespace,
		})
	}
	return records
}

// ParseSysfsPCI returns PF records for PCI-backed links and VMNIC records for
// Hyper-V links that still resolve to a PCI function.
func ParseSysfsPCI(lines []string, namespace string) []types.InterfaceRecord {
	var records []types.InterfaceRecord
	for _, link := range parseSysfsLinks(lines) {
		kind := link.kind()
		if kind != kindPCI && kind != kindVMNIC {
			continue
		}
		addr, ok := link.pciAddress()
		if !ok {
			pkg.WithField("interface", link.name).Warn("could not parse PCI address from sysfs target")
			continue
		}
		rec := types.InterfaceRecord{
			Name:       link.name,
			PCIAddress: addr,
			Type:       types.PF,
			Installed:  true,
			Namespace:  namespace,
		}
		if kind == kindVMNIC {
			rec.Type = types.VMNIC
			rec.UUID = link.guid()
		}
		records = append(records, rec)
	}
	return records
}

// ParseSysfsVMBus returns VMBUS records for synthetic links with no PCI function.
func ParseSysfsVMBus(lines []string, namespace string) []types.InterfaceRecord {
	var records []types.InterfaceRecord
	for _, link := range parseSysfsLinks(lines) {
		if link.kind() != kindVMBus {
			continue
		}
		records = append(records, types.InterfaceRecord{
			Name:      link.name,
			Type:      types.VMBus,
			Installed: true,
			Namespace: namespace,
		})
	}
	return records
}

// ParseSysfsGeneric returns GENERIC records for links that hang off the PCI
// tree without being a PCI function themselves (USB adapters and similar).
func ParseSysfsGeneric(lines []string, namespace string) []types.InterfaceRecord {
	var records []types.InterfaceRecord
	for _, link := range parseSysfsLinks(lines) {
		if link.kind() != kindGeneric {
			continue
		}
		records = append(records, types.InterfaceRecord{
			Name:      link.name,
			Type:      types.Generic,
			Installed: true,
			Namespace: namespace,
		})
	}
	return records
}

// gatherSysfs builds the working list: PCI-backed links first, then VMBus,
// generic and finally virtual links.
func gatherSysfs(lines []string, namespace string) []types.InterfaceRecord {
	var records []types.InterfaceRecord
	records = append(records, ParseSysfsPCI(lines, namespace)...)
	records = append(records, ParseSysfsVMBus(lines, namespace)...)
	records = append(records, ParseSysfsGeneric(lines, namespace)...)
	records = append(records, ParseSysfsVirtual(lines, namespace)...)
	return records
}
