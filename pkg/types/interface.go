package types

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
)

// InterfaceType is the role the discovery pipeline assigns to a link.
type InterfaceType string

const (
	EthController InterfaceType = "ETH_CONTROLLER"
	PF            InterfaceType = "PF"
	VF            InterfaceType = "VF"
	VPort         InterfaceType = "VPORT"
	BTS           InterfaceType = "BTS"
	VMNIC         InterfaceType = "VMNIC"
	VMBus         InterfaceType = "VMBUS"
	VirtualDevice InterfaceType = "VIRTUAL_DEVICE"
	VLAN          InterfaceType = "VLAN"
	Bond          InterfaceType = "BOND"
	BondSlave     InterfaceType = "BOND_SLAVE"
	Management    InterfaceType = "MANAGEMENT"
	Generic       InterfaceType = "GENERIC"
)

// AllInterfaceTypes lists the taxonomy in declaration order.
var AllInterfaceTypes = []InterfaceType{
	EthController, PF, VF, VPort, BTS, VMNIC, VMBus,
	VirtualDevice, VLAN, Bond, BondSlave, Management, Generic,
}

// ParseInterfaceType converts a case-insensitive name into an InterfaceType
func ParseInterfaceType(s string) (InterfaceType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range AllInterfaceTypes {
		if string(t) == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown interface type: %s", s)
}

// VlanInfo describes an 802.1Q link and the link it is stacked on.
type VlanInfo struct {
	ID     int    `json:"vlan_id"`
	Parent string `json:"parent"`
}

// InterfaceRecord is a single network link (or bare PCI function) seen on a host.
//
// Name is empty while the record is still a PCI-only stub. Namespace is empty
// for the default network namespace.
type InterfaceRecord struct {
	Name       string           `json:"name,omitempty"`
	PCIAddress *PCIAddress      `json:"pci_address,omitempty"`
	PCIDevice  *PCIDevice       `json:"pci_device,omitempty"`
	MACAddress net.HardwareAddr `json:"mac_address,omitempty"`
	Type       InterfaceType    `json:"interface_type"`
	Installed  bool             `json:"installed"`
	VlanInfo   *VlanInfo        `json:"vlan_info,omitempty"`
	Namespace  string           `json:"namespace,omitempty"`
	UUID       *uuid.UUID       `json:"uuid,omitempty"`
}

// Key returns the PCI identity of the record and whether both halves are known.
func (r InterfaceRecord) Key() (PCIKey, bool) {
	if r.PCIAddress == nil || r.PCIDevice == nil {
		return PCIKey{}, false
	}
	return PCIKey{Address: *r.PCIAddress, Device: *r.PCIDevice}, true
}

// HasAddress reports whether the record sits on the given PCI function.
func (r InterfaceRecord) HasAddress(addr PCIAddress) bool {
	return r.PCIAddress != nil && *r.PCIAddress == addr
}

// ID returns the name of the record, falling back to its PCI address.
func (r InterfaceRecord) ID() string {
	if r.Name != "" {
		return r.Name
	}
	if r.PCIAddress != nil {
		return r.PCIAddress.String()
	}
	return ""
}

func (r InterfaceRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]", r.ID(), r.Type)
	if r.Namespace != "" {
		fmt.Fprintf(&b, " ns=%s", r.Namespace)
	}
	if r.PCIDevice != nil {
		fmt.Fprintf(&b, " dev=%s", r.PCIDevice)
	}
	return b.String()
}

// Equal compares two records field by field.
func (r InterfaceRecord) Equal(o InterfaceRecord) bool {
	if r.Name != o.Name || r.Type != o.Type || r.Installed != o.Installed || r.Namespace != o.Namespace {
		return false
	}
	if r.MACAddress.String() != o.MACAddress.String() {
		return false
	}
	if (r.PCIAddress == nil) != (o.PCIAddress == nil) || (r.PCIAddress != nil && *r.PCIAddress != *o.PCIAddress) {
		return false
	}
	if (r.PCIDevice == nil) != (o.PCIDevice == nil) || (r.PCIDevice != nil && *r.PCIDevice != *o.PCIDevice) {
		return false
	}
	if (r.VlanInfo == nil) != (o.VlanInfo == nil) || (r.VlanInfo != nil && *r.VlanInfo != *o.VlanInfo) {
		return false
	}
	if (r.UUID == nil) != (o.UUID == nil) || (r.UUID != nil && *r.UUID != *o.UUID) {
		return false
	}
	return true
}
