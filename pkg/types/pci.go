package types

import (
	"fmt"
	"strconv"
	"strings"
)

// PCIAddress is a PCI function location: domain:bus:slot.func.
type PCIAddress struct {
	Domain uint32
	Bus    uint8
	Slot   uint8
	Func   uint8
}

// ParsePCIAddress parses "dddd:bb:ss.f" or the short "bb:ss.f" form, which
// implies domain 0.
func ParsePCIAddress(s string) (PCIAddress, error) {
	s = strings.TrimSpace(s)
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q: missing function", s)
	}
	fn, err := strconv.ParseUint(s[dot+1:], 16, 8)
	if err != nil || fn > 7 {
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q: bad function", s)
	}

	parts := strings.Split(s[:dot], ":")
	var domain = "0"
	switch len(parts) {
	case 2:
	case 3:
		domain = parts[0]
		parts = parts[1:]
	default:
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q", s)
	}

	d, err := strconv.ParseUint(domain, 16, 32)
	if err != nil {
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q: bad domain", s)
	}
	bus, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil || len(parts[0]) > 2 {
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q: bad bus", s)
	}
	slot, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil || slot > 0x1f {
		return PCIAddress{}, fmt.Errorf("invalid PCI address %q: bad slot", s)
	}

	return PCIAddress{Domain: uint32(d), Bus: uint8(bus), Slot: uint8(slot), Func: uint8(fn)}, nil
}

// MustParsePCIAddress is like ParsePCIAddress but panics on error.
func MustParsePCIAddress(s string) PCIAddress {
	a, err := ParsePCIAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a PCIAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", a.Domain, a.Bus, a.Slot, a.Func)
}

func (a PCIAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *PCIAddress) UnmarshalText(text []byte) error {
	parsed, err := ParsePCIAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// PCIDevice is the vendor/device identity of a PCI function. IDs are four
// lowercase hex digits; empty sub IDs mean the subsystem is not reported.
type PCIDevice struct {
	VendorID    string
	DeviceID    string
	SubVendorID string
	SubDeviceID string
}

// ParsePCIDevice parses "vvvv:dddd" or "vvvv:dddd:ssvv:ssdd".
func ParsePCIDevice(s string) (PCIDevice, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 4 {
		return PCIDevice{}, fmt.Errorf("invalid PCI device %q", s)
	}
	ids := make([]string, 4)
	for i, p := range parts {
		id, err := NormalizeID(p)
		if err != nil {
			return PCIDevice{}, fmt.Errorf("invalid PCI device %q: %w", s, err)
		}
		ids[i] = id
	}
	return PCIDevice{VendorID: ids[0], DeviceID: ids[1], SubVendorID: ids[2], SubDeviceID: ids[3]}, nil
}

// MustParsePCIDevice is like ParsePCIDevice but panics on error.
func MustParsePCIDevice(s string) PCIDevice {
	d, err := ParsePCIDevice(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NormalizeID validates a hex PCI ID and returns it as four lowercase digits.
func NormalizeID(s string) (string, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil || len(s) > 4 {
		return "", fmt.Errorf("invalid PCI id %q", s)
	}
	return fmt.Sprintf("%04x", v), nil
}

// HasSubsystem reports whether sub-vendor and sub-device IDs are known.
func (d PCIDevice) HasSubsystem() bool {
	return d.SubVendorID != "" && d.SubDeviceID != ""
}

// Matches reports whether d satisfies query. Sub IDs are only compared when
// the query carries them.
func (d PCIDevice) Matches(query PCIDevice) bool {
	if d.VendorID != query.VendorID || d.DeviceID != query.DeviceID {
		return false
	}
	if query.SubVendorID != "" && d.SubVendorID != query.SubVendorID {
		return false
	}
	if query.SubDeviceID != "" && d.SubDeviceID != query.SubDeviceID {
		return false
	}
	return true
}

func (d PCIDevice) String() string {
	if d.HasSubsystem() {
		return fmt.Sprintf("%s:%s:%s:%s", d.VendorID, d.DeviceID, d.SubVendorID, d.SubDeviceID)
	}
	return d.VendorID + ":" + d.DeviceID
}

func (d PCIDevice) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *PCIDevice) UnmarshalText(text []byte) error {
	parsed, err := ParsePCIDevice(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PCIKey is the (address, device) identity used to correlate records coming
// from different sources.
type PCIKey struct {
	Address PCIAddress
	Device  PCIDevice
}

func (k PCIKey) String() string {
	return k.Address.String() + "/" + k.Device.String()
}
