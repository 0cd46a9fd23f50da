package pkg

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"example.com/netadapter/pkg/types"
)

// PCIIDsPaths are the usual locations of the pci.ids database.
var PCIIDsPaths = []string{
	"/usr/share/hwdata/pci.ids",
	"/usr/share/pci.ids",
	"/usr/share/misc/pci.ids",
}

// VendorDatabase holds parsed PCI vendor and device names
type VendorDatabase struct {
	Vendors map[string]VendorInfo
}

// VendorInfo holds vendor and device information
type VendorInfo struct {
	Name    string
	Devices map[string]DeviceInfo
}

// DeviceInfo holds a device name and its subsystem names keyed by "svvv:sddd".
type DeviceInfo struct {
	Name       string
	Subsystems map[string]string
}

var (
	vendorLine    = regexp.MustCompile(`^([0-9a-f]{4})\s+(.+)$`)
	deviceLine    = regexp.MustCompile(`^\t([0-9a-f]{4})\s+(.+)$`)
	subsystemLine = regexp.MustCompile(`^\t\t([0-9a-f]{4})\s+([0-9a-f]{4})\s+(.+)$`)
)

// ParseVendorDatabase parses pci.ids formatted text. Parsing stops at the
// device class section.
func ParseVendorDatabase(r io.Reader) (*VendorDatabase, error) {
	db := &VendorDatabase{Vendors: make(map[string]VendorInfo)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var vendor string
	var device string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if strings.HasPrefix(line, "C ") {
			break
		}

		if m := subsystemLine.FindStringSubmatch(line); m != nil {
			if vendor == "" || device == "" {
				continue
			}
			db.Vendors[vendor].Devices[device].Subsystems[m[1]+":"+m[2]] = m[3]
			continue
		}
		if m := deviceLine.FindStringSubmatch(line); m != nil {
			if vendor == "" {
				continue
			}
			device = m[1]
			db.Vendors[vendor].Devices[device] = DeviceInfo{Name: m[2], Subsystems: make(map[string]string)}
			continue
		}
		if m := vendorLine.FindStringSubmatch(line); m != nil {
			vendor, device = m[1], ""
			db.Vendors[vendor] = VendorInfo{Name: m[2], Devices: make(map[string]DeviceInfo)}
		}
	}

	return db, scanner.Err()
}

// MinimalVendorDatabase returns a database with common NIC vendors, used when
// no pci.ids file is available.
func MinimalVendorDatabase() *VendorDatabase {
	db := &VendorDatabase{Vendors: make(map[string]VendorInfo)}

	vendors := map[string]string{
		"8086": "Intel Corporation",
		"15b3": "Mellanox Technologies",
		"1d0f": "Amazon.com, Inc.",
		"14e4": "Broadcom Inc. and subsidiaries",
		"1077": "QLogic Corp.",
		"1924": "Solarflare Communications",
		"1af4": "Red Hat, Inc.",
		"1414": "Microsoft Corporation",
	}
	for id, name := range vendors {
		db.Vendors[id] = VendorInfo{Name: name, Devices: make(map[string]DeviceInfo)}
	}
	return db
}

// VendorName returns the vendor name for id, or "".
func (db *VendorDatabase) VendorName(id string) string {
	return db.Vendors[id].Name
}

// DeviceName returns the device name, or "".
func (db *VendorDatabase) DeviceName(vendorID, deviceID string) string {
	return db.Vendors[vendorID].Devices[deviceID].Name
}

// Describe returns a human readable name for dev, preferring the subsystem
// name when one is known.
func (db *VendorDatabase) Describe(dev types.PCIDevice) string {
	vendor := db.VendorName(dev.VendorID)
	if vendor == "" {
		return dev.String()
	}
	info, ok := db.Vendors[dev.VendorID].Devices[dev.DeviceID]
	if !ok {
		return vendor + " [" + dev.String() + "]"
	}
	if dev.HasSubsystem() {
		if sub, ok := info.Subsystems[dev.SubVendorID+":"+dev.SubDeviceID]; ok {
			return vendor + " " + info.Name + " (" + sub + ")"
		}
	}
	return vendor + " " + info.Name
}
