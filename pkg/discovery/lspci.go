package discovery

import (
	"fmt"
	"regexp"
	"strings"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/types"
)

// LspciCommand lists every Ethernet-class PCI function in machine readable form.
const LspciCommand = "lspci -D -nnvvvmm | grep -B1 -A6 '^Class.*Ethernet'"

var bracketID = regexp.MustCompile(`\[([0-9a-fA-F]{4})\]\s*$`)

// ParseLspci parses `lspci -vmm -nn` output into uninstalled ETH_CONTROLLER
// records. Paragraphs are separated by blank lines or by grep's "--" marker.
// A malformed Slot is an error.
func ParseLspci(output, namespace string) ([]types.InterfaceRecord, error) {
	var records []types.InterfaceRecord
	for _, block := range splitLspciBlocks(output) {
		rec, ok, err := parseLspciBlock(block, namespace)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func splitLspciBlocks(output string) [][]string {
	var blocks [][]string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "--" {
			flush()
			continue
		}
		cur = append(cur, trimmed)
	}
	flush()
	return blocks
}

func parseLspciBlock(lines []string, namespace string) (types.InterfaceRecord, bool, error) {
	fields := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	slot, ok := fields["Slot"]
	if !ok {
		return types.InterfaceRecord{}, false, nil
	}
	addr, err := types.ParsePCIAddress(slot)
	if err != nil {
		return types.InterfaceRecord{}, false, fmt.Errorf("lspci: %w", err)
	}

	rec := types.InterfaceRecord{
		PCIAddress: &addr,
		Type:       types.EthController,
		Installed:  false,
		Namespace:  namespace,
	}

	vendor, device := bracketed(fields["Vendor"]), bracketed(fields["Device"])
	if vendor == "" || device == "" {
		pkg.WithField("pci", addr.String()).Warn("lspci record without vendor/device ids")
		return rec, true, nil
	}
	dev := types.PCIDevice{VendorID: vendor, DeviceID: device}
	subVendor, subDevice := bracketed(fields["SVendor"]), bracketed(fields["SDevice"])
	if subVendor != "" && subDevice != "" {
		dev.SubVendorID, dev.SubDeviceID = subVendor, subDevice
	}
	rec.PCIDevice = &dev
	return rec, true, nil
}

// bracketed returns the normalized "[xxxx]" id at the end of an lspci value.
func bracketed(value string) string {
	m := bracketID.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
