package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/types"
)

// interfaceRow is one record prepared for printing
type interfaceRow struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace,omitempty"`
	Type        string `json:"type"`
	PCIAddress  string `json:"pci_address,omitempty"`
	PCIDevice   string `json:"pci_device,omitempty"`
	MACAddress  string `json:"mac_address,omitempty"`
	VLAN        string `json:"vlan,omitempty"`
	UUID        string `json:"uuid,omitempty"`
	Description string `json:"description,omitempty"`
}

func toRows(records []types.InterfaceRecord, db *pkg.VendorDatabase) []interfaceRow {
	rows := make([]interfaceRow, 0, len(records))
	for _, rec := range records {
		row := interfaceRow{
			Name:      rec.Name,
			Namespace: rec.Namespace,
			Type:      string(rec.Type),
		}
		if rec.PCIAddress != nil {
			row.PCIAddress = rec.PCIAddress.String()
		}
		if rec.PCIDevice != nil {
			row.PCIDevice = rec.PCIDevice.String()
			if db != nil {
				row.Description = db.Describe(*rec.PCIDevice)
			}
		}
		if len(rec.MACAddress) > 0 {
			row.MACAddress = rec.MACAddress.String()
		}
		if rec.VlanInfo != nil {
			row.VLAN = fmt.Sprintf("%d@%s", rec.VlanInfo.ID, rec.VlanInfo.Parent)
		}
		if rec.UUID != nil {
			row.UUID = rec.UUID.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func nsName(ns string) string {
	if ns == "" {
		return "default"
	}
	return ns
}

// Formatting functions
func formatInterfaces(format string, rows []interfaceRow, withNames bool) (string, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return formatInterfaceTable(rows, withNames), nil
	case "json":
		return formatInterfaceJSON(rows)
	case "simple":
		return formatInterfaceSimple(rows), nil
	case "csv":
		return formatInterfaceCSV(rows), nil
	}
	return "", fmt.Errorf("invalid format: %s. Use: table, json, simple, or csv", format)
}

func formatInterfaceJSON(rows []interfaceRow) (string, error) {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func formatInterfaceSimple(rows []interfaceRow) string {
	var builder strings.Builder
	for _, r := range rows {
		builder.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\n", r.Name, nsName(r.Namespace), r.Type, dash(r.PCIAddress)))
	}
	return builder.String()
}

func formatInterfaceCSV(rows []interfaceRow) string {
	var builder strings.Builder
	builder.WriteString("NAME,NAMESPACE,TYPE,PCI_ADDRESS,PCI_DEVICE,MAC_ADDRESS,VLAN\n")
	for _, r := range rows {
		builder.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
			r.Name, nsName(r.Namespace), r.Type, r.PCIAddress, r.PCIDevice, r.MACAddress, r.VLAN))
	}
	return builder.String()
}

func formatInterfaceTable(rows []interfaceRow, withNames bool) string {
	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	header := "NAME\tNAMESPACE\tTYPE\tPCI ADDRESS\tPCI DEVICE\tMAC\tVLAN"
	if withNames {
		header += "\tDESCRIPTION"
	}
	fmt.Fprintln(w, header)
	for _, r := range rows {
		line := strings.Join([]string{
			r.Name, nsName(r.Namespace), r.Type, dash(r.PCIAddress), dash(r.PCIDevice), dash(r.MACAddress), dash(r.VLAN),
		}, "\t")
		if withNames {
			line += "\t" + dash(r.Description)
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()
	return builder.String()
}
