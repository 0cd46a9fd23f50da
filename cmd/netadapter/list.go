package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

var (
	// List command flags
	listFormat string
	listNames  bool
	listTypes  []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List classified network interfaces",
	Long: `List every network interface of the selected namespaces with its type,
PCI identity, MAC address and VLAN details.

Examples:
  netadapter list                       # Default namespace, table output
  netadapter list -n blue -o json       # Namespace "blue" as JSON
  netadapter list -A --type PF,VF       # PFs and VFs of every namespace
  netadapter list --names               # Add pci.ids vendor and device names`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "Output format: table, json, simple, csv")
	listCmd.Flags().BoolVar(&listNames, "names", false, "Resolve vendor and device names from pci.ids")
	listCmd.Flags().StringSliceVar(&listTypes, "type", nil, "Only show these interface types")
}

func runList(cmd *cobra.Command, args []string) error {
	wanted, err := parseTypes(listTypes)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(settings, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := discoverConfigured(ctx, s.discoverer, settings)
	if err != nil {
		return err
	}
	records = filterTypes(records, wanted)

	var db *pkg.VendorDatabase
	if listNames {
		db = loadVendorDatabase(ctx, s.runner)
	}
	out, err := formatInterfaces(listFormat, toRows(records, db), listNames)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func parseTypes(names []string) (map[types.InterfaceType]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	wanted := make(map[types.InterfaceType]bool, len(names))
	for _, n := range names {
		t, err := types.ParseInterfaceType(n)
		if err != nil {
			return nil, err
		}
		wanted[t] = true
	}
	return wanted, nil
}

func filterTypes(records []types.InterfaceRecord, wanted map[types.InterfaceType]bool) []types.InterfaceRecord {
	if len(wanted) == 0 {
		return records
	}
	var out []types.InterfaceRecord
	for _, rec := range records {
		if wanted[rec.Type] {
			out = append(out, rec)
		}
	}
	return out
}

// loadVendorDatabase reads pci.ids from the target host, falling back to the
// built-in vendor list.
func loadVendorDatabase(ctx context.Context, runner connection.Runner) *pkg.VendorDatabase {
	for _, path := range pkg.PCIIDsPaths {
		res, err := runner.Run(ctx, "cat "+path)
		if err != nil || !res.Success() {
			continue
		}
		db, err := pkg.ParseVendorDatabase(strings.NewReader(res.Stdout))
		if err != nil {
			pkg.WithError(err).WithField("path", path).Warn("failed to parse pci.ids")
			continue
		}
		pkg.WithField("path", path).Debug("loaded pci.ids")
		return db
	}
	pkg.Warn("pci.ids not found, using minimal vendor database")
	return pkg.MinimalVendorDatabase()
}
