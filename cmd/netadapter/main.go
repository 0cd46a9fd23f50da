package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "netadapter",
	Short: "Discover and classify the network interfaces of a Linux host",
	Long: `netadapter reconciles lspci, sysfs and iproute2 output into one list of
network interfaces, each classified as PF, VF, VPORT, BTS, VLAN, BOND and so on.
Commands run locally or on a remote host over SSH.

Examples:
  netadapter list                          # Interfaces of the default namespace
  netadapter list --all-namespaces -o json # Every namespace, JSON output
  netadapter list --host 10.0.0.5 --user root --known-hosts ~/.ssh/known_hosts
  netadapter lookup device 8086:1592       # PCI addresses of a device model
  netadapter sriov vfs ens801f0np0 8       # Create 8 VFs
  netadapter watch --metrics-addr :9108    # Rediscover on sysfs changes`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
