package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/netadapter/pkg/types"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up PCI functions in the lspci inventory",
}

var lookupDeviceCmd = &cobra.Command{
	Use:   "device VENDOR:DEVICE[:SUBVENDOR:SUBDEVICE]",
	Short: "Print the PCI addresses of every function of a device model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := types.ParsePCIDevice(args[0])
		if err != nil {
			return err
		}
		ns, err := namespace(settings)
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

		addrs, err := s.discoverer.PCIAddressesByDevice(ctx, ns, query)
		if err != nil {
			return err
		}
		for _, a := range addrs {
			fmt.Fprintln(cmd.OutOrStdout(), a)
		}
		return nil
	},
}

var lookupAddressCmd = &cobra.Command{
	Use:   "address PCI_ADDRESS",
	Short: "Print the device identity of a PCI function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := types.ParsePCIAddress(args[0])
		if err != nil {
			return err
		}
		ns, err := namespace(settings)
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

		dev, err := s.discoverer.PCIDeviceByAddress(ctx, ns, addr)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dev)
		return nil
	},
}

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List the named network namespaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		s, err := openSession(settings, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		names, err := s.discoverer.Namespaces(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	lookupCmd.AddCommand(lookupDeviceCmd, lookupAddressCmd)
	rootCmd.AddCommand(lookupCmd, namespacesCmd)
}
