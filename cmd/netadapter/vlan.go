package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/feature/vlan"
)

var vlanNoReorder bool

var vlanCmd = &cobra.Command{
	Use:   "vlan",
	Short: "Manage 802.1Q VLAN and macvlan links",
}

var vlanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List VLAN links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			names, err := vlan.New(runner, ns).List(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var vlanAddCmd = &cobra.Command{
	Use:   "add PARENT VLAN_ID",
	Short: "Create PARENT.VLAN_ID and bring it up",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid VLAN id %q", args[1])
		}
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			name, err := vlan.New(runner, ns).Create(ctx, args[0], id, !vlanNoReorder)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		})
	},
}

var vlanDelCmd = &cobra.Command{
	Use:   "del NAME",
	Short: "Delete a VLAN link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return vlan.New(runner, ns).Remove(ctx, args[0])
		})
	},
}

var vlanDelAllCmd = &cobra.Command{
	Use:   "del-all",
	Short: "Delete every VLAN link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return vlan.New(runner, ns).RemoveAll(ctx)
		})
	},
}

var vlanIDsCmd = &cobra.Command{
	Use:   "ids PARENT",
	Short: "Print the VLAN ids configured on PARENT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			ids, err := vlan.New(runner, ns).IDs(ctx, args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var macvlanCmd = &cobra.Command{
	Use:   "macvlan PARENT NAME MAC",
	Short: "Create a macvlan link on PARENT",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mac, err := net.ParseMAC(args[2])
		if err != nil {
			return err
		}
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return vlan.New(runner, ns).CreateMACVLAN(ctx, args[0], args[1], mac)
		})
	},
}

func init() {
	vlanAddCmd.Flags().BoolVar(&vlanNoReorder, "no-reorder", false, "Create the link with reorder_hdr off")

	vlanCmd.AddCommand(vlanListCmd, vlanAddCmd, vlanDelCmd, vlanDelAllCmd, vlanIDsCmd, macvlanCmd)
	rootCmd.AddCommand(vlanCmd)
}
