package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"example.com/netadapter/internal/manager"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/feature/bonding"
)

var (
	bondMode   string
	bondMIIMon int
)

var bondCmd = &cobra.Command{
	Use:   "bond",
	Short: "Manage bonding interfaces",
}

var bondListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bond masters and their children",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			b := bonding.New(runner, ns)
			bonds, err := b.BondInterfaces(ctx)
			if err != nil {
				return err
			}
			for _, bond := range bonds {
				children, err := b.Children(ctx, bond)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", bond, strings.Join(children, " "))
			}
			return nil
		})
	},
}

var bondCreateCmd = &cobra.Command{
	Use:   "create NAME CHILD...",
	Short: "Create a bond and attach children",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bonding.Config{Name: args[0], Mode: bondMode, MIIMon: bondMIIMon, Children: args[1:]}
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return bonding.New(runner, ns).Setup(ctx, cfg)
		})
	},
}

var bondDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Release the children of a bond and delete it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			b := bonding.New(runner, ns)
			children, err := b.Children(ctx, args[0])
			if err != nil {
				return err
			}
			return b.DeleteBond(ctx, args[0], children)
		})
	},
}

var bondSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the bonds listed in the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(settings.Bonds) == 0 {
			return fmt.Errorf("no bonds configured")
		}
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			created, err := manager.New(settings, runner).SetupBonds(ctx, ns)
			for _, name := range created {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		})
	},
}

func init() {
	bondCreateCmd.Flags().StringVar(&bondMode, "mode", "active-backup", "Bonding mode")
	bondCreateCmd.Flags().IntVar(&bondMIIMon, "miimon", 100, "MII link monitoring interval in ms")

	bondCmd.AddCommand(bondListCmd, bondCreateCmd, bondDeleteCmd, bondSetupCmd)
	rootCmd.AddCommand(bondCmd)
}
