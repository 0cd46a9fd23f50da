package main

import (
	"context"

	"github.com/spf13/cobra"

	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/feature/gtp"
)

var gtpRole string

var gtpCmd = &cobra.Command{
	Use:   "gtp",
	Short: "Manage GTP tunnel devices",
}

var gtpAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a GTP device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return gtp.New(runner, ns).Create(ctx, args[0], gtpRole)
		})
	},
}

var gtpDelCmd = &cobra.Command{
	Use:   "del NAME",
	Short: "Delete a GTP device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, runner connection.Runner, ns string) error {
			return gtp.New(runner, ns).Delete(ctx, args[0])
		})
	},
}

func init() {
	gtpAddCmd.Flags().StringVar(&gtpRole, "role", "sgsn", "GTP role: sgsn or ggsn")

	gtpCmd.AddCommand(gtpAddCmd, gtpDelCmd)
	rootCmd.AddCommand(gtpCmd)
}
