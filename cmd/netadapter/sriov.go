package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/netadapter/internal/manager"
	"example.com/netadapter/pkg/feature/virtualization"
	"example.com/netadapter/pkg/types"
)

var (
	vlanProto string
	rateMax   int
	rateMin   int
)

var sriovCmd = &cobra.Command{
	Use:   "sriov",
	Short: "Manage SR-IOV virtual functions of a PF or BTS interface",
}

// withVirtualization discovers the selected namespace, resolves name to a
// record and runs fn against it.
func withVirtualization(name string, fn func(ctx context.Context, v *virtualization.Virtualization) error) error {
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

	rec, err := findInterface(ctx, s, ns, name)
	if err != nil {
		return err
	}
	return fn(ctx, virtualization.New(s.runner, rec))
}

// findInterface returns the record named name, or the record at PCI address
// name when it parses as one.
func findInterface(ctx context.Context, s *session, ns, name string) (types.InterfaceRecord, error) {
	records, err := s.discoverer.Discover(ctx, ns)
	if err != nil {
		return types.InterfaceRecord{}, err
	}
	addr, addrErr := types.ParsePCIAddress(name)
	for _, rec := range records {
		if rec.Name == name || (addrErr == nil && rec.HasAddress(addr)) {
			return rec, nil
		}
	}
	return types.InterfaceRecord{}, &types.NotFoundError{What: "interface", Key: name}
}

func vfArg(s string) (int, error) {
	vf, err := strconv.Atoi(s)
	if err != nil || vf < 0 {
		return 0, fmt.Errorf("invalid VF index %q", s)
	}
	return vf, nil
}

func onOffArg(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var sriovShowCmd = &cobra.Command{
	Use:   "show INTERFACE",
	Short: "Show SR-IOV capabilities and VF settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			caps, err := v.Capabilities(ctx)
			if err != nil {
				return err
			}
			vfs, err := v.VFDetails(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				*virtualization.Capabilities
				VFs []virtualization.VFDetail `json:"vfs"`
			}{caps, vfs})
		})
	},
}

var sriovVFsCmd = &cobra.Command{
	Use:   "vfs INTERFACE COUNT",
	Short: "Set the number of VFs (0 deletes them)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid VF count %q", args[1])
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			if n == 0 {
				return v.DeleteVFs(ctx)
			}
			return v.CreateVFs(ctx, n)
		})
	},
}

var sriovTrustCmd = &cobra.Command{
	Use:   "trust INTERFACE VF on|off",
	Short: "Set the trust flag of a VF",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		on, err := onOffArg(args[2])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetTrust(ctx, vf, on)
		})
	},
}

var sriovSpoofCmd = &cobra.Command{
	Use:   "spoofchk INTERFACE VF on|off",
	Short: "Set MAC spoof checking of a VF",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		on, err := onOffArg(args[2])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetSpoofCheck(ctx, vf, on)
		})
	},
}

var sriovVlanCmd = &cobra.Command{
	Use:   "vlan INTERFACE VF VLAN_ID",
	Short: "Set the port VLAN of a VF",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(args[2])
		if err != nil || id < 0 || id > 4094 {
			return fmt.Errorf("invalid VLAN id %q", args[2])
		}
		proto := virtualization.VlanProto(vlanProto)
		if proto != "" && proto != virtualization.Proto8021Q && proto != virtualization.Proto8021AD {
			return fmt.Errorf("invalid VLAN protocol %q", vlanProto)
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetVLAN(ctx, vf, id, proto)
		})
	},
}

var sriovStateCmd = &cobra.Command{
	Use:   "state INTERFACE VF auto|enable|disable",
	Short: "Set the link state of a VF",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		state, err := virtualization.ParseLinkState(args[2])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetLinkState(ctx, vf, state)
		})
	},
}

var sriovRateCmd = &cobra.Command{
	Use:   "rate INTERFACE VF",
	Short: "Set the TX rate limits of a VF in Mbps",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("max") && !cmd.Flags().Changed("min") {
			return fmt.Errorf("at least one of --max or --min is required")
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			if cmd.Flags().Changed("max") {
				if err := v.SetMaxTxRate(ctx, vf, rateMax); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("min") {
				return v.SetMinTxRate(ctx, vf, rateMin)
			}
			return nil
		})
	},
}

var sriovMACCmd = &cobra.Command{
	Use:   "mac INTERFACE VF MAC",
	Short: "Set the MAC address of a VF",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vf, err := vfArg(args[1])
		if err != nil {
			return err
		}
		mac, err := net.ParseMAC(args[2])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetMAC(ctx, vf, mac)
		})
	},
}

var sriovAutoprobeCmd = &cobra.Command{
	Use:   "autoprobe INTERFACE on|off",
	Short: "Control driver autoprobing of new VFs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := onOffArg(args[1])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			return v.SetDriversAutoprobe(ctx, on)
		})
	},
}

var sriovVFIDCmd = &cobra.Command{
	Use:   "vf-id INTERFACE VF_PCI_ADDRESS",
	Short: "Print the VF index of a VF PCI address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := types.ParsePCIAddress(args[1])
		if err != nil {
			return err
		}
		return withVirtualization(args[0], func(ctx context.Context, v *virtualization.Virtualization) error {
			id, err := v.VFIDByPCI(ctx, addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the device policies and bonds of the configuration file",
	Long: `Discover the selected namespace, create VFs on every PF and BTS interface
that matches a device_policies entry, then create the configured bonds.

Example:
  netadapter apply --config /etc/netadapter/config.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		records, err := s.discoverer.Discover(ctx, ns)
		if err != nil {
			return err
		}
		res, applyErr := manager.New(settings, s.runner).Apply(ctx, ns, records)
		if err := printJSON(cmd, res); err != nil {
			return err
		}
		return applyErr
	},
}

func init() {
	sriovVlanCmd.Flags().StringVar(&vlanProto, "proto", "", "VLAN protocol: 802.1Q or 802.1ad")
	sriovRateCmd.Flags().IntVar(&rateMax, "max", 0, "Maximum TX rate in Mbps (0 removes the limit)")
	sriovRateCmd.Flags().IntVar(&rateMin, "min", 0, "Minimum TX rate in Mbps")

	sriovCmd.AddCommand(sriovShowCmd, sriovVFsCmd, sriovTrustCmd, sriovSpoofCmd, sriovVlanCmd,
		sriovStateCmd, sriovRateCmd, sriovMACCmd, sriovAutoprobeCmd, sriovVFIDCmd)
	rootCmd.AddCommand(sriovCmd, applyCmd)
}
