// Package virtualization manages SR-IOV virtual functions of a physical
// function through sysfs and `ip link`.
package virtualization

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/types"
)

// LinkState is the administrative link state of a VF.
type LinkState string

const (
	LinkAuto    LinkState = "auto"
	LinkEnable  LinkState = "enable"
	LinkDisable LinkState = "disable"
)

// ParseLinkState accepts auto, enable and disable.
func ParseLinkState(s string) (LinkState, error) {
	switch LinkState(strings.ToLower(strings.TrimSpace(s))) {
	case LinkAuto:
		return LinkAuto, nil
	case LinkEnable:
		return LinkEnable, nil
	case LinkDisable:
		return LinkDisable, nil
	}
	return "", fmt.Errorf("unknown link state: %s", s)
}

// VlanProto selects the VLAN tag protocol of a VF port VLAN.
type VlanProto string

const (
	Proto8021Q  VlanProto = "802.1Q"
	Proto8021AD VlanProto = "802.1ad"
)

// VFDetail is one "vf N" line of `ip link show dev <pf>`.
type VFDetail struct {
	ID         int              `json:"id"`
	MACAddress net.HardwareAddr `json:"mac_address"`
	SpoofCheck bool             `json:"spoof_check"`
	LinkState  LinkState        `json:"link_state"`
	Trust      bool             `json:"trust"`
}

// Capabilities are the SR-IOV attributes exposed in sysfs.
type Capabilities struct {
	TotalVFs   int    `json:"total_vfs"`
	NumVFs     int    `json:"num_vfs"`
	VFDeviceID string `json:"vf_device_id,omitempty"`
	VFOffset   int    `json:"vf_offset"`
	VFStride   int    `json:"vf_stride"`
}

var (
	vfLine = regexp.MustCompile(`vf\s*(\d+)\s*link/ether\s*([0-9a-fA-F]{2}(?::[0-9a-fA-F]{2}){5})\s*.*?,` +
		`\s*spoof checking\s*(\w+),\s*link-state\s*(\w+),\s*trust\s*(\w+)`)
	virtfnLine = regexp.MustCompile(`virtfn(\d+)\s.*->\s*\S*?([0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7])\s*$`)
)

// ParseVFDetails extracts the VF table of `ip link show dev <pf>`.
func ParseVFDetails(output string) []VFDetail {
	var details []VFDetail
	for _, m := range vfLine.FindAllStringSubmatch(output, -1) {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		mac, err := net.ParseMAC(m[2])
		if err != nil {
			continue
		}
		details = append(details, VFDetail{
			ID:         id,
			MACAddress: mac,
			SpoofCheck: m[3] == "on",
			LinkState:  LinkState(m[4]),
			Trust:      m[5] == "on",
		})
	}
	return details
}

// Virtualization drives SR-IOV on one PF or BTS record. Every operation
// checks the record type before issuing a command.
type Virtualization struct {
	runner connection.Runner
	iface  types.InterfaceRecord
}

// New returns a Virtualization for iface. Commands run in iface's namespace.
func New(runner connection.Runner, iface types.InterfaceRecord) *Virtualization {
	return &Virtualization{runner: runner, iface: iface}
}

func (v *Virtualization) check() error {
	return types.RequireType(v.iface, types.PF, types.BTS)
}

func (v *Virtualization) logger() *log.Entry {
	return pkg.WithFields(log.Fields{"interface": v.iface.ID(), "namespace": v.iface.Namespace})
}

func (v *Virtualization) exec(ctx context.Context, command string) (string, error) {
	return connection.RunChecked(ctx, v.runner, connection.InNamespace(v.iface.Namespace, command))
}

// deviceDir is the sysfs directory of the PF, by name when known.
func (v *Virtualization) deviceDir() (string, error) {
	if v.iface.Name != "" {
		return "/sys/class/net/" + v.iface.Name + "/device", nil
	}
	if v.iface.PCIAddress != nil {
		return "/sys/bus/pci/devices/" + v.iface.PCIAddress.String(), nil
	}
	return "", fmt.Errorf("interface has neither name nor PCI address")
}

func (v *Virtualization) name() (string, error) {
	if err := v.check(); err != nil {
		return "", err
	}
	if v.iface.Name == "" {
		return "", fmt.Errorf("interface %s has no link name", v.iface.ID())
	}
	return v.iface.Name, nil
}

func (v *Virtualization) readInt(ctx context.Context, attr string) (int, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	dir, err := v.deviceDir()
	if err != nil {
		return 0, err
	}
	out, err := v.exec(ctx, "cat "+dir+"/"+attr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", attr, strings.TrimSpace(out), err)
	}
	return n, nil
}

// MaxVFs returns sriov_totalvfs.
func (v *Virtualization) MaxVFs(ctx context.Context) (int, error) {
	return v.readInt(ctx, "sriov_totalvfs")
}

// CurrentVFs returns sriov_numvfs.
func (v *Virtualization) CurrentVFs(ctx context.Context) (int, error) {
	return v.readInt(ctx, "sriov_numvfs")
}

func (v *Virtualization) writeNumVFs(ctx context.Context, n int) error {
	dir, err := v.deviceDir()
	if err != nil {
		return err
	}
	_, err = v.exec(ctx, fmt.Sprintf("echo %d > %s/sriov_numvfs", n, dir))
	return err
}

// CreateVFs sets the number of VFs to n. The kernel refuses to change a
// non-zero count directly, so an existing different count is reset first.
func (v *Virtualization) CreateVFs(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("invalid number of VFs: %d", n)
	}
	current, err := v.CurrentVFs(ctx)
	if err != nil {
		return err
	}
	if current == n {
		v.logger().WithField("vfs", n).Info("SR-IOV already configured")
		return nil
	}
	if current != 0 && n != 0 {
		if err := v.writeNumVFs(ctx, 0); err != nil {
			return err
		}
	}
	if err := v.writeNumVFs(ctx, n); err != nil {
		return fmt.Errorf("failed to enable SR-IOV: %w", err)
	}
	v.logger().WithField("vfs", n).Info("SR-IOV enabled")
	return nil
}

// DeleteVFs removes every VF.
func (v *Virtualization) DeleteVFs(ctx context.Context) error {
	if err := v.check(); err != nil {
		return err
	}
	return v.writeNumVFs(ctx, 0)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (v *Virtualization) setVF(ctx context.Context, format string, args ...interface{}) error {
	name, err := v.name()
	if err != nil {
		return err
	}
	cmd := fmt.Sprintf("ip link set "+format, append([]interface{}{name}, args...)...)
	v.logger().Debug(cmd)
	_, err = v.exec(ctx, cmd)
	return err
}

// SetTrust toggles the trust flag of VF vf.
func (v *Virtualization) SetTrust(ctx context.Context, vf int, on bool) error {
	return v.setVF(ctx, "%s vf %d trust %s", vf, onOff(on))
}

// SetSpoofCheck toggles MAC spoof checking of VF vf.
func (v *Virtualization) SetSpoofCheck(ctx context.Context, vf int, on bool) error {
	return v.setVF(ctx, "%s vf %d spoofchk %s", vf, onOff(on))
}

// SetVLAN sets the port VLAN of VF vf. An empty proto leaves the kernel default.
func (v *Virtualization) SetVLAN(ctx context.Context, vf, vlanID int, proto VlanProto) error {
	if proto == "" {
		return v.setVF(ctx, "%s vf %d vlan %d", vf, vlanID)
	}
	return v.setVF(ctx, "%s vf %d vlan %d proto %s", vf, vlanID, proto)
}

// SetLinkState sets the administrative link state of VF vf.
func (v *Virtualization) SetLinkState(ctx context.Context, vf int, state LinkState) error {
	return v.setVF(ctx, "%s vf %d state %s", vf, state)
}

// SetMaxTxRate limits VF vf to mbps.
func (v *Virtualization) SetMaxTxRate(ctx context.Context, vf, mbps int) error {
	return v.setVF(ctx, "dev %s vf %d max_tx_rate %d", vf, mbps)
}

// SetMinTxRate guarantees VF vf mbps.
func (v *Virtualization) SetMinTxRate(ctx context.Context, vf, mbps int) error {
	return v.setVF(ctx, "dev %s vf %d min_tx_rate %d", vf, mbps)
}

// SetMAC assigns mac to VF vf.
func (v *Virtualization) SetMAC(ctx context.Context, vf int, mac net.HardwareAddr) error {
	return v.setVF(ctx, "%s vf %d mac %s", vf, mac)
}

// VFDetails lists the VFs reported by `ip link show dev <pf>`.
func (v *Virtualization) VFDetails(ctx context.Context) ([]VFDetail, error) {
	name, err := v.name()
	if err != nil {
		return nil, err
	}
	out, err := v.exec(ctx, "ip link show dev "+name)
	if err != nil {
		return nil, err
	}
	return ParseVFDetails(out), nil
}

// VF returns the details of VF id.
func (v *Virtualization) VF(ctx context.Context, id int) (VFDetail, error) {
	details, err := v.VFDetails(ctx)
	if err != nil {
		return VFDetail{}, err
	}
	for _, d := range details {
		if d.ID == id {
			return d, nil
		}
	}
	return VFDetail{}, &types.NotFoundError{What: "VF", Key: fmt.Sprintf("%s vf %d", v.iface.ID(), id)}
}

// VFIDByPCI returns the index of the VF at vfAddr from the PF's virtfn links.
func (v *Virtualization) VFIDByPCI(ctx context.Context, vfAddr types.PCIAddress) (int, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	if v.iface.PCIAddress == nil {
		return 0, fmt.Errorf("interface %s has no PCI address", v.iface.ID())
	}
	pf := v.iface.PCIAddress.String()
	cmd := connection.InNamespace(v.iface.Namespace, fmt.Sprintf("ls /sys/bus/pci/devices/%s/virtfn* -la", pf))
	res, err := v.runner.Run(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if !res.Success() {
		return 0, &types.NotFoundError{What: "VFs of PF", Key: pf}
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		m := virtfnLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		addr, err := types.ParsePCIAddress(m[2])
		if err != nil || addr != vfAddr {
			continue
		}
		return strconv.Atoi(m[1])
	}
	return 0, &types.NotFoundError{What: "VF", Key: vfAddr.String()}
}

// SetDriversAutoprobe controls whether new VFs are bound to a driver.
func (v *Virtualization) SetDriversAutoprobe(ctx context.Context, on bool) error {
	if err := v.check(); err != nil {
		return err
	}
	dir, err := v.deviceDir()
	if err != nil {
		return err
	}
	value := 0
	if on {
		value = 1
	}
	_, err = v.exec(ctx, fmt.Sprintf("echo %d > %s/sriov_drivers_autoprobe", value, dir))
	return err
}

// Capabilities reads the SR-IOV sysfs attributes. Attributes the kernel
// does not expose are left zero.
func (v *Virtualization) Capabilities(ctx context.Context) (*Capabilities, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	dir, err := v.deviceDir()
	if err != nil {
		return nil, err
	}

	caps := &Capabilities{}
	read := func(attr string) (string, bool, error) {
		res, err := v.runner.Run(ctx, connection.InNamespace(v.iface.Namespace, "cat "+dir+"/"+attr))
		if err != nil {
			return "", false, err
		}
		return strings.TrimSpace(res.Stdout), res.Success(), nil
	}

	ints := []struct {
		attr string
		dst  *int
	}{
		{"sriov_totalvfs", &caps.TotalVFs},
		{"sriov_numvfs", &caps.NumVFs},
		{"sriov_offset", &caps.VFOffset},
		{"sriov_stride", &caps.VFStride},
	}
	for _, f := range ints {
		value, ok, err := read(f.attr)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			*f.dst = n
		}
	}

	value, ok, err := read("sriov_vf_device")
	if err != nil {
		return nil, err
	}
	if ok {
		if id, err := types.NormalizeID(value); err == nil {
			caps.VFDeviceID = id
		}
	}
	return caps, nil
}
