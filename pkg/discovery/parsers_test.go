package discovery

import (
	"net"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg/types"
)

func addrPtr(s string) *types.PCIAddress {
	a := types.MustParsePCIAddress(s)
	return &a
}

func devPtr(s string) *types.PCIDevice {
	d := types.MustParsePCIDevice(s)
	return &d
}

func TestParseLspci(t *testing.T) {
	records, err := ParseLspci(lspciMixed, "blue")
	require.NoError(t, err)
	require.Len(t, records, 3)

	expected := []types.InterfaceRecord{
		{PCIAddress: addrPtr("0000:05:00.0"), PCIDevice: devPtr("8086:1533:8086:0001"), Type: types.EthController, Namespace: "blue"},
		{PCIAddress: addrPtr("0000:18:00.0"), PCIDevice: devPtr("8086:1592"), Type: types.EthController, Namespace: "blue"},
		{PCIAddress: addrPtr("1cb6:00:02.0"), PCIDevice: devPtr("15b3:1016:15b3:0190"), Type: types.EthController, Namespace: "blue"},
	}
	for i := range expected {
		assert.True(t, expected[i].Equal(records[i]), "record %d: expected %v, got %v", i, expected[i], records[i])
		assert.False(t, records[i].Installed)
	}
	assert.False(t, records[1].PCIDevice.HasSubsystem())
	assert.Equal(t, uint32(0x1cb6), records[2].PCIAddress.Domain)
}

func TestParseLspciGrepSeparator(t *testing.T) {
	records, err := ParseLspci(lspciTwoPorts, "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0000:18:00.1", records[1].PCIAddress.String())
	assert.Equal(t, "8086:1563:8086:35d4", records[1].PCIDevice.String())
}

func TestParseLspciEdgeCases(t *testing.T) {
	records, err := ParseLspci("", "")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseLspci("Slot:\tnot-a-slot\nClass:\tEthernet controller [0200]\n", "")
	assert.Error(t, err)
}

func TestParseSysfsVirtual(t *testing.T) {
	records := ParseSysfsVirtual(strings.Split(sysClassNet, "\n"), "foo")
	require.Len(t, records, 2)
	assert.Equal(t, "br0", records[0].Name)
	assert.Equal(t, "dummy0", records[1].Name)
	for _, r := range records {
		assert.Equal(t, types.VirtualDevice, r.Type)
		assert.True(t, r.Installed)
		assert.Equal(t, "foo", r.Namespace)
		assert.Nil(t, r.PCIAddress)
	}
}

func TestParseSysfsPCI(t *testing.T) {
	records := ParseSysfsPCI(strings.Split(sysClassNet, "\n"), "")
	expected := []types.InterfaceRecord{
		{Name: "eth2", PCIAddress: addrPtr("0000:18:00.0"), Type: types.PF, Installed: true},
		{Name: "eth3", PCIAddress: addrPtr("0000:5e:00.0"), Type: types.PF, Installed: true},
		{Name: "eth1", PCIAddress: addrPtr("0000:5e:00.1"), Type: types.PF, Installed: true},
	}
	require.Len(t, records, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Equal(records[i]), "expected %v, got %v", expected[i], records[i])
	}
}

func TestParseSysfsVMBus(t *testing.T) {
	lines := strings.Split(sysClassNetVMBus, "\n")

	vmbus := ParseSysfsVMBus(lines, "foo")
	require.Len(t, vmbus, 3)
	for i, name := range []string{"eth0", "eth1", "eth2"} {
		assert.Equal(t, name, vmbus[i].Name)
		assert.Equal(t, types.VMBus, vmbus[i].Type)
		assert.True(t, vmbus[i].Installed)
		assert.Equal(t, "foo", vmbus[i].Namespace)
	}

	vmnics := ParseSysfsPCI(lines, "foo")
	require.Len(t, vmnics, 2)
	assert.Equal(t, "enP41140s2", vmnics[0].Name)
	assert.Equal(t, types.VMNIC, vmnics[0].Type)
	assert.Equal(t, "a0b4:00:02.0", vmnics[0].PCIAddress.String())
	require.NotNil(t, vmnics[0].UUID)
	assert.Equal(t, uuid.MustParse("dc839ab6-a0b4-4485-ad3c-a0402d6ee7a4"), *vmnics[0].UUID)
	assert.Equal(t, "1cb6:00:02.0", vmnics[1].PCIAddress.String())

	virtual := ParseSysfsVirtual(lines, "foo")
	require.Len(t, virtual, 1)
	assert.Equal(t, "lo", virtual[0].Name)
}

func TestParseSysfsGeneric(t *testing.T) {
	lines := []string{
		"lrwxrwxrwx 1 root root 0 Jan 1 00:00 enx00e04c680001 -> ../../devices/pci0000:00/0000:00:14.0/usb2/2-1/2-1:1.0/net/enx00e04c680001",
		"lrwxrwxrwx 1 root root 0 Jan 1 00:00 eth0 -> ../../devices/pci0000:00/0000:00:03.0/net/eth0",
	}
	generic := ParseSysfsGeneric(lines, "")
	require.Len(t, generic, 1)
	assert.Equal(t, "enx00e04c680001", generic[0].Name)
	assert.Equal(t, types.Generic, generic[0].Type)

	assert.Empty(t, ParseSysfsVirtual(lines, ""))
	assert.Len(t, ParseSysfsPCI(lines, ""), 1)
}

func TestGatherSysfsOrder(t *testing.T) {
	records := gatherSysfs(strings.Split(sysClassNet, "\n"), "")
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"eth2", "eth3", "eth1", "br0", "dummy0"}, names)
}

func TestParseLinkMACs(t *testing.T) {
	macs := ParseLinkMACs(ipAddrOutput)

	assert.Len(t, macs, 3)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", macs["eno1"].String())
	assert.Equal(t, "b4:96:91:aa:00:01", macs["ens801f0np0"].String())
	assert.Equal(t, "00:50:56:8a:63:cd", macs["ens192.164"].String())
	assert.NotContains(t, macs, "lo")
	assert.NotContains(t, macs, "ppp0")
}

func TestParseInetAddresses(t *testing.T) {
	addrs := ParseInetAddresses(ipAddrOutput)
	assert.Equal(t, []net.IP{net.ParseIP("10.10.10.10")}, addrs["eno1"])
	assert.Equal(t, []net.IP{net.ParseIP("10.10.10.11")}, addrs["ppp0"])
	assert.Equal(t, []net.IP{net.ParseIP("127.0.0.1")}, addrs["lo"])

	bare := ParseInetAddresses("\ninet 10.10.10.10/24 brd 10.10.10.10 scope global dynamic br0\n")
	assert.Equal(t, []net.IP{net.ParseIP("10.10.10.10")}, bare["br0"])
}

func TestParseVlanDetail(t *testing.T) {
	output := `
23: eth9.8@if17: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN mode DEFAULT group default qlen 1000
    link/ether 00:00:00:00:00:00 brd 00:00:00:00:00:00 link-netnsid 0 promiscuity 0
    vlan protocol 802.1Q id 8 <REORDER_HDR> addrgenmode eui64 numtxqueues 1 numrxqueues 1 gso_max_size 65536
    gso_max_segs 65535
`
	info, ok := ParseVlanDetail(output)
	require.True(t, ok)
	assert.Equal(t, types.VlanInfo{ID: 8, Parent: "if17"}, info)

	_, ok = ParseVlanDetail("5: br0: <BROADCAST> mtu 1500\n    bridge forward_delay 1500\n")
	assert.False(t, ok)
}

func TestParseVlanNames(t *testing.T) {
	assert.Equal(t, []string{"eth1.69"}, ParseVlanNames("config  eth1.69 "))
	assert.Empty(t, ParseVlanNames("config\n"))
}

func TestParsePhysfnLinks(t *testing.T) {
	output := "/sys/class/net/eth4/device/physfn\n/sys/class/net/eth5/device/physfn\nsomething else\n"
	assert.Equal(t, []string{"eth4", "eth5"}, ParsePhysfnLinks(output))
}

func TestParseTunnelNames(t *testing.T) {
	output := "\nipip0: any/ip remote any local any ttl inherit nopmtudisc\neth2:\n"
	assert.Equal(t, []string{"ipip0", "eth2"}, ParseTunnelNames(output))
}

func TestParseNamespaces(t *testing.T) {
	output := `
siemanko_namespace4
siemanko_namespace3
siemanko_namespace3
siemanko_namespace (id: 0)
`
	assert.Equal(t, []string{
		"siemanko_namespace4",
		"siemanko_namespace3",
		"siemanko_namespace3",
		"siemanko_namespace",
	}, ParseNamespaces(output))
}
