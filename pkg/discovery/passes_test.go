package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg/types"
)

func stub(addr, dev string) types.InterfaceRecord {
	return types.InterfaceRecord{PCIAddress: addrPtr(addr), PCIDevice: devPtr(dev), Type: types.EthController}
}

func pf(name, addr, dev string) types.InterfaceRecord {
	rec := types.InterfaceRecord{Name: name, PCIAddress: addrPtr(addr), Type: types.PF, Installed: true}
	if dev != "" {
		rec.PCIDevice = devPtr(dev)
	}
	return rec
}

func named(name string, typ types.InterfaceType) types.InterfaceRecord {
	return types.InterfaceRecord{Name: name, Type: typ, Installed: true}
}

func typesOf(records []types.InterfaceRecord) map[string]types.InterfaceType {
	m := make(map[string]types.InterfaceType, len(records))
	for _, r := range records {
		m[r.Name] = r.Type
	}
	return m
}

func TestEnrichPCIDevices(t *testing.T) {
	records := []types.InterfaceRecord{
		pf("eth2", "0000:18:00.0", ""),
		pf("eth3", "0000:5e:00.0", ""),
		named("br0", types.VirtualDevice),
	}
	stubs := []types.InterfaceRecord{stub("0000:18:00.0", "8086:1572")}

	once := enrichPCIDevices(records, stubs)
	require.NotNil(t, once[0].PCIDevice)
	assert.Equal(t, "8086:1572", once[0].PCIDevice.String())
	assert.Nil(t, once[1].PCIDevice)
	assert.Nil(t, once[2].PCIDevice)
	assert.Nil(t, records[0].PCIDevice, "input must not be modified")

	twice := enrichPCIDevices(once, stubs)
	require.Len(t, twice, len(once))
	for i := range once {
		assert.True(t, once[i].Equal(twice[i]))
	}
}

func TestMarkVPortsConsumesOneStubPerRecord(t *testing.T) {
	records := []types.InterfaceRecord{
		pf("eth2", "0000:18:00.0", "8086:1452"),
		pf("eth3", "0000:18:00.0", "8086:1452"),
	}
	stubs := []types.InterfaceRecord{
		stub("0000:18:00.0", "8086:1452"),
		stub("0000:5e:00.0", "8086:3333"),
	}

	out, remaining := markVPorts(records, stubs)

	assert.Equal(t, types.VPort, out[0].Type)
	assert.Equal(t, types.PF, out[1].Type)
	assert.Equal(t, "0000:18:00.0", out[0].PCIAddress.String())
	assert.Equal(t, "8086:1452", out[0].PCIDevice.String())
	require.Len(t, remaining, 1)
	assert.Equal(t, "0000:5e:00.0", remaining[0].PCIAddress.String())
	assert.Len(t, stubs, 2, "input must not be modified")
}

func TestMarkVPortsLeavesSingleLinkFunctions(t *testing.T) {
	records := []types.InterfaceRecord{
		pf("bootnet", "0000:18:00.0", "8086:1563:8086:35d4"),
		pf("eth3", "0000:18:00.1", "8086:1563:8086:35d4"),
	}
	stubs := []types.InterfaceRecord{
		stub("0000:18:00.0", "8086:1563:8086:35d4"),
		stub("0000:18:00.1", "8086:1563:8086:35d4"),
	}

	out, remaining := markVPorts(records, stubs)
	assert.Equal(t, types.PF, out[0].Type)
	assert.Equal(t, types.PF, out[1].Type)
	assert.Len(t, remaining, 2)
}

func TestMarkBTS(t *testing.T) {
	records := []types.InterfaceRecord{
		named("eth2", types.VirtualDevice),
		named("nac_eth2", types.VirtualDevice),
	}
	stubs := []types.InterfaceRecord{
		stub("0000:02:00.0", "8086:1452"),
		stub("0000:f5:00.0", "8086:0DBD:8086:0000"),
	}
	bus := map[string]types.PCIAddress{
		"nac_eth2": types.MustParsePCIAddress("0000:f5:00.0"),
		"eth2":     types.MustParsePCIAddress("0000:02:00.0"),
	}

	assert.Equal(t, []string{"nac_eth2"}, btsCandidates(records, DefaultBTSPrefixes))

	out, remaining := markBTS(records, stubs, bus, DefaultBTSPrefixes)

	assert.Equal(t, types.VirtualDevice, out[0].Type, "records without the alias prefix are not BTS")
	assert.Equal(t, types.BTS, out[1].Type)
	assert.Equal(t, "0000:f5:00.0", out[1].PCIAddress.String())
	assert.Equal(t, types.PCIDevice{VendorID: "8086", DeviceID: "0dbd", SubVendorID: "8086", SubDeviceID: "0000"}, *out[1].PCIDevice)
	require.Len(t, remaining, 1)
	assert.Equal(t, "0000:02:00.0", remaining[0].PCIAddress.String())
}

func TestCompletePFs(t *testing.T) {
	records := []types.InterfaceRecord{
		pf("eth2", "0000:18:00.0", "8086:1452"),
		pf("eth3", "0000:5e:00.0", ""),
		named("foo", types.VirtualDevice),
	}
	stubs := []types.InterfaceRecord{
		stub("0000:18:00.0", "8086:1452"),
		stub("0000:5e:00.0", "8086:1452"),
		stub("0000:af:00.0", "8086:1533"),
	}

	out, dropped := completePFs(records, stubs)

	require.Len(t, out, 3)
	assert.Equal(t, "8086:1452", out[1].PCIDevice.String())
	assert.Equal(t, types.PF, out[1].Type)
	require.Len(t, dropped, 1)
	assert.Equal(t, "0000:af:00.0", dropped[0].PCIAddress.String())
}

func TestMarkVFs(t *testing.T) {
	records := []types.InterfaceRecord{pf("eth4", "0000:18:02.0", ""), pf("eth0", "0000:18:00.0", "")}
	out := markVFs(records, []string{"eth4", "missing"})
	assert.Equal(t, types.VF, out[0].Type)
	assert.Equal(t, types.PF, out[1].Type)
}

func TestApplyVLANs(t *testing.T) {
	info := types.VlanInfo{ID: 1, Parent: "parent"}
	records := []types.InterfaceRecord{
		named("foo", types.VirtualDevice),
		named("bar", types.VirtualDevice),
		named("dunno", types.PF),
	}
	vlans := map[string]types.VlanInfo{"foo": info, "bar": info, "dunno": info}

	out := applyVLANs(records, vlans)

	assert.Equal(t, types.VLAN, out[0].Type)
	assert.Equal(t, &info, out[0].VlanInfo)
	assert.Equal(t, types.VLAN, out[1].Type)
	assert.Equal(t, types.PF, out[2].Type, "only virtual links become VLAN")
	assert.Nil(t, out[2].VlanInfo)
}

func TestApplyBonding(t *testing.T) {
	records := []types.InterfaceRecord{
		named("bond0", types.VirtualDevice),
		pf("eth0", "0000:18:00.0", ""),
		pf("eth1", "0000:18:00.1", ""),
		{Type: types.EthController},
	}

	t.Run("master and child", func(t *testing.T) {
		out := applyBonding(records, []string{"bond0"}, map[string][]string{"bond0": {"eth0"}})
		assert.Equal(t, types.Bond, out[0].Type)
		assert.Equal(t, types.BondSlave, out[1].Type)
		assert.Equal(t, types.PF, out[2].Type)
		assert.Equal(t, types.EthController, out[3].Type)
	})

	t.Run("no masters", func(t *testing.T) {
		out := applyBonding(records, nil, nil)
		for i := range records {
			assert.Equal(t, records[i].Type, out[i].Type)
		}
	})
}

func TestApplyMACs(t *testing.T) {
	records := []types.InterfaceRecord{named("lo", types.VirtualDevice), named("eno1", types.PF)}
	out := applyMACs(records, ParseLinkMACs(ipAddrOutput))
	assert.Nil(t, out[0].MACAddress)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", out[1].MACAddress.String())
}

func TestMarkManagement(t *testing.T) {
	records := []types.InterfaceRecord{named("eth1", types.PF), named("eth2", types.PF), named("eth3", types.PF)}
	addrs := map[string][]net.IP{
		"eth1": {net.ParseIP("10.10.10.10")},
		"eth2": {net.ParseIP("10.12.1.1")},
		"eth3": {net.ParseIP("192.168.0.1")},
	}

	t.Run("connection ip only", func(t *testing.T) {
		out := markManagement(records, addrs, managementMatcher{connIP: net.ParseIP("10.10.10.10")})
		assert.Equal(t, map[string]types.InterfaceType{"eth1": types.Management, "eth2": types.PF, "eth3": types.PF}, typesOf(out))
	})

	t.Run("management network", func(t *testing.T) {
		_, network, err := net.ParseCIDR("10.0.0.0/8")
		require.NoError(t, err)
		out := markManagement(records, addrs, managementMatcher{connIP: net.ParseIP("10.10.10.10"), networks: []*net.IPNet{network}})
		assert.Equal(t, map[string]types.InterfaceType{"eth1": types.Management, "eth2": types.Management, "eth3": types.PF}, typesOf(out))
	})
}

func TestRemoveTunnels(t *testing.T) {
	records := []types.InterfaceRecord{named("eth1", types.PF), named("eth2", types.PF)}
	out := removeTunnels(records, ParseTunnelNames("ipip0:\neth2:\n"))
	require.Len(t, out, 1)
	assert.Equal(t, "eth1", out[0].Name)
}

func TestFinalize(t *testing.T) {
	records := []types.InterfaceRecord{
		named("eth0", types.PF),
		stub("0000:af:00.0", "8086:1533"),
		named("eth0", types.VirtualDevice),
		{Name: "eth0", Namespace: "blue", Type: types.PF, Installed: true},
	}
	out := finalize(records)
	require.Len(t, out, 2)
	assert.Equal(t, types.PF, out[0].Type)
	assert.Equal(t, "blue", out[1].Namespace)
}
