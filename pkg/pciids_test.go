package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg/types"
)

const samplePCIIDs = `#
#	List of PCI ID's
#
8086  Intel Corporation
	1563  Ethernet Controller 10G X550T
		8086 35d4  Ethernet Converged Network Adapter X550-T2
	1533  I210 Gigabit Network Connection
15b3  Mellanox Technologies
	101e  ConnectX Family mlx5Gen Virtual Function
C 02  Network controller
	00  Ethernet controller
`

func TestParseVendorDatabase(t *testing.T) {
	db, err := ParseVendorDatabase(strings.NewReader(samplePCIIDs))
	require.NoError(t, err)

	assert.Len(t, db.Vendors, 2)
	assert.Equal(t, "Intel Corporation", db.VendorName("8086"))
	assert.Equal(t, "I210 Gigabit Network Connection", db.DeviceName("8086", "1533"))
	assert.Equal(t, "ConnectX Family mlx5Gen Virtual Function", db.DeviceName("15b3", "101e"))
	assert.Equal(t, "", db.DeviceName("15b3", "0000"))
}

func TestDescribe(t *testing.T) {
	db, err := ParseVendorDatabase(strings.NewReader(samplePCIIDs))
	require.NoError(t, err)

	tests := []struct {
		device   string
		expected string
	}{
		{"8086:1563:8086:35d4", "Intel Corporation Ethernet Controller 10G X550T (Ethernet Converged Network Adapter X550-T2)"},
		{"8086:1563:8086:0001", "Intel Corporation Ethernet Controller 10G X550T"},
		{"8086:1533", "Intel Corporation I210 Gigabit Network Connection"},
		{"8086:ffff", "Intel Corporation [8086:ffff]"},
		{"abcd:0001", "abcd:0001"},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			assert.Equal(t, tt.expected, db.Describe(types.MustParsePCIDevice(tt.device)))
		})
	}
}

func TestMinimalVendorDatabase(t *testing.T) {
	db := MinimalVendorDatabase()
	assert.Equal(t, "Mellanox Technologies", db.VendorName("15b3"))
	assert.Equal(t, "Intel Corporation [8086:1563]", db.Describe(types.MustParsePCIDevice("8086:1563")))
}
