package discovery

import (
	"context"

	"example.com/netadapter/pkg/types"
)

// PCIInventory returns the Ethernet-class PCI functions reported by lspci.
func (d *Discoverer) PCIInventory(ctx context.Context, namespace string) ([]types.InterfaceRecord, error) {
	return d.pciInventory(ctx, namespace)
}

// AddressesByDevice returns the addresses of inventory entries matching query.
func AddressesByDevice(inventory []types.InterfaceRecord, query types.PCIDevice) []types.PCIAddress {
	addrs := []types.PCIAddress{}
	for _, rec := range inventory {
		if rec.PCIDevice == nil || rec.PCIAddress == nil {
			continue
		}
		if rec.PCIDevice.Matches(query) {
			addrs = append(addrs, *rec.PCIAddress)
		}
	}
	return addrs
}

// DeviceByAddress returns the device of the first inventory entry at addr.
func DeviceByAddress(inventory []types.InterfaceRecord, addr types.PCIAddress) (types.PCIDevice, error) {
	for _, rec := range inventory {
		if rec.HasAddress(addr) && rec.PCIDevice != nil {
			return *rec.PCIDevice, nil
		}
	}
	return types.PCIDevice{}, &types.NotFoundError{What: "PCI device", Key: addr.String()}
}

// PCIAddressesByDevice reads the inventory and returns the addresses of every
// function whose device matches query. Sub IDs are compared only when the
// query carries them.
func (d *Discoverer) PCIAddressesByDevice(ctx context.Context, namespace string, query types.PCIDevice) ([]types.PCIAddress, error) {
	inventory, err := d.pciInventory(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return AddressesByDevice(inventory, query), nil
}

// PCIDeviceByAddress reads the inventory and returns the device at addr. The
// first match wins; no match is a *types.NotFoundError.
func (d *Discoverer) PCIDeviceByAddress(ctx context.Context, namespace string, addr types.PCIAddress) (types.PCIDevice, error) {
	inventory, err := d.pciInventory(ctx, namespace)
	if err != nil {
		return types.PCIDevice{}, err
	}
	return DeviceByAddress(inventory, addr)
}
