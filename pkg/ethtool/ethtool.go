// Package ethtool reads driver information for network links, either by
// scraping `ethtool -i` through a command runner or through the ethtool
// ioctl on the local host.
package ethtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/safchain/ethtool"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/connection"
)

// DriverInfo is the subset of `ethtool -i` output the discovery engine uses.
type DriverInfo struct {
	Driver          string `json:"driver"`
	Version         string `json:"version"`
	FirmwareVersion string `json:"firmware_version"`
	BusInfo         string `json:"bus_info"`
}

// Prober returns driver information for a link. A nil result with a nil
// error means the link reported nothing.
type Prober interface {
	DriverInfo(ctx context.Context, namespace, ifname string) (*DriverInfo, error)
}

// ParseDriverInfo parses the "key: value" lines of `ethtool -i`.
func ParseDriverInfo(output string) DriverInfo {
	var info DriverInfo
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "driver":
			info.Driver = value
		case "version":
			info.Version = value
		case "firmware-version":
			info.FirmwareVersion = value
		case "bus-info":
			info.BusInfo = value
		}
	}
	return info
}

// CommandProber runs `ethtool -i` through a Runner.
type CommandProber struct {
	Runner connection.Runner
}

func (p *CommandProber) DriverInfo(ctx context.Context, namespace, ifname string) (*DriverInfo, error) {
	cmd := connection.InNamespace(namespace, "ethtool -i "+ifname)
	res, err := p.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		pkg.WithFields(map[string]interface{}{
			"interface": ifname,
			"stderr":    res.Stderr,
		}).Debug("no driver information")
		return nil, nil
	}
	info := ParseDriverInfo(res.Stdout)
	return &info, nil
}

// LocalProber queries the kernel directly for links in the current network
// namespace and falls back to Fallback for any other namespace.
type LocalProber struct {
	handle   *ethtool.Ethtool
	Fallback Prober
}

// NewLocalProber opens an ethtool handle. Call Close when done.
func NewLocalProber(fallback Prober) (*LocalProber, error) {
	handle, err := ethtool.NewEthtool()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ethtool: %w", err)
	}
	return &LocalProber{handle: handle, Fallback: fallback}, nil
}

func (p *LocalProber) DriverInfo(ctx context.Context, namespace, ifname string) (*DriverInfo, error) {
	if namespace != "" {
		if p.Fallback == nil {
			return nil, nil
		}
		return p.Fallback.DriverInfo(ctx, namespace, ifname)
	}

	drv, err := p.handle.DriverInfo(ifname)
	if err != nil {
		pkg.WithError(err).WithField("interface", ifname).Debug("ethtool driver info unavailable")
		return nil, nil
	}
	return &DriverInfo{
		Driver:          drv.Driver,
		Version:         drv.Version,
		FirmwareVersion: drv.FwVersion,
		BusInfo:         drv.BusInfo,
	}, nil
}

func (p *LocalProber) Close() {
	p.handle.Close()
}
