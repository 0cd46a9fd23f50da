package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/netadapter/pkg/connection"
	"example.com/netadapter/pkg/discovery"
	"example.com/netadapter/pkg/feature/bonding"
	"example.com/netadapter/pkg/types"
)

// Config is the netadapter configuration file
type Config struct {
	LogLevel  string           `yaml:"log_level"`
	LogFormat string           `yaml:"log_format"`
	Target    Target           `yaml:"target"`
	Discovery Discovery        `yaml:"discovery"`
	Watch     Watch            `yaml:"watch"`
	Policies  []DevicePolicy   `yaml:"device_policies"`
	Bonds     []bonding.Config `yaml:"bonds"`
}

// Target selects the host commands run on. An empty host means the local machine.
type Target struct {
	Host                  string        `yaml:"host"`
	Port                  int           `yaml:"port"`
	User                  string        `yaml:"user"`
	Password              string        `yaml:"password"`
	IdentityFile          string        `yaml:"identity_file"`
	KnownHostsFile        string        `yaml:"known_hosts_file"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key"`
	Timeout               time.Duration `yaml:"timeout"`
}

// Discovery tunes the classification pipeline
type Discovery struct {
	Namespaces         []string `yaml:"namespaces"`
	AllNamespaces      bool     `yaml:"all_namespaces"`
	BTSPrefixes        []string `yaml:"bts_prefixes"`
	ManagementIP       string   `yaml:"management_ip"`
	ManagementNetworks []string `yaml:"management_networks"`
	LocalEthtool       bool     `yaml:"local_ethtool"`
}

// Watch configures the sysfs watcher and its metrics endpoint
type Watch struct {
	Path        string        `yaml:"path"`
	Debounce    time.Duration `yaml:"debounce"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// DevicePolicy describes the SR-IOV setup for every PF of one device model
type DevicePolicy struct {
	VendorID    string `yaml:"vendor_id"`
	DeviceID    string `yaml:"device_id"`
	NumVFs      int    `yaml:"num_vfs"`
	VFRange     string `yaml:"vf_range"`
	Trust       *bool  `yaml:"trust"`
	SpoofCheck  *bool  `yaml:"spoofchk"`
	LinkState   string `yaml:"link_state"`
	Description string `yaml:"description"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Target: Target{
			Port:    22,
			Timeout: 30 * time.Second,
		},
		Discovery: Discovery{
			BTSPrefixes:  append([]string(nil), discovery.DefaultBTSPrefixes...),
			LocalEthtool: true,
		},
		Watch: Watch{
			Path:        "/sys/class/net",
			Debounce:    2 * time.Second,
			MetricsAddr: ":9108",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the commands would reject later
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	if c.Target.Host != "" && c.Target.User == "" {
		return fmt.Errorf("target: user is required for host %s", c.Target.Host)
	}
	if c.Target.Port < 0 || c.Target.Port > 65535 {
		return fmt.Errorf("target: invalid port %d", c.Target.Port)
	}
	if c.Target.Timeout < 0 {
		return fmt.Errorf("target: timeout must not be negative")
	}

	if c.Discovery.ManagementIP != "" && net.ParseIP(c.Discovery.ManagementIP) == nil {
		return fmt.Errorf("discovery: invalid management_ip %s", c.Discovery.ManagementIP)
	}
	for _, cidr := range c.Discovery.ManagementNetworks {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("discovery: invalid management network %s: %w", cidr, err)
		}
	}

	for i, policy := range c.Policies {
		if _, err := policy.Device(); err != nil {
			return fmt.Errorf("device policy %d: %w", i, err)
		}
		if policy.NumVFs < 0 {
			return fmt.Errorf("device policy %d: num_vfs must not be negative", i)
		}
		if policy.VFRange != "" {
			if _, err := ParseVFRange(policy.VFRange); err != nil {
				return fmt.Errorf("device policy %d: %w", i, err)
			}
		}
	}

	for i, bond := range c.Bonds {
		if bond.Name == "" {
			return fmt.Errorf("bond %d: name is required", i)
		}
		if len(bond.Children) == 0 {
			return fmt.Errorf("bond %s: at least one child is required", bond.Name)
		}
	}
	return nil
}

// SSHConfig converts the target into runner settings
func (t Target) SSHConfig() connection.SSHConfig {
	return connection.SSHConfig{
		Host:                  t.Host,
		Port:                  t.Port,
		User:                  t.User,
		Password:              t.Password,
		IdentityFile:          t.IdentityFile,
		KnownHostsFile:        t.KnownHostsFile,
		InsecureIgnoreHostKey: t.InsecureIgnoreHostKey,
		Timeout:               t.Timeout,
	}
}

// Options converts the discovery section into discovery options
func (d Discovery) Options() discovery.Options {
	return discovery.Options{
		BTSPrefixes:        d.BTSPrefixes,
		ManagementIP:       d.ManagementIP,
		ManagementNetworks: d.ManagementNetworks,
	}
}

// Device returns the PCI device the policy applies to
func (p DevicePolicy) Device() (types.PCIDevice, error) {
	if p.VendorID == "" || p.DeviceID == "" {
		return types.PCIDevice{}, fmt.Errorf("vendor_id and device_id are required")
	}
	return types.ParsePCIDevice(strings.TrimPrefix(p.VendorID, "0x") + ":" + strings.TrimPrefix(p.DeviceID, "0x"))
}

// GetDevicePolicy finds the policy for a device
func (c *Config) GetDevicePolicy(dev types.PCIDevice) *DevicePolicy {
	for i := range c.Policies {
		want, err := c.Policies[i].Device()
		if err == nil && dev.Matches(want) {
			return &c.Policies[i]
		}
	}
	return nil
}

// ParseVFRange parses a VF range string like "0-3,5,7-9"
func ParseVFRange(rangeStr string) ([]int, error) {
	var indices []int
	parts := strings.Split(rangeStr, ",")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			// Range like "0-3"
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start index: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end index: %s", rangeParts[1])
			}
			if end < start {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			for i := start; i <= end; i++ {
				indices = append(indices, i)
			}
		} else {
			index, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid index: %s", part)
			}
			indices = append(indices, index)
		}
	}

	return indices, nil
}
