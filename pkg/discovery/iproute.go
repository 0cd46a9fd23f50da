package discovery

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"example.com/netadapter/pkg/types"
)

var (
	linkHeader  = regexp.MustCompile(`^(\d+):\s+([^\s:@]+)(?:@([^\s:]+))?:`)
	vlanDetail  = regexp.MustCompile(`vlan protocol \S+ id (\d+)`)
	physfnPath  = regexp.MustCompile(`^/sys/class/net/([^/]+)/device/physfn$`)
	namespaceID = regexp.MustCompile(`\s*\(id:\s*\d+\)\s*$`)
)

// linkBlock is one "N: name[@peer]: ..." section of `ip a` style output.
type linkBlock struct {
	name  string
	peer  string
	lines []string
}

func splitLinkBlocks(output string) []linkBlock {
	var blocks []linkBlock
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := linkHeader.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, linkBlock{name: m[2], peer: m[3]})
			continue
		}
		if len(blocks) > 0 {
			blocks[len(blocks)-1].lines = append(blocks[len(blocks)-1].lines, line)
		}
	}
	return blocks
}

// ParseLinkMACs maps link names to their ethernet address. Links without a
// "link/ether" line (loopback, ppp) are absent from the result.
func ParseLinkMACs(output string) map[string]net.HardwareAddr {
	macs := make(map[string]net.HardwareAddr)
	for _, block := range splitLinkBlocks(output) {
		for _, line := range block.lines {
			fields := strings.Fields(line)
			if len(fields) < 2 || fields[0] != "link/ether" {
				continue
			}
			mac, err := net.ParseMAC(fields[1])
			if err != nil {
				continue
			}
			macs[block.name] = mac
			break
		}
	}
	return macs
}

// ParseInetAddresses maps link names to their IPv4 addresses. Lines outside
// of a link block are attributed to the label at the end of the line.
func ParseInetAddresses(output string) map[string][]net.IP {
	addrs := make(map[string][]net.IP)
	var current string
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if m := linkHeader.FindStringSubmatch(line); m != nil {
			current = m[2]
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "inet" {
			continue
		}
		ipText, _, _ := strings.Cut(fields[1], "/")
		ip := net.ParseIP(ipText)
		if ip == nil {
			continue
		}
		name := current
		if name == "" {
			name = fields[len(fields)-1]
		}
		addrs[name] = append(addrs[name], ip)
	}
	return addrs
}

// ParseVlanDetail extracts the VLAN id and parent link from `ip -d link show`.
func ParseVlanDetail(output string) (types.VlanInfo, bool) {
	m := vlanDetail.FindStringSubmatch(output)
	if m == nil {
		return types.VlanInfo{}, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return types.VlanInfo{}, false
	}
	info := types.VlanInfo{ID: id}
	if blocks := splitLinkBlocks(output); len(blocks) > 0 {
		info.Parent = blocks[0].peer
	}
	return info, true
}

// ParseVlanNames parses the listing of /proc/net/vlan, dropping the config file.
func ParseVlanNames(output string) []string {
	var names []string
	for _, f := range strings.Fields(output) {
		if f == "config" {
			continue
		}
		names = append(names, f)
	}
	return names
}

// ParsePhysfnLinks returns the link names that have a physfn symlink.
func ParsePhysfnLinks(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		if m := physfnPath.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// ParseTunnelNames returns the tunnel names of `ip tunnel show`.
func ParseTunnelNames(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		name, _, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// ParseNamespaces parses `ip netns list`, stripping the "(id: N)" suffix.
// Order and duplicates are kept.
func ParseNamespaces(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, namespaceID.ReplaceAllString(line, ""))
	}
	return names
}
