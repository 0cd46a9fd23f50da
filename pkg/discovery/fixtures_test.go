package discovery

const sysClassNet = `total 0
lrwxrwxrwx 1 root root    0 Dec 29 17:06 eth2 -> ../../devices/pci0000:17/0000:17:01.0/0000:18:00.0/net/eth2
lrwxrwxrwx 1 root root    0 Dec 29 17:06 br0 -> ../../devices/virtual/net/br0
-rw-r--r-- 1 root root 4096 Dec 29 17:06 bonding_masters
lrwxrwxrwx 1 root root    0 May 24 14:16 dummy0 -> ../../devices/virtual/net/dummy0
lrwxrwxrwx 1 root root    0 Dec 29 17:09 eth3 -> ../../devices/pci0000:5d/0000:5d:00.0/0000:5e:00.0/net/eth3
lrwxrwxrwx 1 root root    0 Dec 29 17:09 eth1 -> ../../devices/pci0000:5d/0000:5d:00.0/0000:5e:00.1/net/eth1
`

const sysClassNetVMBus = `total 0
lrwxrwxrwx 1 root root 0 Jul 19 16:13 enP41140s2 -> ../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/VMBUS:00/dc839ab6-a0b4-4485-ad3c-a0402d6ee7a4/pcia0b4:00/a0b4:00:02.0/net/enP41140s2
lrwxrwxrwx 1 root root 0 Jul 19 16:13 enP7350s3 -> ../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/VMBUS:00/225041dc-1cb6-4eeb-8e75-53d9d3dbdf12/pci1cb6:00/1cb6:00:02.0/net/enP7350s3
lrwxrwxrwx 1 root root 0 Jul 19 18:11 eth0 -> ../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/VMBUS:00/828b56fe-4d8f-4a4f-b820-8558c3ea8377/net/eth0
lrwxrwxrwx 1 root root 0 Jul 19 16:11 eth1 -> ../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/VMBUS:00/3e0a6632-83e3-4a2e-987d-bbc63c1d2781/net/eth1
lrwxrwxrwx 1 root root 0 Jul 19 16:11 eth2 -> ../../devices/LNXSYSTM:00/LNXSYBUS:00/ACPI0004:00/VMBUS:00/55576575-61c9-48ec-884d-da572bb5b98d/net/eth2
lrwxrwxrwx 1 root root 0 Jul 19 18:11 lo -> ../../devices/virtual/net/lo
`

const lspciTwoPorts = `Slot:	0000:18:00.0
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	Ethernet Controller 10G X550T [1563]
SVendor:	Intel Corporation [8086]
SDevice:	Device [35d4]
Rev:	01
NUMANode:	0
--
Slot:	0000:18:00.1
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	Ethernet Controller 10G X550T [1563]
SVendor:	Intel Corporation [8086]
SDevice:	Device [35d4]
Rev:	01
NUMANode:	0
`

const lspciMixed = `
Slot:	0000:05:00.0
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	I210 Gigabit Network Connection [1533]
SVendor:	Intel Corporation [8086]
SDevice:	Ethernet Server Adapter I210-T1 [0001]
Rev:	03
ProgIf:	00
NUMANode:	0
IOMMUGroup:	17


Slot:	18:00.0
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	Ethernet Controller E810-C for QSFP [1592]
Rev:	02


Slot:	1cb6:00:02.0
Class:	Ethernet controller [0200]
Vendor:	Mellanox Technologies [15b3]
Device:	MT27710 Family [ConnectX-4 Lx Virtual Function] [1016]
SVendor:	Mellanox Technologies [15b3]
SDevice:	Device [0190]
Rev:	80
NUMANode:	0
`

const ipAddrOutput = `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN group default qlen 1000
    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00
    inet 127.0.0.1/8 scope host lo
       valid_lft forever preferred_lft forever
2: ens801f0np0: <NO-CARRIER,BROADCAST,MULTICAST,UP> mtu 1500 qdisc mq state DOWN group default qlen 1000
    link/ether b4:96:91:aa:00:01 brd ff:ff:ff:ff:ff:ff
    altname enp94s0f0np0
4: eno1: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc mq state UP group default qlen 1000
    link/ether aa:bb:cc:dd:ee:ff brd ff:ff:ff:ff:ff:ff
    altname enp24s0f0
    inet 10.10.10.10/24 brd 10.10.10.255 scope global dynamic noprefixroute eno1
       valid_lft 19751sec preferred_lft 19751sec
    inet6 fe80::7307:c806:e8f4:942f/64 scope link noprefixroute
       valid_lft forever preferred_lft forever
14: ppp0: <POINTOPOINT,MULTICAST,NOARP,UP,LOWER_UP> mtu 1500 qdisc fq_codel state UNKNOWN group default
        qlen 3
    link/ppp
    inet 10.10.10.11 peer 192.168.108.2/32 scope global ppp0
       valid_lft forever preferred_lft forever
17: ens192.164@ens192: <BROADCAST,MULTICAST> mtu 1500 qdisc noop state DOWN group default qlen 1000
    link/ether 00:50:56:8a:63:cd brd ff:ff:ff:ff:ff:ff
`
