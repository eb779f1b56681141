// Package protocols provides dissectors for Ethernet, IPv4 and UDP.
//
// Each protocol is declared as a record of attr.Field values and turned
// into a layer.Type. The dissectors chain through layer hints:
//
//	[eth] -> eth -> ipv4 -> udp
//
// Register adds all of them to a registry. The udp dissector reads its
// port filter from the "udp.ports" option.
package protocols
