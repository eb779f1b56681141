package protocols

import (
	"net"
	"net/netip"

	"github.com/wippyai/dissect-runtime/attr"
)

func fixedBytes(typ string, n int) attr.Fixed[[]byte] {
	return attr.NewFixed(typ, n, func(b []byte) []byte { return b })
}

// MAC decodes a 6-byte hardware address as "aa:bb:cc:dd:ee:ff".
var MAC = attr.Map(fixedBytes("@eth:mac", 6), func(b []byte) string {
	return net.HardwareAddr(b).String()
})

// IPv4Addr decodes a 4-byte address in dotted form.
var IPv4Addr = attr.Map(fixedBytes("@ipv4:addr", 4), func(b []byte) string {
	return netip.AddrFrom4([4]byte(b)).String()
})
