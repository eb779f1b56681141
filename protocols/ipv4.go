package protocols

import (
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

const (
	ipv4MinimumSize = 20

	ipv4OptionEnd = 0
	ipv4OptionNop = 1
)

// IP protocol numbers.
const (
	ProtocolICMP = 1
	ProtocolTCP  = 6
	ProtocolUDP  = 17
)

var ipv4Fields = []attr.Field{
	{ID: "version", Name: "Version", Cast: attr.Bits{Width: 4}},
	{ID: "headerLength", Name: "Internet Header Length", Cast: attr.Bits{Width: 4}},
	{ID: "tos", Name: "Type Of Service", Cast: attr.Uint8},
	{ID: "totalLength", Name: "Total Length", Cast: attr.Uint16},
	{ID: "id", Name: "Identification", Cast: attr.Uint16},
	{ID: "flags", Name: "Flags", Type: "@flags", Cast: attr.Bits{Width: 3}, Fields: []attr.Field{
		{ID: "reserved", Name: "Reserved", Cast: attr.Flag},
		{ID: "dontFragment", Name: "Don't Fragment", Cast: attr.Flag},
		{ID: "moreFragments", Name: "More Fragments", Cast: attr.Flag},
	}},
	{ID: "fragmentOffset", Name: "Fragment Offset", Cast: attr.Bits{Width: 13}},
	{ID: "ttl", Name: "TTL", Cast: attr.Uint8},
	{ID: "protocol", Name: "Protocol", Cast: attr.Uint8, Enum: []attr.Enum{
		{ID: "icmp", Name: "ICMP", Value: ProtocolICMP},
		{ID: "tcp", Name: "TCP", Value: ProtocolTCP},
		{ID: "udp", Name: "UDP", Value: ProtocolUDP},
	}},
	{ID: "checksum", Name: "Header Checksum", Cast: attr.Uint16},
	{ID: "src", Name: "Source", Cast: IPv4Addr, Type: "@ipv4:addr", Aliases: []string{"_.src"}},
	{ID: "dst", Name: "Destination", Cast: IPv4Addr, Type: "@ipv4:addr", Aliases: []string{"_.dst"}},
}

// ipv4OptionFields is anchored at each option found after the fixed
// header. The length byte keeps its distance from the type byte.
var ipv4OptionFields = []attr.Field{
	{ID: "type", Name: "Option Type", Cast: attr.Uint8},
	{ID: "length", Name: "Option Length", Cast: attr.Uint8},
}

// IPv4 is the IPv4 dissector.
type IPv4 struct {
	typ     *layer.Type
	option  []*attr.Class
	ethType token.Token
	version token.Token
	ihl     token.Token
	total   token.Token
	more    token.Token
	offset  token.Token
	frag    token.Token
}

// NewIPv4 declares the ipv4 layer type and its option group.
func NewIPv4(tokens token.Interner) *IPv4 {
	return &IPv4{
		typ:     layer.NewType(tokens, "ipv4", ipv4Fields),
		option:  attr.Flatten(attr.Layout(tokens, "ipv4.option", 0, ipv4OptionFields)),
		ethType: tokens.Literal("eth.type"),
		version: tokens.Literal("ipv4.version"),
		ihl:     tokens.Literal("ipv4.headerLength"),
		total:   tokens.Literal("ipv4.totalLength"),
		more:    tokens.Literal("ipv4.flags.moreFragments"),
		offset:  tokens.Literal("ipv4.fragmentOffset"),
		frag:    tokens.Literal("fragmented"),
	}
}

func (d *IPv4) Name() string { return "ipv4" }

func (d *IPv4) Hints() []string { return []string{"eth"} }

func (d *IPv4) Type() *layer.Type { return d.typ }

// OptionGroup returns the classes anchored at each option.
func (d *IPv4) OptionGroup() []*attr.Class { return d.option }

func (d *IPv4) NewWorker(*dissector.Context) (dissector.Worker, error) {
	return d, nil
}

func (d *IPv4) Analyze(_ *dissector.Context, s *layer.Stack) error {
	if v, ok := uintAttr(s.Layer(), d.ethType); !ok || v != EtherTypeIPv4 {
		return nil
	}

	p := s.Payload()
	if len(p) < ipv4MinimumSize {
		return errors.ShortBuffer("ipv4", ipv4MinimumSize, len(p))
	}
	child := d.typ.New(p)

	if v, _ := uintAttr(child, d.version); v != 4 {
		return errors.InvalidEncoding("ipv4.version", "@uint4", "version is not 4")
	}
	ihl, _ := uintAttr(child, d.ihl)
	headerLen := int(ihl) * 4
	total, _ := uintAttr(child, d.total)
	switch {
	case headerLen < ipv4MinimumSize:
		return errors.InvalidEncoding("ipv4.headerLength", "@uint4", "header shorter than 20 bytes")
	case headerLen > len(p):
		return errors.ShortBuffer("ipv4", headerLen, len(p))
	case int(total) < headerLen || int(total) > len(p):
		return errors.InvalidEncoding("ipv4.totalLength", "@uint16", "total length outside the datagram")
	}

	if err := d.addOptions(child, p[:headerLen]); err != nil {
		return err
	}

	more, _ := child.Attr(d.more).Value()
	frag, _ := uintAttr(child, d.offset)
	if b, _ := more.Bool(); b || frag != 0 {
		child.AddTag(d.frag)
	}

	child.SetPayload(p[headerLen:total])
	return s.AddChild(layer.Own(child))
}

// addOptions anchors the option group at every option between the fixed
// header and headerLen.
func (d *IPv4) addOptions(l *layer.Layer, header []byte) error {
	for off := ipv4MinimumSize; off < len(header); {
		switch header[off] {
		case ipv4OptionEnd:
			l.AddAttr(d.option[:1], attr.Range{Start: off, End: off + 1})
			return nil
		case ipv4OptionNop:
			l.AddAttr(d.option[:1], attr.Range{Start: off, End: off + 1})
			off++
			continue
		}
		if off+1 >= len(header) {
			return errors.ShortBuffer("ipv4.option.length", off+2, len(header))
		}
		n := int(header[off+1])
		if n < 2 || off+n > len(header) {
			return errors.InvalidEncoding("ipv4.option.length", "@uint8", "option overruns the header")
		}
		l.AddAttr(d.option, attr.Range{Start: off, End: off + 1})
		off += n
	}
	return nil
}

func uintAttr(l *layer.Layer, id token.Token) (uint64, bool) {
	a := l.Attr(id)
	if a == nil {
		return 0, false
	}
	v, err := a.Value()
	if err != nil {
		return 0, false
	}
	return v.AsUint64()
}
