package protocols

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

type packet struct {
	etherType uint16
	protocol  uint8
	flagsFO   uint16
	options   []byte
	srcPort   uint16
	dstPort   uint16
	payload   []byte
}

func (p packet) bytes() []byte {
	udp := make([]byte, udpMinimumSize, udpMinimumSize+len(p.payload))
	binary.BigEndian.PutUint16(udp[0:], p.srcPort)
	binary.BigEndian.PutUint16(udp[2:], p.dstPort)
	binary.BigEndian.PutUint16(udp[4:], uint16(udpMinimumSize+len(p.payload)))
	udp = append(udp, p.payload...)

	headerLen := ipv4MinimumSize + len(p.options)
	ip := make([]byte, ipv4MinimumSize, headerLen+len(udp))
	ip[0] = 0x40 | byte(headerLen/4)
	binary.BigEndian.PutUint16(ip[2:], uint16(headerLen+len(udp)))
	binary.BigEndian.PutUint16(ip[4:], 0x1234)
	binary.BigEndian.PutUint16(ip[6:], p.flagsFO)
	ip[8] = 64
	ip[9] = p.protocol
	copy(ip[12:], []byte{10, 0, 0, 1})
	copy(ip[16:], []byte{10, 0, 0, 2})
	ip = append(ip, p.options...)
	ip = append(ip, udp...)

	eth := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb,
		0, 0,
	}
	binary.BigEndian.PutUint16(eth[12:], p.etherType)
	return append(eth, ip...)
}

func defaultPacket() packet {
	return packet{
		etherType: EtherTypeIPv4,
		protocol:  ProtocolUDP,
		flagsFO:   0x4000,
		srcPort:   5353,
		dstPort:   53,
		payload:   []byte("hello"),
	}
}

func newEngine(t *testing.T, options map[string]any) (*dissector.Engine, *token.Table) {
	t.Helper()
	tokens := token.NewTable()
	reg := dissector.NewRegistry(tokens)
	if _, err := Register(reg, tokens); err != nil {
		t.Fatalf("Register: %v", err)
	}
	cfg := dissector.Config{}
	if options != nil {
		v, ok := variant.From(options)
		if !ok {
			t.Fatalf("options not convertible")
		}
		cfg.Options = v
	}
	return dissector.New(tokens, reg, cfg), tokens
}

func dissect(t *testing.T, e *dissector.Engine, tokens *token.Table, data []byte) *dissector.Frame {
	t.Helper()
	f, err := e.Dissect(context.Background(), 0, tokens.Literal(EthLink), data)
	if err != nil {
		t.Fatalf("Dissect: %v", err)
	}
	return f
}

func value(t *testing.T, l *layer.Layer, tokens *token.Table, id string) variant.Variant {
	t.Helper()
	a := l.Attr(tokens.Literal(id))
	if a == nil {
		t.Fatalf("%s: attribute not found in %s", id, tokens.String(l.ID()))
	}
	v, err := a.Value()
	if err != nil {
		t.Fatalf("%s: %v", id, err)
	}
	return v
}

func TestDissect_EthIPv4UDP(t *testing.T) {
	e, tokens := newEngine(t, nil)
	f := dissect(t, e, tokens, defaultPacket().bytes())

	if len(f.Errors) != 0 {
		t.Fatalf("errors = %v", f.Errors)
	}
	layers := f.Layers()
	want := []string{EthLink, "eth", "ipv4", "udp"}
	if len(layers) != len(want) {
		t.Fatalf("got %d layers, want %d", len(layers), len(want))
	}
	for i, l := range layers {
		if got := tokens.String(l.ID()); got != want[i] {
			t.Errorf("layer %d = %q, want %q", i, got, want[i])
		}
	}

	eth := layers[1]
	if s, _ := value(t, eth, tokens, "eth.src").Str(); s != "66:77:88:99:aa:bb" {
		t.Errorf("eth.src = %q", s)
	}
	if n, _ := value(t, eth, tokens, "eth.type").AsUint64(); n != EtherTypeIPv4 {
		t.Errorf("eth.type = %#x", n)
	}

	ip := layers[2]
	tests := []struct {
		id   string
		want uint64
	}{
		{"ipv4.version", 4},
		{"ipv4.headerLength", 5},
		{"ipv4.totalLength", 33},
		{"ipv4.id", 0x1234},
		{"ipv4.flags", 0b010},
		{"ipv4.fragmentOffset", 0},
		{"ipv4.ttl", 64},
		{"ipv4.protocol", ProtocolUDP},
	}
	for _, tt := range tests {
		if got, ok := value(t, ip, tokens, tt.id).AsUint64(); !ok || got != tt.want {
			t.Errorf("%s = %d, want %d", tt.id, got, tt.want)
		}
	}
	if b, _ := value(t, ip, tokens, "ipv4.flags.dontFragment").Bool(); !b {
		t.Error("ipv4.flags.dontFragment should be set")
	}
	if b, _ := value(t, ip, tokens, "ipv4.flags.moreFragments").Bool(); b {
		t.Error("ipv4.flags.moreFragments should be clear")
	}
	enums := []struct {
		l    *layer.Layer
		id   string
		want bool
	}{
		{eth, "eth.type.ipv4", true},
		{eth, "eth.type.arp", false},
		{eth, "eth.type.ipv6", false},
		{ip, "ipv4.protocol.udp", true},
		{ip, "ipv4.protocol.tcp", false},
	}
	for _, tt := range enums {
		if b, ok := value(t, tt.l, tokens, tt.id).Bool(); !ok || b != tt.want {
			t.Errorf("%s = %v, want %v", tt.id, b, tt.want)
		}
	}
	if typ := eth.Attr(tokens.Literal("eth.type")).Type(); typ != tokens.Literal(attr.EnumType) {
		t.Errorf("eth.type type = %q", tokens.String(typ))
	}
	if s, _ := value(t, ip, tokens, "ipv4.dst").Str(); s != "10.0.0.2" {
		t.Errorf("ipv4.dst = %q", s)
	}
	if s, _ := value(t, ip, tokens, "_.src").Str(); s != "10.0.0.1" {
		t.Errorf("_.src alias = %q", s)
	}
	if len(ip.Tags()) != 0 {
		t.Errorf("unfragmented datagram tagged %v", ip.Tags())
	}

	udp := f.Leaf()
	if n, _ := value(t, udp, tokens, "udp.dst").AsUint64(); n != 53 {
		t.Errorf("udp.dst = %d", n)
	}
	if n, _ := value(t, udp, tokens, "_.src").AsUint64(); n != 5353 {
		t.Errorf("_.src alias = %d", n)
	}
	if got := string(udp.Payload()); got != "hello" {
		t.Errorf("udp payload = %q", got)
	}
}

func TestDissect_IPv4Options(t *testing.T) {
	e, tokens := newEngine(t, nil)
	p := defaultPacket()
	// NOP, router alert (type 148, length 4), end of list, padding.
	p.options = []byte{0x01, 0x94, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00}
	f := dissect(t, e, tokens, p.bytes())

	if len(f.Errors) != 0 {
		t.Fatalf("errors = %v", f.Errors)
	}
	ip := f.Layer(tokens.Literal("ipv4"))
	if ip == nil {
		t.Fatal("ipv4 layer missing")
	}
	if got := ip.AttrsLen(); got != 4 {
		t.Fatalf("dynamic attrs = %d, want 4", got)
	}

	var types, lengths []uint64
	for _, a := range ip.Attrs() {
		v, err := a.Value()
		if err != nil {
			t.Fatalf("%s: %v", a.Label(), err)
		}
		n, _ := v.AsUint64()
		switch tokens.String(a.ID()) {
		case "ipv4.option.type":
			types = append(types, n)
			if a.ByteRange().Len() != 1 {
				t.Errorf("option type range %v", a.ByteRange())
			}
		case "ipv4.option.length":
			lengths = append(lengths, n)
			if a.ByteRange().Start != 22 {
				t.Errorf("option length at byte %d, want 22", a.ByteRange().Start)
			}
		}
	}
	if len(types) != 3 || types[0] != ipv4OptionNop || types[1] != 0x94 || types[2] != ipv4OptionEnd {
		t.Errorf("option types = %v", types)
	}
	if len(lengths) != 1 || lengths[0] != 4 {
		t.Errorf("option lengths = %v", lengths)
	}
	if got := string(f.Leaf().Payload()); got != "hello" {
		t.Errorf("udp payload = %q", got)
	}
}

func TestDissect_BadOptionLength(t *testing.T) {
	e, tokens := newEngine(t, nil)
	p := defaultPacket()
	p.options = []byte{0x94, 0x09, 0x00, 0x00}
	f := dissect(t, e, tokens, p.bytes())

	if len(f.Errors) != 1 || f.Errors[0].Dissector != "ipv4" {
		t.Fatalf("errors = %v", f.Errors)
	}
	if f.Layer(tokens.Literal("ipv4")) != nil {
		t.Error("ipv4 layer added despite bad options")
	}
}

func TestDissect_Fragmented(t *testing.T) {
	e, tokens := newEngine(t, nil)
	p := defaultPacket()
	p.flagsFO = 0x2000
	f := dissect(t, e, tokens, p.bytes())

	ip := f.Layer(tokens.Literal("ipv4"))
	if ip == nil {
		t.Fatal("ipv4 layer missing")
	}
	tags := ip.Tags()
	if len(tags) != 1 || tokens.String(tags[0]) != "fragmented" {
		t.Errorf("tags = %v", tags)
	}
}

func TestDissect_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*packet)
		want   string
	}{
		{"arp", func(p *packet) { p.etherType = EtherTypeARP }, "eth"},
		{"tcp", func(p *packet) { p.protocol = ProtocolTCP }, "ipv4"},
		{"udp", func(*packet) {}, "udp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tokens := newEngine(t, nil)
			p := defaultPacket()
			tt.modify(&p)
			f := dissect(t, e, tokens, p.bytes())
			if len(f.Errors) != 0 {
				t.Fatalf("errors = %v", f.Errors)
			}
			if got := tokens.String(f.Leaf().ID()); got != tt.want {
				t.Errorf("leaf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDissect_Truncated(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		dissector string
		kind      errors.Kind
	}{
		{"eth", 10, "eth", errors.KindShortBuffer},
		{"ipv4", ethHeaderSize + 12, "ipv4", errors.KindShortBuffer},
		{"ipv4 total length", ethHeaderSize + ipv4MinimumSize + 4, "ipv4", errors.KindInvalidEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tokens := newEngine(t, nil)
			f := dissect(t, e, tokens, defaultPacket().bytes()[:tt.size])
			if len(f.Errors) != 1 {
				t.Fatalf("errors = %v", f.Errors)
			}
			got := f.Errors[0]
			if got.Dissector != tt.dissector {
				t.Errorf("dissector = %q, want %q", got.Dissector, tt.dissector)
			}
			var de *errors.Error
			if !errors.As(got, &de) || de.Kind != tt.kind {
				t.Errorf("err = %v, want kind %s", got, tt.kind)
			}
		})
	}
}

func TestUDP_PortFilter(t *testing.T) {
	tests := []struct {
		name  string
		ports []any
		want  string
	}{
		{"no filter", nil, "udp"},
		{"dst match", []any{53}, "udp"},
		{"src match", []any{80, 5353}, "udp"},
		{"no match", []any{80}, "ipv4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts map[string]any
			if tt.ports != nil {
				opts = map[string]any{"udp": map[string]any{"ports": tt.ports}}
			}
			e, tokens := newEngine(t, opts)
			f := dissect(t, e, tokens, defaultPacket().bytes())
			if got := tokens.String(f.Leaf().ID()); got != tt.want {
				t.Errorf("leaf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUDP_InvalidPorts(t *testing.T) {
	tests := []struct {
		name string
		opt  any
	}{
		{"not array", "53"},
		{"negative", []any{-1}},
		{"too large", []any{70000}},
		{"string", []any{"dns"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tokens := newEngine(t, map[string]any{"udp": map[string]any{"ports": tt.opt}})
			if _, err := e.Dissect(context.Background(), 0, tokens.Literal(EthLink), nil); err == nil {
				t.Error("expected worker creation to fail")
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	tokens := token.NewTable()
	reg := dissector.NewRegistry(tokens)
	s, err := Register(reg, tokens)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(s.Types()) != 3 || len(s.Groups()) != 1 {
		t.Errorf("types = %d, groups = %d", len(s.Types()), len(s.Groups()))
	}
	if got := reg.Names(); len(got) != 3 {
		t.Errorf("names = %v", got)
	}
	if _, err := Register(reg, tokens); err == nil {
		t.Error("second Register should fail")
	}
}

func TestIPv4_HeaderSize(t *testing.T) {
	tokens := token.NewTable()
	d := NewIPv4(tokens)
	if got := d.Type().ByteSize(); got != ipv4MinimumSize {
		t.Errorf("ipv4 size = %d, want %d", got, ipv4MinimumSize)
	}
	if got := NewUDP(tokens).Type().ByteSize(); got != udpMinimumSize {
		t.Errorf("udp size = %d, want %d", got, udpMinimumSize)
	}
	if got := NewEth(tokens).Type().ByteSize(); got != ethHeaderSize {
		t.Errorf("eth size = %d, want %d", got, ethHeaderSize)
	}
}
