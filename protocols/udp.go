package protocols

import (
	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

const udpMinimumSize = 8

// UDPPortsOption lists the ports the udp dissector accepts. An empty or
// missing list accepts every datagram.
const UDPPortsOption = "udp.ports"

var udpFields = []attr.Field{
	{ID: "src", Name: "Source Port", Cast: attr.Uint16, Aliases: []string{"_.src"}},
	{ID: "dst", Name: "Destination Port", Cast: attr.Uint16, Aliases: []string{"_.dst"}},
	{ID: "length", Name: "Length", Cast: attr.Uint16},
	{ID: "checksum", Name: "Checksum", Cast: attr.Uint16},
}

// UDP is the UDP dissector.
type UDP struct {
	typ      *layer.Type
	protocol token.Token
	src      token.Token
	dst      token.Token
	length   token.Token
}

// NewUDP declares the udp layer type.
func NewUDP(tokens token.Interner) *UDP {
	return &UDP{
		typ:      layer.NewType(tokens, "udp", udpFields),
		protocol: tokens.Literal("ipv4.protocol"),
		src:      tokens.Literal("udp.src"),
		dst:      tokens.Literal("udp.dst"),
		length:   tokens.Literal("udp.length"),
	}
}

func (d *UDP) Name() string { return "udp" }

func (d *UDP) Hints() []string { return []string{"ipv4"} }

func (d *UDP) Type() *layer.Type { return d.typ }

// NewWorker reads the port filter from the context options.
func (d *UDP) NewWorker(ctx *dissector.Context) (dissector.Worker, error) {
	w := &udpWorker{UDP: d, ports: make(map[uint64]struct{})}
	opt, ok := ctx.Option(UDPPortsOption)
	if !ok {
		return w, nil
	}
	ports, ok := opt.Array()
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseDissect, UDPPortsOption+" must be an array of ports")
	}
	for _, p := range ports {
		n, ok := p.AsUint64()
		if !ok || n > 0xffff {
			return nil, errors.New(errors.PhaseDissect, errors.KindInvalidInput).
				Path(UDPPortsOption).
				Value(p.Interface()).
				Detail("invalid port").
				Build()
		}
		w.ports[n] = struct{}{}
	}
	ctx.Logger().Debug("udp port filter", zap.Int("ports", len(w.ports)))
	return w, nil
}

type udpWorker struct {
	*UDP
	ports map[uint64]struct{}
}

func (w *udpWorker) accept(src, dst uint64) bool {
	if len(w.ports) == 0 {
		return true
	}
	_, s := w.ports[src]
	_, d := w.ports[dst]
	return s || d
}

func (w *udpWorker) Analyze(_ *dissector.Context, s *layer.Stack) error {
	if v, ok := uintAttr(s.Layer(), w.protocol); !ok || v != ProtocolUDP {
		return nil
	}

	p := s.Payload()
	if len(p) < udpMinimumSize {
		return errors.ShortBuffer("udp", udpMinimumSize, len(p))
	}
	child := w.typ.New(p)

	src, _ := uintAttr(child, w.src)
	dst, _ := uintAttr(child, w.dst)
	if !w.accept(src, dst) {
		return nil
	}

	length, _ := uintAttr(child, w.length)
	if int(length) < udpMinimumSize || int(length) > len(p) {
		return errors.InvalidEncoding("udp.length", "@uint16", "length outside the datagram")
	}
	child.SetPayload(p[udpMinimumSize:length])
	return s.AddChild(layer.Own(child))
}
