package protocols

import (
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

// EthLink is the id of root layers holding Ethernet frames.
const EthLink = "[eth]"

const ethHeaderSize = 14

// EtherType values.
const (
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
	EtherTypeIPv6 = 0x86dd
)

var ethFields = []attr.Field{
	{ID: "dst", Name: "Destination", Cast: MAC, Type: "@eth:mac", Aliases: []string{"_.dst"}},
	{ID: "src", Name: "Source", Cast: MAC, Type: "@eth:mac", Aliases: []string{"_.src"}},
	{ID: "type", Name: "EtherType", Cast: attr.Uint16, Enum: []attr.Enum{
		{ID: "ipv4", Name: "IPv4", Value: EtherTypeIPv4},
		{ID: "arp", Name: "ARP", Value: EtherTypeARP},
		{ID: "ipv6", Name: "IPv6", Value: EtherTypeIPv6},
	}},
}

// Eth is the Ethernet II dissector.
type Eth struct {
	typ *layer.Type
}

// NewEth declares the eth layer type.
func NewEth(tokens token.Interner) *Eth {
	return &Eth{typ: layer.NewType(tokens, "eth", ethFields)}
}

func (d *Eth) Name() string { return "eth" }

func (d *Eth) Hints() []string { return []string{EthLink} }

func (d *Eth) Type() *layer.Type { return d.typ }

func (d *Eth) NewWorker(*dissector.Context) (dissector.Worker, error) {
	return d, nil
}

func (d *Eth) Analyze(_ *dissector.Context, s *layer.Stack) error {
	p := s.Payload()
	if len(p) < ethHeaderSize {
		return errors.ShortBuffer("eth", ethHeaderSize, len(p))
	}
	child := d.typ.New(p)
	child.SetPayload(p[ethHeaderSize:])
	return s.AddChild(layer.Own(child))
}
