package protocols

import (
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

// Set holds the built-in dissectors.
type Set struct {
	Eth  *Eth
	IPv4 *IPv4
	UDP  *UDP
}

// New declares the built-in layer types.
func New(tokens token.Interner) *Set {
	return &Set{
		Eth:  NewEth(tokens),
		IPv4: NewIPv4(tokens),
		UDP:  NewUDP(tokens),
	}
}

// Dissectors returns the dissectors in chain order.
func (s *Set) Dissectors() []dissector.Dissector {
	return []dissector.Dissector{s.Eth, s.IPv4, s.UDP}
}

// Types returns the layer types in chain order.
func (s *Set) Types() []*layer.Type {
	return []*layer.Type{s.Eth.Type(), s.IPv4.Type(), s.UDP.Type()}
}

// Groups returns the attribute groups dissectors anchor at runtime.
func (s *Set) Groups() [][]*attr.Class {
	return [][]*attr.Class{s.IPv4.OptionGroup()}
}

// Register adds the built-in dissectors to reg.
func Register(reg *dissector.Registry, tokens token.Interner) (*Set, error) {
	s := New(tokens)
	for _, d := range s.Dissectors() {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}
