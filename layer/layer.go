package layer

import (
	"fmt"
	"slices"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/token"
)

// Layer is one decoded unit of a packet. The class and data are shared
// read-only; dynamic attributes, payload and tags belong to the layer and
// must not be mutated from two goroutines at once.
type Layer struct {
	class   *Class
	data    []byte
	payload []byte
	attrs   []Bound
	tags    []token.Token
}

// New creates a layer of class over data.
func New(class *Class, data []byte) *Layer {
	return &Layer{class: class, data: data}
}

func (l *Layer) Class() *Class { return l.class }

// ID returns the token of the class's primary header.
func (l *Layer) ID() token.Token {
	return l.class.ID()
}

// Data returns the full buffer without copying.
func (l *Layer) Data() []byte {
	return l.class.table.Data(l)
}

// Attrs returns the header attributes followed by the dynamic ones in
// addition order.
func (l *Layer) Attrs() []*attr.Attr {
	data := l.Data()
	dynamic := l.class.table.AttrsData(l)
	out := make([]*attr.Attr, 0, len(l.class.headers)+len(dynamic))
	for _, h := range l.class.headers {
		out = append(out, attr.New(h, h.BitRange(), data))
	}
	for _, b := range dynamic {
		out = append(out, attr.New(b.Class, b.Range, data))
	}
	return out
}

// Attr returns the first attribute matching id or one of its aliases.
// Headers are searched before dynamic attributes. It returns nil when
// nothing matches.
func (l *Layer) Attr(id token.Token) *attr.Attr {
	data := l.Data()
	for _, h := range l.class.headers {
		if h.IsMatch(id) {
			return attr.New(h, h.BitRange(), data)
		}
	}
	for _, b := range l.class.table.AttrsData(l) {
		if b.Class.IsMatch(id) {
			return attr.New(b.Class, b.Range, data)
		}
	}
	return nil
}

// AttrsLen returns the number of dynamic attributes.
func (l *Layer) AttrsLen() int {
	return l.class.table.AttrsLen(l)
}

// AddAttr anchors a statically laid out group at byteRange. The first
// class is bound at byteRange; the rest keep their declared distance from
// it. An empty group adds nothing.
func (l *Layer) AddAttr(group []*attr.Class, byteRange attr.Range) {
	if len(group) == 0 {
		return
	}
	root := group[0]
	bits := byteRange.Bits()
	offset := bits.Start - root.BitRange().Start

	l.class.table.AddAttr(l, Bound{Class: root, Range: bits})
	for _, c := range group[1:] {
		l.class.table.AddAttr(l, Bound{Class: c, Range: c.BitRange().Shift(offset)})
	}
}

// Payload returns the bytes left for the next layer.
func (l *Layer) Payload() []byte {
	return l.class.table.Payload(l)
}

// SetPayload replaces the payload.
func (l *Layer) SetPayload(data []byte) {
	l.class.table.SetPayload(l, data)
}

// Tags returns the tags added to the layer.
func (l *Layer) Tags() []token.Token {
	return slices.Clone(l.tags)
}

// AddTag tags the layer. Duplicates are ignored.
func (l *Layer) AddTag(tag token.Token) {
	if tag == token.Null || slices.Contains(l.tags, tag) {
		return
	}
	l.tags = append(l.tags, tag)
}

func (l *Layer) String() string {
	return fmt.Sprintf("layer(%d: %d bytes, %d attrs, %d payload)",
		l.ID(), len(l.Data()), len(l.class.headers)+l.AttrsLen(), len(l.Payload()))
}
