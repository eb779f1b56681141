package layer

import (
	"slices"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/token"
)

// Bound is an attribute class together with its effective bit range.
type Bound struct {
	Class *attr.Class
	Range attr.Range
}

// Table is the set of entry points bound to a Class at construction.
// Layer methods call through the table only.
type Table struct {
	ID         func(c *Class) token.Token
	Data       func(l *Layer) []byte
	AttrsLen   func(l *Layer) int
	AttrsData  func(l *Layer) []Bound
	AddAttr    func(l *Layer, b Bound)
	Payload    func(l *Layer) []byte
	SetPayload func(l *Layer, data []byte)
}

var defaultTable = Table{
	ID: func(c *Class) token.Token {
		if len(c.headers) == 0 {
			return token.Null
		}
		return c.headers[0].ID()
	},
	Data:      func(l *Layer) []byte { return l.data },
	AttrsLen:  func(l *Layer) int { return len(l.attrs) },
	AttrsData: func(l *Layer) []Bound { return l.attrs },
	AddAttr: func(l *Layer, b Bound) {
		l.attrs = append(l.attrs, b)
	},
	Payload: func(l *Layer) []byte { return l.payload },
	SetPayload: func(l *Layer, data []byte) {
		l.payload = data
	},
}

// DefaultTable returns the in-process implementation.
func DefaultTable() *Table {
	t := defaultTable
	return &t
}

// Class is an immutable layer kind. It is safe for concurrent use.
type Class struct {
	table   *Table
	headers []*attr.Class
}

// ID returns the token of header 0, or token.Null without headers.
func (c *Class) ID() token.Token {
	return c.table.ID(c)
}

// Headers returns the static header classes in declaration order.
func (c *Class) Headers() []*attr.Class {
	return slices.Clone(c.headers)
}

// Table returns the dispatch table.
func (c *Class) Table() *Table {
	return c.table
}

// ClassBuilder builds a Class.
type ClassBuilder struct {
	table   *Table
	headers []*attr.Class
}

// NewClassBuilder starts a class with the given headers. The first header
// identifies the layer.
func NewClassBuilder(headers ...*attr.Class) *ClassBuilder {
	return &ClassBuilder{headers: headers}
}

// Header appends a header class.
func (b *ClassBuilder) Header(h *attr.Class) *ClassBuilder {
	b.headers = append(b.headers, h)
	return b
}

// Table binds the dispatch table. Unset entries fall back to the
// in-process implementation.
func (b *ClassBuilder) Table(t *Table) *ClassBuilder {
	b.table = t
	return b
}

func (b *ClassBuilder) Build() *Class {
	t := defaultTable
	if b.table != nil {
		merge(&t, b.table)
	}
	return &Class{
		table:   &t,
		headers: slices.Clone(b.headers),
	}
}

func merge(dst, src *Table) {
	if src.ID != nil {
		dst.ID = src.ID
	}
	if src.Data != nil {
		dst.Data = src.Data
	}
	if src.AttrsLen != nil {
		dst.AttrsLen = src.AttrsLen
	}
	if src.AttrsData != nil {
		dst.AttrsData = src.AttrsData
	}
	if src.AddAttr != nil {
		dst.AddAttr = src.AddAttr
	}
	if src.Payload != nil {
		dst.Payload = src.Payload
	}
	if src.SetPayload != nil {
		dst.SetPayload = src.SetPayload
	}
}
