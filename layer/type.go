package layer

import (
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// TypeName is the type of the synthetic presence header.
const TypeName = "@layer"

// Type is a layer class derived from a record declaration. Header 0 is a
// boolean that is always true and spans the whole record; the declared
// fields follow, laid out back to back.
type Type struct {
	class   *Class
	id      string
	headers map[string]*attr.Class
	bits    int
}

// NewType lays out fields under id.
func NewType(tokens token.Interner, id string, fields []attr.Field) *Type {
	bits := attr.Size(fields)
	present := attr.NewBuilder(tokens.Literal(id)).
		Path(id).
		Name(id).
		Type(tokens.Literal(TypeName)).
		BitRange(attr.Range{Start: 0, End: bits}).
		Cast(attr.Const(variant.Bool(true))).
		Build()

	flat := attr.Flatten(attr.Layout(tokens, id, 0, fields))
	headers := make(map[string]*attr.Class, len(flat))
	for _, c := range flat {
		headers[c.Path()] = c
	}

	return &Type{
		class:   NewClassBuilder(append([]*attr.Class{present}, flat...)...).Build(),
		id:      id,
		headers: headers,
		bits:    bits,
	}
}

func (t *Type) Class() *Class { return t.class }

func (t *Type) ID() string { return t.id }

// ByteSize returns the record size in bytes, rounded up.
func (t *Type) ByteSize() int {
	return (t.bits + 7) / 8
}

// BitSize returns the record size in bits.
func (t *Type) BitSize() int {
	return t.bits
}

// Header returns the class of a field by its path relative to the type,
// e.g. "flags.df". Nested fields are included.
func (t *Type) Header(name string) *attr.Class {
	return t.headers[token.JoinPath(t.id, name)]
}

// Headers returns every header, the presence header first.
func (t *Type) Headers() []*attr.Class {
	return t.class.Headers()
}

// New creates a layer of this type over data.
func (t *Type) New(data []byte) *Layer {
	return New(t.class, data)
}
