package attr

import (
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Type tokens used by Layout for enumerated fields.
const (
	EnumType      = "@enum"
	EnumValueType = "@enum:value"
)

// Enum names one value of an enumerated field.
type Enum struct {
	ID    string
	Name  string
	Value uint64
}

// Field declares one record member for Layout.
type Field struct {
	// Cast decodes the field. Leaves default to Bytes.
	Cast        Cast
	ID          string
	Name        string
	Description string
	// Type is interned as the class type token, e.g. "@ipv4:addr".
	Type    string
	Aliases []string
	// Fields makes this a composite spanning all of its members.
	Fields []Field
	// Enum adds one child per value over the same bits. A child decodes
	// to true when the field holds its value. Type defaults to EnumType.
	Enum []Enum
	// Bits is the width. Zero means the sum of Fields, or the cast's
	// BitSize when the cast is typed.
	Bits int
}

type bitSizer interface {
	BitSize() int
}

// Size returns the width of f in bits.
func (f Field) Size() int {
	switch {
	case f.Bits > 0:
		return f.Bits
	case len(f.Fields) > 0:
		return Size(f.Fields)
	}
	if s, ok := f.Cast.(bitSizer); ok {
		return s.BitSize()
	}
	return 0
}

// Size returns the total width of fields in bits.
func Size(fields []Field) int {
	n := 0
	for _, f := range fields {
		n += f.Size()
	}
	return n
}

// Layout builds classes for fields placed back to back from bitOffset.
// Ids are path joined with each field id. Composite fields become classes
// with children; the returned slice holds only the top level.
func Layout(tokens token.Interner, path string, bitOffset int, fields []Field) []*Class {
	classes := make([]*Class, 0, len(fields))
	offset := bitOffset
	for _, f := range fields {
		classes = append(classes, layoutField(tokens, path, offset, f))
		offset += f.Size()
	}
	return classes
}

func layoutField(tokens token.Interner, path string, offset int, f Field) *Class {
	fullPath := token.JoinPath(path, f.ID)
	size := f.Size()
	bitRange := Range{Start: offset, End: offset + size}
	if len(f.Enum) > 0 && f.Type == "" {
		f.Type = EnumType
	}

	b := NewBuilder(tokens.Join(tokens.Literal(path), tokens.Literal(f.ID))).
		Path(fullPath).
		Name(f.Name).
		Description(f.Description).
		Type(tokens.Literal(f.Type)).
		BitRange(bitRange)

	if f.Name == "" {
		b.Name(f.ID)
	}
	for _, alias := range f.Aliases {
		b.Aliases(tokens.Literal(alias))
	}

	switch {
	case f.Cast != nil:
		b.Cast(f.Cast)
	default:
		b.Cast(Bytes)
	}

	if len(f.Fields) > 0 {
		b.Children(Layout(tokens, fullPath, offset, f.Fields)...)
	}
	for _, e := range f.Enum {
		b.Children(enumClass(tokens, fullPath, bitRange, f.Cast, e))
	}
	return b.Build()
}

func enumClass(tokens token.Interner, path string, bitRange Range, parent Cast, e Enum) *Class {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	if parent == nil {
		parent = Bytes
	}
	return NewBuilder(tokens.Join(tokens.Literal(path), tokens.Literal(e.ID))).
		Path(token.JoinPath(path, e.ID)).
		Name(name).
		Type(tokens.Literal(EnumValueType)).
		BitRange(bitRange).
		Cast(CastFunc(func(a *Attr, data []byte) (variant.Variant, error) {
			v, err := parent.Cast(a, data)
			if err != nil {
				return variant.Nil(), err
			}
			u, ok := v.AsUint64()
			return variant.Bool(ok && u == e.Value), nil
		})).
		Build()
}

// Flatten lists classes and their descendants in pre-order.
func Flatten(classes []*Class) []*Class {
	var out []*Class
	for _, c := range classes {
		out = append(out, c)
		out = append(out, Flatten(c.children)...)
	}
	return out
}
