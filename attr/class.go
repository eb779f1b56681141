package attr

import (
	"slices"

	"github.com/wippyai/dissect-runtime/token"
)

// Class is an immutable attribute descriptor.
type Class struct {
	cast     Box
	name     string
	desc     string
	path     string
	aliases  []token.Token
	children []*Class
	bitRange Range
	id       token.Token
	typ      token.Token
}

// ID returns the attribute id.
func (c *Class) ID() token.Token { return c.id }

// Type returns the type token, e.g. "@ipv4:addr".
func (c *Class) Type() token.Token { return c.typ }

// Name returns the display name.
func (c *Class) Name() string { return c.name }

// Description returns the description.
func (c *Class) Description() string { return c.desc }

// Path returns the dotted id string when the class was built by Layout.
func (c *Class) Path() string { return c.path }

// Aliases returns the alias tokens.
func (c *Class) Aliases() []token.Token { return slices.Clone(c.aliases) }

// BitRange returns the declared bit range.
func (c *Class) BitRange() Range { return c.bitRange }

// ByteRange returns the declared range in bytes.
func (c *Class) ByteRange() Range { return c.bitRange.Bytes() }

// Cast returns the attached cast.
func (c *Class) Cast() Box { return c.cast }

// Children returns the nested classes of a composite field.
func (c *Class) Children() []*Class { return slices.Clone(c.children) }

// IsMatch reports whether id is the class id or one of its aliases.
func (c *Class) IsMatch(id token.Token) bool {
	if c.id == id {
		return true
	}
	return slices.Contains(c.aliases, id)
}

// Label names the class in error messages.
func (c *Class) Label() string {
	switch {
	case c.path != "":
		return c.path
	case c.name != "":
		return c.name
	}
	return "#" + itoa(int(c.id))
}

// Builder constructs a Class.
type Builder struct {
	class Class
}

// NewBuilder starts a class with the given id.
func NewBuilder(id token.Token) *Builder {
	return &Builder{class: Class{id: id}}
}

func (b *Builder) Name(name string) *Builder {
	b.class.name = name
	return b
}

func (b *Builder) Description(desc string) *Builder {
	b.class.desc = desc
	return b
}

func (b *Builder) Path(path string) *Builder {
	b.class.path = path
	return b
}

func (b *Builder) Type(typ token.Token) *Builder {
	b.class.typ = typ
	return b
}

func (b *Builder) Aliases(aliases ...token.Token) *Builder {
	b.class.aliases = append(b.class.aliases, aliases...)
	return b
}

// BitRange sets the declared range in bits.
func (b *Builder) BitRange(r Range) *Builder {
	b.class.bitRange = r
	return b
}

// ByteRange sets the declared range in bytes.
func (b *Builder) ByteRange(r Range) *Builder {
	b.class.bitRange = r.Bits()
	return b
}

func (b *Builder) Cast(c Cast) *Builder {
	b.class.cast = NewBox(c)
	return b
}

func (b *Builder) Children(children ...*Class) *Builder {
	b.class.children = append(b.class.children, children...)
	return b
}

// Build returns the class. The builder may be reused; later changes do
// not affect classes already built.
func (b *Builder) Build() *Class {
	c := b.class
	c.aliases = slices.Clone(c.aliases)
	c.children = slices.Clone(c.children)
	return &c
}
