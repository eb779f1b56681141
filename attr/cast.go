package attr

import (
	"fmt"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/variant"
)

// Cast converts the bytes of an attribute into a value.
// data is the attribute's byte range of the layer buffer.
type Cast interface {
	Cast(a *Attr, data []byte) (variant.Variant, error)
}

// Cloner is implemented by casts that hold nested casts and must be
// duplicated node by node.
type Cloner interface {
	Clone() Cast
}

// CastFunc adapts a function to Cast.
type CastFunc func(a *Attr, data []byte) (variant.Variant, error)

func (f CastFunc) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return f(a, data)
}

// Typed is a cast with a concrete output type and a default bit width.
// BitSize returns 0 for variable-length casts.
type Typed[T any] interface {
	CastTyped(a *Attr, data []byte) (T, error)
	BitSize() int
}

// Mapped runs an inner typed cast and applies a pure function to its output.
type Mapped[I, R any] struct {
	inner Typed[I]
	fn    func(I) R
}

// Map composes c with fn. Errors from c are returned unchanged and fn is
// not called.
func Map[I, R any](c Typed[I], fn func(I) R) *Mapped[I, R] {
	return &Mapped[I, R]{inner: c, fn: fn}
}

func (m *Mapped[I, R]) BitSize() int {
	return m.inner.BitSize()
}

func (m *Mapped[I, R]) CastTyped(a *Attr, data []byte) (R, error) {
	v, err := m.inner.CastTyped(a, data)
	if err != nil {
		var zero R
		return zero, err
	}
	return m.fn(v), nil
}

func (m *Mapped[I, R]) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[R](m, a, data)
}

// Clone duplicates the chain. The function value is shared; it is pure.
func (m *Mapped[I, R]) Clone() Cast {
	return &Mapped[I, R]{inner: cloneTyped(m.inner), fn: m.fn}
}

func cloneTyped[T any](c Typed[T]) Typed[T] {
	if cl, ok := c.(Cloner); ok {
		if t, ok := cl.Clone().(Typed[T]); ok {
			return t
		}
	}
	return c
}

// Erase converts a typed cast into a Cast. An output with no Variant
// representation is a decode error.
func Erase[T any](c Typed[T]) Cast {
	if cast, ok := c.(Cast); ok {
		return cast
	}
	return erased[T]{typed: c}
}

type erased[T any] struct {
	typed Typed[T]
}

func (e erased[T]) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped(e.typed, a, data)
}

func (e erased[T]) Clone() Cast {
	return erased[T]{typed: cloneTyped(e.typed)}
}

func castTyped[T any](c Typed[T], a *Attr, data []byte) (variant.Variant, error) {
	v, err := c.CastTyped(a, data)
	if err != nil {
		return variant.Nil(), err
	}
	out, ok := variant.From(v)
	if !ok {
		return variant.Nil(), errors.TypeMismatch(errors.PhaseCast, a.Label(), fmt.Sprintf("%T", v))
	}
	return out, nil
}

// Nil is the placeholder cast. It returns a Nil variant for any input.
type Nil struct{}

func (Nil) Cast(*Attr, []byte) (variant.Variant, error) {
	return variant.Nil(), nil
}

// Const returns a cast that always yields v.
func Const(v variant.Variant) Cast {
	return CastFunc(func(*Attr, []byte) (variant.Variant, error) {
		return v, nil
	})
}

// Box is the uniform, duplicable form of a cast stored in a Class.
// The zero Box behaves like Nil.
type Box struct {
	cast Cast
}

// NewBox erases c. Passing a Box returns it unchanged.
func NewBox(c Cast) Box {
	if b, ok := c.(Box); ok {
		return b
	}
	return Box{cast: c}
}

func (b Box) Cast(a *Attr, data []byte) (variant.Variant, error) {
	if b.cast == nil {
		return variant.Nil(), nil
	}
	return b.cast.Cast(a, data)
}

// Clone returns a Box with the same behavior that shares no cast nodes
// implementing Cloner with b.
func (b Box) Clone() Box {
	if c, ok := b.cast.(Cloner); ok {
		return Box{cast: c.Clone()}
	}
	return b
}

// IsNil reports whether no cast is attached.
func (b Box) IsNil() bool {
	if b.cast == nil {
		return true
	}
	_, ok := b.cast.(Nil)
	return ok
}

// Unwrap returns the boxed cast.
func (b Box) Unwrap() Cast {
	return b.cast
}
