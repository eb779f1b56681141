package attr

import (
	"strconv"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Attr is a Class bound to an effective bit range of a buffer.
type Attr struct {
	class    *Class
	data     []byte
	bitRange Range
}

// New binds class at bitRange over data.
func New(class *Class, bitRange Range, data []byte) *Attr {
	return &Attr{class: class, bitRange: bitRange, data: data}
}

func (a *Attr) Class() *Class { return a.class }

func (a *Attr) ID() token.Token { return a.class.id }

func (a *Attr) Type() token.Token { return a.class.typ }

// BitRange returns the effective bit range.
func (a *Attr) BitRange() Range { return a.bitRange }

// ByteRange returns the bytes covering the effective bit range.
func (a *Attr) ByteRange() Range { return a.bitRange.Bytes() }

// IsMatch reports whether id matches the class id or an alias.
func (a *Attr) IsMatch(id token.Token) bool { return a.class.IsMatch(id) }

// Buffer returns the whole backing buffer.
func (a *Attr) Buffer() []byte { return a.data }

// Data returns the bytes covered by the attribute, or nil when the range
// falls outside the buffer.
func (a *Attr) Data() []byte {
	data, err := a.slice()
	if err != nil {
		return nil
	}
	return data
}

// Value runs the cast over the attribute's bytes. Nothing is cached.
func (a *Attr) Value() (variant.Variant, error) {
	data, err := a.slice()
	if err != nil {
		return variant.Nil(), err
	}
	return a.class.cast.Cast(a, data)
}

// Label names the attribute in error messages. It is safe on a nil Attr.
func (a *Attr) Label() string {
	if a == nil || a.class == nil {
		return ""
	}
	return a.class.Label()
}

func (a *Attr) slice() ([]byte, error) {
	r := a.bitRange.Bytes()
	switch {
	case a.bitRange.Start < 0:
		return nil, errors.OutOfBounds(errors.PhaseCast, a.Label(), a.bitRange.Start, len(a.data)*8)
	case a.bitRange.End < a.bitRange.Start:
		return nil, errors.New(errors.PhaseCast, errors.KindInvalidInput).
			Attr(a.Label()).
			Detail("inverted bit range %s", a.bitRange).
			Build()
	case r.End > len(a.data):
		return nil, errors.OutOfBounds(errors.PhaseCast, a.Label(), a.bitRange.End, len(a.data)*8)
	}
	return a.data[r.Start:r.End], nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
