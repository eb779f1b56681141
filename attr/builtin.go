package attr

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/variant"
)

// Fixed decodes a fixed-size value from the first bytes of the data.
type Fixed[T any] struct {
	decode func([]byte) T
	typ    string
	size   int
}

// NewFixed creates a fixed-size cast of size bytes. decode receives
// exactly size bytes.
func NewFixed[T any](typ string, size int, decode func([]byte) T) Fixed[T] {
	return Fixed[T]{typ: typ, size: size, decode: decode}
}

func (f Fixed[T]) BitSize() int { return f.size * 8 }

// TypeName returns the type name, e.g. "@uint16".
func (f Fixed[T]) TypeName() string { return f.typ }

func (f Fixed[T]) CastTyped(a *Attr, data []byte) (T, error) {
	if len(data) < f.size {
		var zero T
		return zero, errors.ShortBuffer(a.Label(), f.size, len(data))
	}
	return f.decode(data[:f.size]), nil
}

func (f Fixed[T]) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[T](f, a, data)
}

var (
	Uint8    = NewFixed("@uint8", 1, func(b []byte) uint8 { return b[0] })
	Int8     = NewFixed("@int8", 1, func(b []byte) int8 { return int8(b[0]) })
	Uint16   = NewFixed("@uint16", 2, binary.BigEndian.Uint16)
	Uint16LE = NewFixed("@uint16", 2, binary.LittleEndian.Uint16)
	Uint32   = NewFixed("@uint32", 4, binary.BigEndian.Uint32)
	Uint32LE = NewFixed("@uint32", 4, binary.LittleEndian.Uint32)
	Uint64   = NewFixed("@uint64", 8, binary.BigEndian.Uint64)
	Uint64LE = NewFixed("@uint64", 8, binary.LittleEndian.Uint64)
	Int16    = NewFixed("@int16", 2, func(b []byte) int16 { return int16(binary.BigEndian.Uint16(b)) })
	Int32    = NewFixed("@int32", 4, func(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) })
	Int64    = NewFixed("@int64", 8, func(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) })
	Float32  = NewFixed("@float32", 4, func(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) })
	Float64  = NewFixed("@float64", 8, func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) })
)

// Bool is true when any byte of the data is nonzero.
var Bool boolCast

type boolCast struct{}

func (boolCast) BitSize() int { return 8 }

func (boolCast) CastTyped(a *Attr, data []byte) (bool, error) {
	if len(data) == 0 {
		return false, errors.ShortBuffer(a.Label(), 1, 0)
	}
	for _, b := range data {
		if b != 0 {
			return true, nil
		}
	}
	return false, nil
}

func (c boolCast) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[bool](c, a, data)
}

// Bytes returns the data unchanged, without copying.
var Bytes bytesCast

type bytesCast struct{}

func (bytesCast) BitSize() int { return 0 }

func (bytesCast) CastTyped(_ *Attr, data []byte) ([]byte, error) {
	return data, nil
}

func (c bytesCast) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return variant.Slice(data), nil
}

// UTF8 decodes the data as a UTF-8 string.
var UTF8 utf8Cast

type utf8Cast struct{}

func (utf8Cast) BitSize() int { return 0 }

func (utf8Cast) CastTyped(a *Attr, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.InvalidEncoding(a.Label(), "@utf8", "invalid UTF-8 sequence")
	}
	return string(data), nil
}

func (c utf8Cast) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[string](c, a, data)
}

// Bits extracts an unsigned bit-field, most significant bit first. The
// field position comes from the attribute's effective bit range; Width is
// the default layout size.
type Bits struct {
	Width int
}

func (b Bits) BitSize() int { return b.Width }

func (b Bits) CastTyped(a *Attr, data []byte) (uint64, error) {
	offset, width := 0, b.Width
	if a != nil {
		r := a.BitRange()
		offset = r.Start - r.Bytes().Start*8
		width = r.Len()
	}
	if width <= 0 || width > 64 {
		return 0, errors.InvalidEncoding(a.Label(), "@bits", "bit-field width must be 1..64, got "+itoa(width))
	}
	need := (offset + width + 7) / 8
	if len(data) < need {
		return 0, errors.ShortBuffer(a.Label(), need, len(data))
	}

	var v uint64
	for i := offset; i < offset+width; i++ {
		bit := (data[i/8] >> (7 - uint(i%8))) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

func (b Bits) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[uint64](b, a, data)
}

// Flag is a single bit read as a boolean.
var Flag = Map(Bits{Width: 1}, func(v uint64) bool { return v != 0 })
