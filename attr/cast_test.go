package attr

import (
	"bytes"
	"math"
	"testing"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

func bind(t *testing.T, c Cast, r Range, data []byte) *Attr {
	t.Helper()
	tokens := token.NewTable()
	class := NewBuilder(tokens.Literal("test.field")).
		Path("test.field").
		BitRange(r).
		Cast(c).
		Build()
	return New(class, r, data)
}

func TestFixedCasts(t *testing.T) {
	data := []byte{0x80, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}

	tests := []struct {
		name string
		cast Cast
		want variant.Variant
	}{
		{"uint8", Uint8, variant.Uint64(0x80)},
		{"int8", Int8, variant.Int64(-128)},
		{"uint16", Uint16, variant.Uint64(0x8001)},
		{"uint16le", Uint16LE, variant.Uint64(0x0180)},
		{"uint32", Uint32, variant.Uint64(0x80010203)},
		{"uint32le", Uint32LE, variant.Uint64(0x03020180)},
		{"uint64", Uint64, variant.Uint64(0x8001020304050607)},
		{"int16", Int16, variant.Int64(-32767)},
		{"bool", Bool, variant.Bool(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := bind(t, tt.cast, Range{Start: 0, End: 64}, data)
			got, err := a.Value()
			if err != nil {
				t.Fatalf("Value: %v", err)
			}
			if !variant.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFloatCasts(t *testing.T) {
	data := make([]byte, 8)
	bits := math.Float64bits(2.5)
	for i := range data {
		data[i] = byte(bits >> (56 - 8*i))
	}
	got, err := bind(t, Float64, Range{Start: 0, End: 64}, data).Value()
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := got.Double(); !ok || f != 2.5 {
		t.Fatalf("got %v, want 2.5", got)
	}
}

func TestCast_ShortBuffer(t *testing.T) {
	a := bind(t, Uint32, Range{Start: 0, End: 16}, []byte{1, 2})
	_, err := a.Value()
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseCast, Kind: errors.KindShortBuffer}) {
		t.Fatalf("got %v, want short_buffer", err)
	}
	if !errors.IsDecode(err) {
		t.Fatal("short buffer must be a decode error")
	}
}

func TestCast_InvalidUTF8(t *testing.T) {
	a := bind(t, UTF8, Range{Start: 0, End: 16}, []byte{0xff, 0xfe})
	_, err := a.Value()
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseCast, Kind: errors.KindInvalidEncoding}) {
		t.Fatalf("got %v, want invalid_encoding", err)
	}

	a = bind(t, UTF8, Range{Start: 0, End: 16}, []byte("ok"))
	got, err := a.Value()
	if err != nil || !variant.Equal(got, variant.String("ok")) {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestBits(t *testing.T) {
	data := []byte{0b0100_0101, 0b1010_0000}

	tests := []struct {
		name string
		r    Range
		want uint64
	}{
		{"version", Range{Start: 0, End: 4}, 4},
		{"ihl", Range{Start: 4, End: 8}, 5},
		{"straddle", Range{Start: 6, End: 10}, 0b0110},
		{"single bit", Range{Start: 8, End: 9}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bind(t, Bits{Width: tt.r.Len()}, tt.r, data).Value()
			if err != nil {
				t.Fatal(err)
			}
			if u, ok := got.Uint64(); !ok || u != tt.want {
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}

	got, err := bind(t, Flag, Range{Start: 10, End: 11}, data).Value()
	if err != nil {
		t.Fatal(err)
	}
	if !variant.Equal(got, variant.Bool(true)) {
		t.Errorf("Flag = %v, want true", got)
	}
}

func TestNilCast(t *testing.T) {
	for _, data := range [][]byte{nil, {1, 2, 3}} {
		got, err := Nil{}.Cast(nil, data)
		if err != nil || !got.IsNil() {
			t.Fatalf("Nil cast = %v, %v", got, err)
		}
	}
	var zero Box
	got, err := zero.Cast(nil, []byte{1})
	if err != nil || !got.IsNil() {
		t.Fatalf("zero Box = %v, %v", got, err)
	}
	if !zero.IsNil() || !NewBox(Nil{}).IsNil() {
		t.Fatal("IsNil")
	}
}

func TestMap_CompositionLaw(t *testing.T) {
	f := func(v uint16) int64 { return int64(v) * 3 }
	g := func(v int64) string { return variant.Int64(v - 1).String() }

	chained := Map(Map(Uint16, f), g)
	composed := Map(Uint16, func(v uint16) string { return g(f(v)) })

	inputs := [][]byte{
		{0x00, 0x00},
		{0x00, 0x01},
		{0xff, 0xff},
		{0x12, 0x34, 0x56},
		{0x01},
		nil,
	}
	for _, in := range inputs {
		a := bind(t, chained, Range{Start: 0, End: 16}, in)
		got1, err1 := chained.Cast(a, in)
		got2, err2 := composed.Cast(a, in)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("input % x: errors differ: %v vs %v", in, err1, err2)
		}
		if !variant.Equal(got1, got2) {
			t.Fatalf("input % x: %v != %v", in, got1, got2)
		}
	}
}

func TestMap_ErrorShortCircuits(t *testing.T) {
	called := false
	m := Map(Uint16, func(v uint16) uint16 {
		called = true
		return v
	})
	if _, err := m.CastTyped(nil, []byte{1}); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Fatal("map function must not run after a decode error")
	}
	if m.BitSize() != 16 {
		t.Fatalf("BitSize = %d, want 16", m.BitSize())
	}
}

type countingCast struct {
	n *int
}

func (c countingCast) BitSize() int { return 8 }

func (c countingCast) CastTyped(_ *Attr, data []byte) (uint8, error) {
	*c.n++
	return data[0], nil
}

func (c countingCast) Clone() Cast {
	n := 0
	return clonedCounting{countingCast{n: &n}}
}

type clonedCounting struct{ countingCast }

func (c clonedCounting) Cast(a *Attr, data []byte) (variant.Variant, error) {
	return castTyped[uint8](c, a, data)
}

func TestBox_CloneDuplicatesChain(t *testing.T) {
	n := 0
	inner := countingCast{n: &n}
	box := NewBox(Map(inner, func(v uint8) uint8 { return v + 1 }))
	dup := box.Clone()

	data := []byte{41}
	a, _ := box.Cast(nil, data)
	b, _ := dup.Cast(nil, data)
	if !variant.Equal(a, b) || !variant.Equal(a, variant.Uint64(42)) {
		t.Fatalf("clone behaves differently: %v vs %v", a, b)
	}
	if n != 1 {
		t.Fatalf("original counter = %d, want 1 (clone must not share the inner node)", n)
	}
	if box.Unwrap() == dup.Unwrap() {
		t.Fatal("clone must be a new chain")
	}
}

func TestErase(t *testing.T) {
	n := 0
	c := Erase[uint8](countingCast{n: &n})
	got, err := c.Cast(nil, []byte{7})
	if err != nil || !variant.Equal(got, variant.Uint64(7)) {
		t.Fatalf("got %v, %v", got, err)
	}

	type opaque struct{}
	bad := Erase[opaque](Map(Uint8, func(uint8) opaque { return opaque{} }))
	if _, err := bad.Cast(nil, []byte{1}); !errors.Is(err, &errors.Error{Phase: errors.PhaseCast, Kind: errors.KindTypeMismatch}) {
		t.Fatalf("got %v, want type_mismatch", err)
	}
}

func TestBytes_ZeroCopy(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	got, err := bind(t, Bytes, Range{Start: 8, End: 24}, buf).Value()
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.Slice()
	if !ok || !bytes.Equal(b, []byte{2, 3}) {
		t.Fatalf("got %v", got)
	}
	buf[1] = 9
	if b[0] != 9 {
		t.Fatal("Bytes must view the buffer, not copy it")
	}
}
