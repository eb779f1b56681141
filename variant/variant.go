package variant

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Variant.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindDouble
	KindString
	KindSlice
	KindArray
	KindMap
)

var kindNames = [...]string{
	KindNil:    "nil",
	KindBool:   "bool",
	KindInt64:  "int64",
	KindUint64: "uint64",
	KindDouble: "double",
	KindString: "string",
	KindSlice:  "slice",
	KindArray:  "array",
	KindMap:    "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Variant is a tagged dynamic value. The zero value is Nil.
type Variant struct {
	m     map[string]*Variant
	s     string
	slice []byte
	arr   []Variant
	bits  uint64
	kind  Kind
}

func Nil() Variant { return Variant{} }

func Bool(v bool) Variant {
	var b uint64
	if v {
		b = 1
	}
	return Variant{kind: KindBool, bits: b}
}

func Int64(v int64) Variant { return Variant{kind: KindInt64, bits: uint64(v)} }

func Uint64(v uint64) Variant { return Variant{kind: KindUint64, bits: v} }

func Double(v float64) Variant { return Variant{kind: KindDouble, bits: math.Float64bits(v)} }

func String(v string) Variant { return Variant{kind: KindString, s: v} }

// Slice wraps b without copying.
func Slice(b []byte) Variant { return Variant{kind: KindSlice, slice: b} }

func Array(vs ...Variant) Variant { return Variant{kind: KindArray, arr: vs} }

// Map copies the entries of m into a new map value.
func Map(m map[string]Variant) Variant {
	refs := make(map[string]*Variant, len(m))
	for k, e := range m {
		c := e.Clone()
		refs[k] = &c
	}
	return Variant{kind: KindMap, m: refs}
}

// Kind returns the held type.
func (v Variant) Kind() Kind { return v.kind }

// IsNil reports whether v holds no value.
func (v Variant) IsNil() bool { return v.kind == KindNil }

func (v Variant) Bool() (bool, bool) {
	return v.bits != 0, v.kind == KindBool
}

func (v Variant) Int64() (int64, bool) {
	return int64(v.bits), v.kind == KindInt64
}

func (v Variant) Uint64() (uint64, bool) {
	return v.bits, v.kind == KindUint64
}

func (v Variant) Double() (float64, bool) {
	return math.Float64frombits(v.bits), v.kind == KindDouble
}

func (v Variant) Str() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Variant) Slice() ([]byte, bool) {
	return v.slice, v.kind == KindSlice
}

// Array returns a copy of the elements of an array value.
func (v Variant) Array() ([]Variant, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.Clone().arr, true
}

// Map returns a snapshot of the entries of a map value.
func (v Variant) Map() (map[string]Variant, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]Variant, len(v.m))
	for k, e := range v.m {
		out[k] = e.Clone()
	}
	return out, true
}

// Clone returns a deep copy of arrays and maps. A plain assignment of a
// Variant shares their storage, so mutating through ArrayValueRef or
// MapValueRef on the copy would change the original. Slice bytes are
// shared.
func (v Variant) Clone() Variant {
	switch v.kind {
	case KindArray:
		arr := make([]Variant, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		v.arr = arr
	case KindMap:
		m := make(map[string]*Variant, len(v.m))
		for k, e := range v.m {
			c := e.Clone()
			m[k] = &c
		}
		v.m = m
	}
	return v
}

// Keys returns the sorted keys of a map value.
func (v Variant) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the element count of arrays, maps, strings and slices.
func (v Variant) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.m)
	case KindString:
		return len(v.s)
	case KindSlice:
		return len(v.slice)
	}
	return 0
}

// AsUint64 converts any integer kind (and bool) to uint64.
// Negative integers and other kinds report false.
func (v Variant) AsUint64() (uint64, bool) {
	switch v.kind {
	case KindUint64, KindBool:
		return v.bits, true
	case KindInt64:
		if int64(v.bits) < 0 {
			return 0, false
		}
		return v.bits, true
	case KindDouble:
		f := math.Float64frombits(v.bits)
		if f < 0 || f != math.Trunc(f) || f >= 0x1p64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

// AsInt64 converts any numeric kind to int64 when it fits.
func (v Variant) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt64, KindBool:
		return int64(v.bits), true
	case KindUint64:
		if v.bits > math.MaxInt64 {
			return 0, false
		}
		return int64(v.bits), true
	case KindDouble:
		f := math.Float64frombits(v.bits)
		if f != math.Trunc(f) || f < math.MinInt64 || f >= 0x1p63 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// ArrayValue returns a copy of element i of an array.
func (v Variant) ArrayValue(i int) (Variant, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Variant{}, false
	}
	return v.arr[i].Clone(), true
}

// MapValue returns a copy of the value stored under key.
func (v Variant) MapValue(key string) (Variant, bool) {
	val, ok := v.lookup(key)
	if !ok {
		return Variant{}, false
	}
	return val.Clone(), true
}

func (v *Variant) lookup(key string) (*Variant, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Path resolves a dotted key path through nested maps and returns a copy
// of the value found.
func (v Variant) Path(path string) (Variant, bool) {
	if path == "" {
		return v.Clone(), true
	}
	cur := &v
	for _, key := range strings.Split(path, ".") {
		next, ok := cur.lookup(key)
		if !ok {
			return Variant{}, false
		}
		cur = next
	}
	return cur.Clone(), true
}

func (v *Variant) reset(k Kind) {
	*v = Variant{kind: k}
}

func (v *Variant) SetNil() { v.reset(KindNil) }

func (v *Variant) SetBool(b bool) { *v = Bool(b) }

func (v *Variant) SetInt64(i int64) { *v = Int64(i) }

func (v *Variant) SetUint64(u uint64) { *v = Uint64(u) }

func (v *Variant) SetDouble(f float64) { *v = Double(f) }

func (v *Variant) SetString(s string) { *v = String(s) }

func (v *Variant) SetSlice(b []byte) { *v = Slice(b) }

// ArrayValueRef returns a pointer to element i, turning a Nil value into
// an array and growing it with Nil elements as needed. It returns nil for
// other kinds and negative indexes. The pointer is invalidated when the
// array grows again.
func (v *Variant) ArrayValueRef(i int) *Variant {
	if i < 0 {
		return nil
	}
	switch v.kind {
	case KindNil:
		v.reset(KindArray)
	case KindArray:
	default:
		return nil
	}
	if i >= len(v.arr) {
		v.arr = append(v.arr, make([]Variant, i+1-len(v.arr))...)
	}
	return &v.arr[i]
}

// MapValueRef returns a pointer to the value under key, turning a Nil value
// into a map and inserting a Nil entry as needed. It returns nil for other kinds.
func (v *Variant) MapValueRef(key string) *Variant {
	switch v.kind {
	case KindNil:
		v.reset(KindMap)
		v.m = make(map[string]*Variant)
	case KindMap:
	default:
		return nil
	}
	ref, ok := v.m[key]
	if !ok {
		ref = &Variant{}
		v.m[key] = ref
	}
	return ref
}

// Equal reports deep equality. Doubles compare by bit pattern.
func Equal(a, b Variant) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool, KindInt64, KindUint64, KindDouble:
		return a.bits == b.bits
	case KindString:
		return a.s == b.s
	case KindSlice:
		return bytes.Equal(a.slice, b.slice)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(*av, *bv) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Variant) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	case KindInt64:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindUint64:
		return strconv.FormatUint(v.bits, 10)
	case KindDouble:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindSlice:
		return fmt.Sprintf("[% x]", v.slice)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.kind.String()
}
