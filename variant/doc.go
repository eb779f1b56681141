// Package variant provides the tagged dynamic value that crosses the
// dissector boundary.
//
// A Variant holds exactly one of:
//
//	Nil, Bool, Int64, Uint64, Double, String, Slice ([]byte),
//	Array ([]Variant), Map (map[string]Variant)
//
// Values are plain data. Slices are zero-copy views; the Variant never
// copies bytes it is given. Mutating helpers (SetInt64, ArrayValueRef,
// MapValueRef, ...) operate through *Variant the same way host primitives
// do, converting a Nil value into an Array or Map on first indexed write.
package variant
