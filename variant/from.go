package variant

// From converts a Go value into a Variant. Nested []any and map[string]any
// values are converted recursively. It reports false for values with no
// Variant representation.
func From(v any) (Variant, bool) {
	switch x := v.(type) {
	case nil:
		return Nil(), true
	case Variant:
		return x, true
	case *Variant:
		if x == nil {
			return Nil(), true
		}
		return *x, true
	case bool:
		return Bool(x), true
	case int:
		return Int64(int64(x)), true
	case int8:
		return Int64(int64(x)), true
	case int16:
		return Int64(int64(x)), true
	case int32:
		return Int64(int64(x)), true
	case int64:
		return Int64(x), true
	case uint:
		return Uint64(uint64(x)), true
	case uint8:
		return Uint64(uint64(x)), true
	case uint16:
		return Uint64(uint64(x)), true
	case uint32:
		return Uint64(uint64(x)), true
	case uint64:
		return Uint64(x), true
	case float32:
		return Double(float64(x)), true
	case float64:
		return Double(x), true
	case string:
		return String(x), true
	case []byte:
		return Slice(x), true
	case []Variant:
		return Array(x...), true
	case map[string]Variant:
		return Map(x), true
	case []any:
		arr := make([]Variant, len(x))
		for i, e := range x {
			ev, ok := From(e)
			if !ok {
				return Nil(), false
			}
			arr[i] = ev
		}
		return Array(arr...), true
	case []map[string]any:
		arr := make([]Variant, len(x))
		for i, e := range x {
			ev, ok := From(e)
			if !ok {
				return Nil(), false
			}
			arr[i] = ev
		}
		return Array(arr...), true
	case map[string]any:
		m := make(map[string]Variant, len(x))
		for k, e := range x {
			ev, ok := From(e)
			if !ok {
				return Nil(), false
			}
			m[k] = ev
		}
		return Map(m), true
	}
	return Nil(), false
}

// Interface converts v back into plain Go values: nil, bool, int64,
// uint64, float64, string, []byte, []any or map[string]any.
func (v Variant) Interface() any {
	switch v.kind {
	case KindBool:
		b, _ := v.Bool()
		return b
	case KindInt64:
		i, _ := v.Int64()
		return i
	case KindUint64:
		return v.bits
	case KindDouble:
		f, _ := v.Double()
		return f
	case KindString:
		return v.s
	case KindSlice:
		return v.slice
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}
