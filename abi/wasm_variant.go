package abi

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dissect-runtime/variant"
)

func (h *Host) variantArg(fn string, v uint64) (*variant.Variant, bool) {
	p, ok := h.variants.Get(handleArg(v))
	if !ok {
		h.stale(fn, handleArg(v))
	}
	return p, ok
}

// insertRef returns 0 for a nil reference, i.e. a value of another kind.
func (h *Host) insertRef(ref *variant.Variant) uint64 {
	if ref == nil {
		return 0
	}
	return api.EncodeU32(uint32(h.variants.Insert(ref)))
}

func (h *Host) wasmVariantNew(_ context.Context, _ api.Module, stack []uint64) {
	v := variant.Nil()
	stack[0] = api.EncodeU32(uint32(h.variants.Insert(&v)))
}

func (h *Host) wasmVariantSetNil(_ context.Context, _ api.Module, stack []uint64) {
	if v, ok := h.variantArg(SymVariantSetNil, stack[0]); ok {
		variantSetNil(v)
	}
}

func (h *Host) wasmVariantSetBool(_ context.Context, _ api.Module, stack []uint64) {
	if v, ok := h.variantArg(SymVariantSetBool, stack[0]); ok {
		variantSetBool(v, api.DecodeU32(stack[1]) != 0)
	}
}

func (h *Host) wasmVariantSetInt64(_ context.Context, _ api.Module, stack []uint64) {
	if v, ok := h.variantArg(SymVariantSetInt64, stack[0]); ok {
		variantSetInt64(v, int64(stack[1]))
	}
}

func (h *Host) wasmVariantSetUint64(_ context.Context, _ api.Module, stack []uint64) {
	if v, ok := h.variantArg(SymVariantSetUint64, stack[0]); ok {
		variantSetUint64(v, stack[1])
	}
}

func (h *Host) wasmVariantSetDouble(_ context.Context, _ api.Module, stack []uint64) {
	if v, ok := h.variantArg(SymVariantSetDouble, stack[0]); ok {
		variantSetDouble(v, api.DecodeF64(stack[1]))
	}
}

func (h *Host) wasmVariantString(_ context.Context, m api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantString, stack[0])
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = h.write(m, SymVariantString, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), []byte(variantString(v)))
}

func (h *Host) wasmVariantSetString(_ context.Context, m api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantSetString, stack[0])
	if !ok {
		return
	}
	if s, ok := h.read(m, SymVariantSetString, api.DecodeU32(stack[1]), api.DecodeU32(stack[2])); ok {
		variantSetString(v, string(s))
	}
}

func (h *Host) wasmVariantSetSlice(_ context.Context, m api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantSetSlice, stack[0])
	if !ok {
		return
	}
	if b, ok := h.read(m, SymVariantSetSlice, api.DecodeU32(stack[1]), api.DecodeU32(stack[2])); ok {
		variantSetSlice(v, b)
	}
}

func (h *Host) wasmVariantArrayValue(_ context.Context, _ api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantArrayValue, stack[0])
	if !ok {
		stack[0] = 0
		return
	}
	e := variantArrayValue(v, int(api.DecodeU32(stack[1])))
	stack[0] = api.EncodeU32(uint32(h.variants.Insert(&e)))
}

// wasmVariantArrayValueRef hands out a reference into the array. It is
// invalidated by any later growth of the same array.
func (h *Host) wasmVariantArrayValueRef(_ context.Context, _ api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantArrayValueRef, stack[0])
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = h.insertRef(variantArrayValueRef(v, int(api.DecodeU32(stack[1]))))
}

func (h *Host) wasmVariantMapValue(_ context.Context, m api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantMapValue, stack[0])
	if !ok {
		stack[0] = 0
		return
	}
	key, ok := h.read(m, SymVariantMapValue, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = 0
		return
	}
	e := variantMapValue(v, string(key))
	stack[0] = api.EncodeU32(uint32(h.variants.Insert(&e)))
}

func (h *Host) wasmVariantMapValueRef(_ context.Context, m api.Module, stack []uint64) {
	v, ok := h.variantArg(SymVariantMapValueRef, stack[0])
	if !ok {
		stack[0] = 0
		return
	}
	key, ok := h.read(m, SymVariantMapValueRef, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = h.insertRef(variantMapValueRef(v, string(key)))
}
