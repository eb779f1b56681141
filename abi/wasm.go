package abi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/resource"
	"github.com/wippyai/dissect-runtime/token"
)

// ModuleName is the import module guests use for host primitives.
const ModuleName = "genet"

// Guest-only helpers exported next to the symbols.
const (
	SymAttrValue     = "Attr_value"
	SymVariantNew    = "Variant_new"
	SymHandleRelease = "Handle_release"
)

// Exports lists every function of the host module.
func Exports() []string {
	return append(Names(), SymAttrValue, SymVariantNew, SymHandleRelease)
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// Instantiate registers the host module on rt. Call it once per runtime
// before instantiating guests.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(ModuleName)

	export := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		b = b.NewFunctionBuilder().
			WithGoModuleFunction(fn, params, results).
			Export(name)
	}

	export(SymTokenLiteral, h.wasmTokenLiteral, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymTokenString, h.wasmTokenString, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})
	export(SymTokenJoin, h.wasmTokenJoin, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymContextGetOption, h.wasmContextGetOption, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})

	export(SymVariantNew, h.wasmVariantNew, nil, []api.ValueType{i32})
	export(SymVariantSetNil, h.wasmVariantSetNil, []api.ValueType{i32}, nil)
	export(SymVariantSetBool, h.wasmVariantSetBool, []api.ValueType{i32, i32}, nil)
	export(SymVariantSetInt64, h.wasmVariantSetInt64, []api.ValueType{i32, i64}, nil)
	export(SymVariantSetUint64, h.wasmVariantSetUint64, []api.ValueType{i32, i64}, nil)
	export(SymVariantSetDouble, h.wasmVariantSetDouble, []api.ValueType{i32, f64}, nil)
	export(SymVariantString, h.wasmVariantString, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})
	export(SymVariantSetString, h.wasmVariantSetString, []api.ValueType{i32, i32, i32}, nil)
	export(SymVariantSetSlice, h.wasmVariantSetSlice, []api.ValueType{i32, i32, i32}, nil)
	export(SymVariantArrayValue, h.wasmVariantArrayValue, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymVariantArrayValueRef, h.wasmVariantArrayValueRef, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymVariantMapValue, h.wasmVariantMapValue, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})
	export(SymVariantMapValueRef, h.wasmVariantMapValueRef, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})

	export(SymLayerAttr, h.wasmLayerAttr, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymLayerPayloads, h.wasmLayerPayloads, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})
	export(SymLayerAddLayer, h.wasmLayerAddLayer, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymLayerAddSubLayer, h.wasmLayerAddSubLayer, []api.ValueType{i32, i32}, []api.ValueType{i32})
	export(SymLayerAddAttr, h.wasmLayerAddAttr, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32})
	export(SymLayerAddPayload, h.wasmLayerAddPayload, []api.ValueType{i32, i32, i32}, nil)
	export(SymLayerAddTag, h.wasmLayerAddTag, []api.ValueType{i32, i32}, nil)

	export(SymAttrValue, h.wasmAttrValue, []api.ValueType{i32}, []api.ValueType{i32})
	export(SymHandleRelease, h.wasmHandleRelease, []api.ValueType{i32}, nil)

	return b.Instantiate(ctx)
}

// read copies len bytes at ptr out of guest memory.
func (h *Host) read(m api.Module, fn string, ptr, n uint32) ([]byte, bool) {
	mem := m.Memory()
	if mem == nil {
		h.logger.Warn("guest has no memory", zap.String("func", fn))
		return nil, false
	}
	view, ok := mem.Read(ptr, n)
	if !ok {
		h.logger.Warn("guest memory read out of range",
			zap.String("func", fn),
			zap.Uint32("ptr", ptr),
			zap.Uint32("len", n))
		return nil, false
	}
	out := make([]byte, n)
	copy(out, view)
	return out, true
}

// write copies data into guest memory at ptr, truncated to limit. It
// returns the full length of data so the guest can retry with a larger
// buffer.
func (h *Host) write(m api.Module, fn string, ptr, limit uint32, data []byte) uint64 {
	n := uint32(len(data))
	if n > limit {
		n = limit
	}
	if n > 0 {
		mem := m.Memory()
		if mem == nil || !mem.Write(ptr, data[:n]) {
			h.logger.Warn("guest memory write failed",
				zap.String("func", fn),
				zap.Uint32("ptr", ptr),
				zap.Uint32("len", n))
			return 0
		}
	}
	return api.EncodeU32(uint32(len(data)))
}

func (h *Host) stale(fn string, handle resource.Handle) {
	h.logger.Debug("stale guest handle",
		zap.String("func", fn),
		zap.Stringer("handle", handle))
}

// layerOf accepts a layer or a stack handle.
func (h *Host) layerOf(handle resource.Handle) (*layer.Layer, bool) {
	if l, ok := h.layers.Get(handle); ok {
		return l, true
	}
	if s, ok := h.stacks.Get(handle); ok {
		return s.Layer(), true
	}
	return nil, false
}

func handleArg(v uint64) resource.Handle {
	return resource.Handle(api.DecodeU32(v))
}

func tokenArg(v uint64) token.Token {
	return token.Token(api.DecodeU32(v))
}

func (h *Host) wasmTokenLiteral(_ context.Context, m api.Module, stack []uint64) {
	s, ok := h.read(m, SymTokenLiteral, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(h.tokenLiteral(string(s))))
}

func (h *Host) wasmTokenString(_ context.Context, m api.Module, stack []uint64) {
	s := h.tokenString(tokenArg(stack[0]))
	stack[0] = h.write(m, SymTokenString, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), []byte(s))
}

func (h *Host) wasmTokenJoin(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(uint32(h.tokenJoin(tokenArg(stack[0]), tokenArg(stack[1]))))
}

func (h *Host) wasmContextGetOption(_ context.Context, m api.Module, stack []uint64) {
	ctx, ok := h.contexts.Get(handleArg(stack[0]))
	if !ok {
		h.stale(SymContextGetOption, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	name, ok := h.read(m, SymContextGetOption, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		stack[0] = 0
		return
	}
	v := h.contextGetOption(ctx, string(name))
	stack[0] = api.EncodeU32(uint32(h.variants.Insert(&v)))
}

func (h *Host) wasmAttrValue(_ context.Context, _ api.Module, stack []uint64) {
	a, ok := h.attrs.Get(handleArg(stack[0]))
	if !ok {
		h.stale(SymAttrValue, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	v, err := a.Value()
	if err != nil {
		h.logger.Debug("attribute decode failed", zap.String("attr", a.Label()), zap.Error(err))
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(h.variants.Insert(&v)))
}

func (h *Host) wasmHandleRelease(_ context.Context, _ api.Module, stack []uint64) {
	h.table.Remove(handleArg(stack[0]))
}

func (h *Host) wasmLayerAttr(_ context.Context, _ api.Module, stack []uint64) {
	l, ok := h.layerOf(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAttr, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	a := layerAttr(l, tokenArg(stack[1]))
	if a == nil {
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(h.attrs.Insert(a)))
}

func (h *Host) wasmLayerPayloads(_ context.Context, m api.Module, stack []uint64) {
	l, ok := h.layerOf(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerPayloads, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	var data []byte
	for _, p := range layerPayloads(l) {
		data = append(data, p...)
	}
	stack[0] = h.write(m, SymLayerPayloads, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), data)
}

func (h *Host) wasmLayerAddLayer(_ context.Context, _ api.Module, stack []uint64) {
	s, ok := h.stacks.Get(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAddLayer, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	child, err := h.layerAddLayer(s, tokenArg(stack[1]))
	if err != nil {
		h.logger.Warn("add layer failed", zap.Error(err))
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(h.layers.Insert(child)))
}

func (h *Host) wasmLayerAddSubLayer(_ context.Context, _ api.Module, stack []uint64) {
	s, ok := h.stacks.Get(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAddSubLayer, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	sub, err := h.layerAddSubLayer(s, tokenArg(stack[1]))
	if err != nil {
		h.logger.Warn("add sub layer failed", zap.Error(err))
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(h.stacks.Insert(sub)))
}

func (h *Host) wasmLayerAddAttr(_ context.Context, _ api.Module, stack []uint64) {
	l, ok := h.layerOf(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAddAttr, handleArg(stack[0]))
		stack[0] = 0
		return
	}
	r := attr.Range{Start: int(api.DecodeU32(stack[2])), End: int(api.DecodeU32(stack[3]))}
	if r.End < r.Start {
		h.logger.Warn("inverted attribute range", zap.Stringer("range", r))
		stack[0] = 0
		return
	}
	a := h.layerAddAttr(l, tokenArg(stack[1]), r)
	stack[0] = api.EncodeU32(uint32(h.attrs.Insert(a)))
}

func (h *Host) wasmLayerAddPayload(_ context.Context, m api.Module, stack []uint64) {
	l, ok := h.layerOf(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAddPayload, handleArg(stack[0]))
		return
	}
	data, ok := h.read(m, SymLayerAddPayload, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
	if !ok {
		return
	}
	layerAddPayload(l, data)
}

func (h *Host) wasmLayerAddTag(_ context.Context, _ api.Module, stack []uint64) {
	l, ok := h.layerOf(handleArg(stack[0]))
	if !ok {
		h.stale(SymLayerAddTag, handleArg(stack[0]))
		return
	}
	layerAddTag(l, tokenArg(stack[1]))
}
