package abi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/resource"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Host implements every boundary primitive over one shared state.
type Host struct {
	tokens   token.Interner
	table    *resource.Table
	layers   *resource.Typed[*layer.Layer]
	stacks   *resource.Typed[*layer.Stack]
	attrs    *resource.Typed[*attr.Attr]
	variants *resource.Typed[*variant.Variant]
	contexts *resource.Typed[Options]
	logger   *zap.Logger
	symbols  map[string]any

	classes map[token.Token]*layer.Class
	groups  map[token.Token][]*attr.Class
	mu      sync.RWMutex
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithTable uses table for guest handles instead of a private one.
func WithTable(t *resource.Table) HostOption {
	return func(h *Host) { h.table = t }
}

// WithLogger sets the logger used for guest-side failures.
func WithLogger(l *zap.Logger) HostOption {
	return func(h *Host) { h.logger = l }
}

// NewHost creates a host over tokens.
func NewHost(tokens token.Interner, opts ...HostOption) *Host {
	h := &Host{
		tokens:  tokens,
		classes: make(map[token.Token]*layer.Class),
		groups:  make(map[token.Token][]*attr.Class),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.table == nil {
		h.table = resource.NewTable()
	}
	if h.logger == nil {
		h.logger = Logger()
	}
	h.layers = resource.NewTyped[*layer.Layer](h.table, resource.KindLayer)
	h.stacks = resource.NewTyped[*layer.Stack](h.table, resource.KindStack)
	h.attrs = resource.NewTyped[*attr.Attr](h.table, resource.KindAttr)
	h.variants = resource.NewTyped[*variant.Variant](h.table, resource.KindVariant)
	h.contexts = resource.NewTyped[Options](h.table, resource.KindContext)

	h.symbols = map[string]any{
		SymTokenLiteral:         h.tokenLiteral,
		SymTokenString:          h.tokenString,
		SymTokenJoin:            h.tokenJoin,
		SymContextGetOption:     h.contextGetOption,
		SymVariantSetNil:        variantSetNil,
		SymVariantSetBool:       variantSetBool,
		SymVariantSetInt64:      variantSetInt64,
		SymVariantSetUint64:     variantSetUint64,
		SymVariantSetDouble:     variantSetDouble,
		SymVariantString:        variantString,
		SymVariantSetString:     variantSetString,
		SymVariantSetSlice:      variantSetSlice,
		SymVariantArrayValue:    variantArrayValue,
		SymVariantArrayValueRef: variantArrayValueRef,
		SymVariantMapValue:      variantMapValue,
		SymVariantMapValueRef:   variantMapValueRef,
		SymLayerAttr:            layerAttr,
		SymLayerPayloads:        layerPayloads,
		SymLayerAddLayer:        h.layerAddLayer,
		SymLayerAddSubLayer:     h.layerAddSubLayer,
		SymLayerAddAttr:         h.layerAddAttr,
		SymLayerAddPayload:      layerAddPayload,
		SymLayerAddTag:          layerAddTag,
	}
	return h
}

// Resolve implements Resolver.
func (h *Host) Resolve(name string) (any, bool) {
	v, ok := h.symbols[name]
	return v, ok
}

// Tokens returns the shared interner.
func (h *Host) Tokens() token.Interner { return h.tokens }

// Table returns the handle table shared with guests.
func (h *Host) Table() *resource.Table { return h.table }

// RegisterClass makes c the class of layers added with its id.
func (h *Host) RegisterClass(c *layer.Class) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classes[c.ID()] = c
}

// RegisterGroup makes group the classes bound when an attribute with the
// id of group[0] is added. The rest of the group keeps its offsets
// relative to group[0].
func (h *Host) RegisterGroup(group ...*attr.Class) {
	if len(group) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups[group[0].ID()] = group
}

// RegisterType registers the class of t and each of its headers as a
// single-class group.
func (h *Host) RegisterType(t *layer.Type) {
	h.RegisterClass(t.Class())
	for _, c := range t.Headers() {
		h.RegisterGroup(c)
	}
}

// classFor returns the registered class for id, creating and caching a
// header-only class for unknown ids.
func (h *Host) classFor(id token.Token) *layer.Class {
	h.mu.RLock()
	c, ok := h.classes[id]
	h.mu.RUnlock()
	if ok {
		return c
	}

	c = layer.NewType(h.tokens, h.tokens.String(id), nil).Class()
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.classes[id]; ok {
		return existing
	}
	h.classes[id] = c
	return c
}

// groupFor returns the registered group for id, or a single Bytes class.
func (h *Host) groupFor(id token.Token) []*attr.Class {
	h.mu.RLock()
	g, ok := h.groups[id]
	h.mu.RUnlock()
	if ok {
		return g
	}
	path := h.tokens.String(id)
	return []*attr.Class{
		attr.NewBuilder(id).Path(path).Name(path).Cast(attr.Bytes).Build(),
	}
}

func (h *Host) tokenLiteral(s string) token.Token { return h.tokens.Literal(s) }

func (h *Host) tokenString(t token.Token) string { return h.tokens.String(t) }

func (h *Host) tokenJoin(a, b token.Token) token.Token { return h.tokens.Join(a, b) }

func (h *Host) contextGetOption(ctx Options, name string) variant.Variant {
	if ctx == nil {
		return variant.Nil()
	}
	v, ok := ctx.Option(name)
	if !ok {
		return variant.Nil()
	}
	return v.Clone()
}

func variantSetNil(v *variant.Variant) { v.SetNil() }

func variantSetBool(v *variant.Variant, b bool) { v.SetBool(b) }

func variantSetInt64(v *variant.Variant, n int64) { v.SetInt64(n) }

func variantSetUint64(v *variant.Variant, n uint64) { v.SetUint64(n) }

func variantSetDouble(v *variant.Variant, f float64) { v.SetDouble(f) }

func variantString(v *variant.Variant) string {
	s, _ := v.Str()
	return s
}

func variantSetString(v *variant.Variant, s string) { v.SetString(s) }

func variantSetSlice(v *variant.Variant, b []byte) { v.SetSlice(b) }

func variantArrayValue(v *variant.Variant, i int) variant.Variant {
	e, _ := v.ArrayValue(i)
	return e
}

func variantArrayValueRef(v *variant.Variant, i int) *variant.Variant {
	return v.ArrayValueRef(i)
}

func variantMapValue(v *variant.Variant, key string) variant.Variant {
	e, _ := v.MapValue(key)
	return e
}

func variantMapValueRef(v *variant.Variant, key string) *variant.Variant {
	return v.MapValueRef(key)
}

func layerAttr(l *layer.Layer, id token.Token) *attr.Attr {
	return l.Attr(id)
}

func layerPayloads(l *layer.Layer) [][]byte {
	p := l.Payload()
	if p == nil {
		return nil
	}
	return [][]byte{p}
}

// layerAddLayer creates a layer over the stack's payload and moves it into
// the stack's children.
func (h *Host) layerAddLayer(s *layer.Stack, id token.Token) (*layer.Layer, error) {
	child := layer.New(h.classFor(id), s.Payload())
	if err := s.AddChild(layer.Own(child)); err != nil {
		return nil, err
	}
	return child, nil
}

// layerAddSubLayer adds a child and returns its stack, one level deeper.
func (h *Host) layerAddSubLayer(s *layer.Stack, id token.Token) (*layer.Stack, error) {
	if !s.CanSub() {
		return nil, errors.DepthExceeded(s.Depth()+1, s.MaxDepth())
	}
	child, err := h.layerAddLayer(s, id)
	if err != nil {
		return nil, err
	}
	return s.Sub(child)
}

func (h *Host) layerAddAttr(l *layer.Layer, id token.Token, byteRange attr.Range) *attr.Attr {
	group := h.groupFor(id)
	l.AddAttr(group, byteRange)
	return attr.New(group[0], byteRange.Bits(), l.Data())
}

// layerAddPayload appends data to the payload.
func layerAddPayload(l *layer.Layer, data []byte) {
	p := l.Payload()
	if len(p) == 0 {
		l.SetPayload(data)
		return
	}
	joined := make([]byte, 0, len(p)+len(data))
	joined = append(joined, p...)
	l.SetPayload(append(joined, data...))
}

func layerAddTag(l *layer.Layer, tag token.Token) { l.AddTag(tag) }
