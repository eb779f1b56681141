package abi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Options reads configuration values from the active dissection context.
type Options interface {
	Option(path string) (variant.Variant, bool)
}

// Resolver supplies a primitive by name. The value must have exactly the
// type of the matching Symbols field.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (any, bool)

func (f ResolverFunc) Resolve(name string) (any, bool) { return f(name) }

// Symbols holds every primitive the core calls across the boundary.
type Symbols struct {
	TokenLiteral     func(s string) token.Token
	TokenString      func(t token.Token) string
	TokenJoin        func(a, b token.Token) token.Token
	ContextGetOption func(ctx Options, name string) variant.Variant

	VariantSetNil        func(v *variant.Variant)
	VariantSetBool       func(v *variant.Variant, b bool)
	VariantSetInt64      func(v *variant.Variant, n int64)
	VariantSetUint64     func(v *variant.Variant, n uint64)
	VariantSetDouble     func(v *variant.Variant, f float64)
	VariantString        func(v *variant.Variant) string
	VariantSetString     func(v *variant.Variant, s string)
	VariantSetSlice      func(v *variant.Variant, b []byte)
	VariantArrayValue    func(v *variant.Variant, i int) variant.Variant
	VariantArrayValueRef func(v *variant.Variant, i int) *variant.Variant
	VariantMapValue      func(v *variant.Variant, key string) variant.Variant
	VariantMapValueRef   func(v *variant.Variant, key string) *variant.Variant

	LayerAttr        func(l *layer.Layer, id token.Token) *attr.Attr
	LayerPayloads    func(l *layer.Layer) [][]byte
	LayerAddLayer    func(s *layer.Stack, id token.Token) (*layer.Layer, error)
	LayerAddSubLayer func(s *layer.Stack, id token.Token) (*layer.Stack, error)
	LayerAddAttr     func(l *layer.Layer, id token.Token, byteRange attr.Range) *attr.Attr
	LayerAddPayload  func(l *layer.Layer, data []byte)
	LayerAddTag      func(l *layer.Layer, tag token.Token)
}

// Symbol names.
const (
	SymTokenLiteral         = "Token_literal_"
	SymTokenString          = "Token_string"
	SymTokenJoin            = "Token_join"
	SymContextGetOption     = "Context_getOption"
	SymVariantSetNil        = "Variant_setNil"
	SymVariantSetBool       = "Variant_setBool"
	SymVariantSetInt64      = "Variant_setInt64"
	SymVariantSetUint64     = "Variant_setUint64"
	SymVariantSetDouble     = "Variant_setDouble"
	SymVariantString        = "Variant_string"
	SymVariantSetString     = "Variant_setString"
	SymVariantSetSlice      = "Variant_setSlice"
	SymVariantArrayValue    = "Variant_arrayValue"
	SymVariantArrayValueRef = "Variant_arrayValueRef"
	SymVariantMapValue      = "Variant_mapValue"
	SymVariantMapValueRef   = "Variant_mapValueRef"
	SymLayerAttr            = "Layer_attr"
	SymLayerPayloads        = "Layer_payloads"
	SymLayerAddLayer        = "Layer_addLayer"
	SymLayerAddSubLayer     = "Layer_addSubLayer"
	SymLayerAddAttr         = "Layer_addAttr"
	SymLayerAddPayload      = "Layer_addPayload"
	SymLayerAddTag          = "Layer_addTag"
)

type binding struct {
	name string
	set  func(v any) bool
}

func bind[F any](dst *F) func(any) bool {
	return func(v any) bool {
		f, ok := v.(F)
		if ok {
			*dst = f
		}
		return ok
	}
}

func (s *Symbols) bindings() []binding {
	return []binding{
		{SymTokenLiteral, bind(&s.TokenLiteral)},
		{SymTokenString, bind(&s.TokenString)},
		{SymTokenJoin, bind(&s.TokenJoin)},
		{SymContextGetOption, bind(&s.ContextGetOption)},
		{SymVariantSetNil, bind(&s.VariantSetNil)},
		{SymVariantSetBool, bind(&s.VariantSetBool)},
		{SymVariantSetInt64, bind(&s.VariantSetInt64)},
		{SymVariantSetUint64, bind(&s.VariantSetUint64)},
		{SymVariantSetDouble, bind(&s.VariantSetDouble)},
		{SymVariantString, bind(&s.VariantString)},
		{SymVariantSetString, bind(&s.VariantSetString)},
		{SymVariantSetSlice, bind(&s.VariantSetSlice)},
		{SymVariantArrayValue, bind(&s.VariantArrayValue)},
		{SymVariantArrayValueRef, bind(&s.VariantArrayValueRef)},
		{SymVariantMapValue, bind(&s.VariantMapValue)},
		{SymVariantMapValueRef, bind(&s.VariantMapValueRef)},
		{SymLayerAttr, bind(&s.LayerAttr)},
		{SymLayerPayloads, bind(&s.LayerPayloads)},
		{SymLayerAddLayer, bind(&s.LayerAddLayer)},
		{SymLayerAddSubLayer, bind(&s.LayerAddSubLayer)},
		{SymLayerAddAttr, bind(&s.LayerAddAttr)},
		{SymLayerAddPayload, bind(&s.LayerAddPayload)},
		{SymLayerAddTag, bind(&s.LayerAddTag)},
	}
}

// Names returns every symbol name in resolution order.
func Names() []string {
	var s Symbols
	b := s.bindings()
	names := make([]string, len(b))
	for i := range b {
		names[i] = b[i].name
	}
	return names
}

// Init resolves every symbol. Any symbol that is missing or has the
// wrong type fails the whole initialization with a
// *errors.MissingSymbolsError listing all of them.
func Init(plugin string, r Resolver) (*Symbols, error) {
	s := &Symbols{}
	var missing []errors.MissingSymbol
	for _, b := range s.bindings() {
		v, ok := r.Resolve(b.name)
		switch {
		case !ok || v == nil:
			missing = append(missing, errors.MissingSymbol{Name: b.name, Reason: "not found"})
		case !b.set(v):
			missing = append(missing, errors.MissingSymbol{
				Name:   b.name,
				Reason: fmt.Sprintf("unexpected type %T", v),
			})
		}
	}
	if len(missing) > 0 {
		err := errors.NewMissingSymbolsError(plugin, missing)
		Logger().Error("plugin symbol resolution failed",
			zap.String("plugin", plugin),
			zap.Int("missing", len(missing)))
		return nil, err
	}
	return s, nil
}
