package dissector

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/wippyai/dissect-runtime/abi"
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

type testDissector struct {
	analyze func(ctx *Context, s *layer.Stack) error
	created *atomic.Int32
	name    string
	hints   []string
}

func (d *testDissector) Name() string { return d.name }

func (d *testDissector) Hints() []string { return d.hints }

func (d *testDissector) NewWorker(*Context) (Worker, error) {
	if d.created != nil {
		d.created.Add(1)
	}
	return WorkerFunc(d.analyze), nil
}

// addChild adds a layer of typ over the stack payload, consuming skip
// bytes as its header.
func addChild(s *layer.Stack, typ *layer.Type, skip int) error {
	p := s.Payload()
	if len(p) < skip {
		return errors.ShortBuffer(typ.ID(), skip, len(p))
	}
	child := typ.New(p)
	child.SetPayload(p[skip:])
	return s.AddChild(layer.Own(child))
}

type fixture struct {
	tokens *token.Table
	reg    *Registry
	outer  *layer.Type
	inner  *layer.Type
	raw    token.Token
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := token.NewTable()
	f := &fixture{
		tokens: tokens,
		reg:    NewRegistry(tokens),
		outer:  layer.NewType(tokens, "outer", []attr.Field{{ID: "kind", Cast: attr.Uint8}}),
		inner:  layer.NewType(tokens, "inner", []attr.Field{{ID: "value", Cast: attr.Uint8}}),
		raw:    tokens.Literal("[raw]"),
	}

	mustRegister(t, f.reg, &testDissector{
		name:  "outer",
		hints: []string{"[raw]"},
		analyze: func(_ *Context, s *layer.Stack) error {
			return addChild(s, f.outer, 1)
		},
	})
	mustRegister(t, f.reg, &testDissector{
		name:  "inner",
		hints: []string{"outer"},
		analyze: func(ctx *Context, s *layer.Stack) error {
			kind, err := s.Attr(ctx.Token("outer.kind")).Value()
			if err != nil {
				return err
			}
			if u, _ := kind.Uint64(); u != 1 {
				return nil
			}
			return addChild(s, f.inner, 1)
		},
	})
	return f
}

func mustRegister(t *testing.T, r *Registry, d Dissector) {
	t.Helper()
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_Dissect(t *testing.T) {
	f := newFixture(t)
	eng := New(f.tokens, f.reg, Config{})

	frame, err := eng.Dissect(context.Background(), 7, f.raw, []byte{1, 42, 0xaa})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Index != 7 || frame.ID.String() == "" {
		t.Fatalf("frame = %+v", frame)
	}
	if len(frame.Errors) != 0 {
		t.Fatalf("errors: %v", frame.Errors)
	}

	layers := frame.Layers()
	if len(layers) != 3 {
		t.Fatalf("got %d layers", len(layers))
	}
	ids := []string{"[raw]", "outer", "inner"}
	for i, l := range layers {
		if got := f.tokens.String(l.ID()); got != ids[i] {
			t.Errorf("layer %d = %q, want %q", i, got, ids[i])
		}
	}

	inner := frame.Layer(f.tokens.Literal("inner"))
	if inner == nil || frame.Leaf() != inner {
		t.Fatal("inner must be the leaf")
	}
	v, err := inner.Attr(f.tokens.Literal("inner.value")).Value()
	if err != nil || !variant.Equal(v, variant.Uint64(42)) {
		t.Fatalf("inner.value = %v, %v", v, err)
	}
	if frame.Root.Children[0].Children[0].Depth != 2 {
		t.Fatal("depth")
	}
}

func TestEngine_DecodeErrorRecorded(t *testing.T) {
	f := newFixture(t)
	eng := New(f.tokens, f.reg, Config{})

	frame, err := eng.Dissect(context.Background(), 0, f.raw, []byte{})
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Errors) != 1 {
		t.Fatalf("errors = %v", frame.Errors)
	}
	e := frame.Errors[0]
	if e.Dissector != "outer" || e.Layer != f.raw {
		t.Fatalf("error = %+v", e)
	}
	if !errors.IsDecode(e) {
		t.Fatal("decode errors must stay recognizable through Error")
	}
}

func TestEngine_StopOnError(t *testing.T) {
	tokens := token.NewTable()
	reg := NewRegistry(tokens)
	var ran []string
	for _, name := range []string{"a", "b"} {
		mustRegister(t, reg, &testDissector{
			name:  name,
			hints: []string{"[raw]"},
			analyze: func(*Context, *layer.Stack) error {
				ran = append(ran, name)
				return errors.InvalidInput(errors.PhaseDissect, "bad")
			},
		})
	}

	raw := tokens.Literal("[raw]")
	frame, _ := New(tokens, reg, Config{}).Dissect(context.Background(), 0, raw, nil)
	if len(frame.Errors) != 2 || len(ran) != 2 {
		t.Fatalf("continue: errors %d ran %v", len(frame.Errors), ran)
	}

	ran = nil
	frame, _ = New(tokens, reg, Config{StopOnError: true}).Dissect(context.Background(), 0, raw, nil)
	if len(frame.Errors) != 1 || len(ran) != 1 {
		t.Fatalf("stop: errors %d ran %v", len(frame.Errors), ran)
	}
}

func TestEngine_DepthBound(t *testing.T) {
	tokens := token.NewTable()
	reg := NewRegistry(tokens)
	loop := layer.NewType(tokens, "loop", nil)
	mustRegister(t, reg, &testDissector{
		name:  "loop",
		hints: []string{"[raw]", "loop"},
		analyze: func(_ *Context, s *layer.Stack) error {
			return s.AddChild(layer.Own(loop.New(nil)))
		},
	})

	eng := New(tokens, reg, Config{MaxDepth: 4})
	frame, err := eng.Dissect(context.Background(), 0, tokens.Literal("[raw]"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(frame.Layers()); n != 5 {
		t.Fatalf("got %d layers, want root plus 4", n)
	}
	if len(frame.Errors) != 1 {
		t.Fatalf("errors = %v", frame.Errors)
	}
	if !errors.Is(frame.Errors[0], &errors.Error{Phase: errors.PhaseStack, Kind: errors.KindDepthExceeded}) {
		t.Fatalf("got %v", frame.Errors[0])
	}
}

func TestEngine_DissectAll(t *testing.T) {
	f := newFixture(t)
	var created atomic.Int32
	mustRegister(t, f.reg, &testDissector{
		name:    "count",
		hints:   []string{"inner"},
		created: &created,
		analyze: func(ctx *Context, s *layer.Stack) error {
			s.AddTag(ctx.Token("seen"))
			return nil
		},
	})

	packets := make([][]byte, 20)
	for i := range packets {
		packets[i] = []byte{1, byte(i)}
	}

	eng := New(f.tokens, f.reg, Config{Workers: 3})
	frames, err := eng.DissectAll(context.Background(), f.raw, packets)
	if err != nil {
		t.Fatal(err)
	}
	if created.Load() != 3 {
		t.Fatalf("created %d workers, want one per goroutine", created.Load())
	}

	seen := map[string]bool{}
	for i, fr := range frames {
		if fr == nil || fr.Index != i {
			t.Fatalf("frame %d out of order", i)
		}
		if seen[fr.ID.String()] {
			t.Fatal("frame ids must be unique")
		}
		seen[fr.ID.String()] = true

		inner := fr.Layer(f.tokens.Literal("inner"))
		v, _ := inner.Attr(f.tokens.Literal("inner.value")).Value()
		if u, _ := v.Uint64(); u != uint64(i) {
			t.Fatalf("frame %d value = %v", i, v)
		}
		if tags := inner.Tags(); len(tags) != 1 {
			t.Fatalf("frame %d tags = %v", i, tags)
		}
	}
}

func TestEngine_DissectAllCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, err := New(f.tokens, f.reg, Config{Workers: 2}).DissectAll(ctx, f.raw, [][]byte{{1}, {2}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	for i, fr := range frames {
		if fr != nil {
			t.Fatalf("frame %d dissected after cancel", i)
		}
	}
}

func TestEngine_Options(t *testing.T) {
	tokens := token.NewTable()
	reg := NewRegistry(tokens)
	var got variant.Variant
	mustRegister(t, reg, &testDissector{
		name:  "opts",
		hints: []string{"[raw]"},
		analyze: func(ctx *Context, _ *layer.Stack) error {
			got, _ = ctx.Option("opts.limit")
			return nil
		},
	})

	cfg := Config{Options: variant.Map(map[string]variant.Variant{
		"opts": variant.Map(map[string]variant.Variant{"limit": variant.Int64(3)}),
	})}
	if _, err := New(tokens, reg, cfg).Dissect(context.Background(), 0, tokens.Literal("[raw]"), nil); err != nil {
		t.Fatal(err)
	}
	if n, _ := got.Int64(); n != 3 {
		t.Fatalf("option = %v", got)
	}
}

func TestRegistry(t *testing.T) {
	tokens := token.NewTable()
	reg := NewRegistry(tokens)
	d := &testDissector{name: "x", hints: []string{"a", "b"}}
	mustRegister(t, reg, d)

	if err := reg.Register(&testDissector{name: "x"}); err == nil {
		t.Fatal("duplicate name must fail")
	}
	if got := reg.For(tokens.Literal("b")); len(got) != 1 || got[0] != Dissector(d) {
		t.Fatalf("For = %v", got)
	}
	if len(reg.For(tokens.Literal("c"))) != 0 {
		t.Fatal("no dissector for c")
	}
	if _, ok := reg.Get("x"); !ok {
		t.Fatal("Get")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "x" {
		t.Fatalf("Names = %v", names)
	}
}

type closingWorker struct {
	closed *atomic.Int32
}

func (w closingWorker) Analyze(*Context, *layer.Stack) error { return nil }

func (w closingWorker) Close() error {
	w.closed.Add(1)
	return nil
}

type closingDissector struct {
	closed *atomic.Int32
}

func (closingDissector) Name() string { return "closing" }

func (closingDissector) Hints() []string { return []string{"[raw]"} }

func (d closingDissector) NewWorker(*Context) (Worker, error) {
	return closingWorker{closed: d.closed}, nil
}

func TestEngine_ClosesWorkers(t *testing.T) {
	f := newFixture(t)
	var closed atomic.Int32
	mustRegister(t, f.reg, closingDissector{closed: &closed})

	eng := New(f.tokens, f.reg, Config{Workers: 2})
	if _, err := eng.Dissect(context.Background(), 0, f.raw, []byte{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if got := closed.Load(); got != 1 {
		t.Fatalf("closed after Dissect = %d, want 1", got)
	}

	if _, err := eng.DissectAll(context.Background(), f.raw, [][]byte{{1}, {2}, {3}}); err != nil {
		t.Fatal(err)
	}
	if got := closed.Load(); got != 3 {
		t.Fatalf("closed after DissectAll = %d, want 3", got)
	}
}

func TestEngine_SubLayerChildrenReachable(t *testing.T) {
	tokens := token.NewTable()
	reg := NewRegistry(tokens)
	host := abi.NewHost(tokens)
	syms, err := abi.Init("tunnel", host)
	if err != nil {
		t.Fatal(err)
	}

	mustRegister(t, reg, &testDissector{
		name:  "tunnel",
		hints: []string{"[raw]"},
		analyze: func(ctx *Context, s *layer.Stack) error {
			sub, err := syms.LayerAddSubLayer(s, ctx.Token("tunnel"))
			if err != nil {
				return err
			}
			_, err = syms.LayerAddLayer(sub, ctx.Token("inner"))
			return err
		},
	})

	frame, err := New(tokens, reg, Config{}).Dissect(context.Background(), 0, tokens.Literal("[raw]"), []byte{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Errors) != 0 {
		t.Fatalf("errors: %v", frame.Errors)
	}
	layers := frame.Layers()
	ids := []string{"[raw]", "tunnel", "inner"}
	if len(layers) != len(ids) {
		t.Fatalf("got %d layers, want %d", len(layers), len(ids))
	}
	for i, l := range layers {
		if got := tokens.String(l.ID()); got != ids[i] {
			t.Errorf("layer %d = %q, want %q", i, got, ids[i])
		}
	}
	if frame.Root.Children[0].Children[0].Depth != 2 {
		t.Fatal("inner must sit under tunnel")
	}
}
