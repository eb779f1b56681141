package dissector

import (
	"sort"
	"sync"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

// Dissector describes one protocol analyzer.
type Dissector interface {
	// Name identifies the dissector in logs and options.
	Name() string
	// Hints lists the ids of the layers the dissector analyzes.
	Hints() []string
	// NewWorker creates the analyzer used by one goroutine.
	NewWorker(ctx *Context) (Worker, error)
}

// Worker analyzes layers on behalf of one goroutine.
type Worker interface {
	// Analyze inspects the stack's layer and may add attributes, tags,
	// a payload and child layers. A returned error is recorded on the
	// frame.
	Analyze(ctx *Context, s *layer.Stack) error
}

// Closer is implemented by workers holding resources. Sessions close
// their workers when they end.
type Closer interface {
	Close() error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx *Context, s *layer.Stack) error

func (f WorkerFunc) Analyze(ctx *Context, s *layer.Stack) error { return f(ctx, s) }

// Registry holds dissectors indexed by hint. It is safe for concurrent
// use.
type Registry struct {
	tokens     token.Interner
	byName     map[string]Dissector
	byHint     map[token.Token][]Dissector
	dissectors []Dissector
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(tokens token.Interner) *Registry {
	return &Registry{
		tokens: tokens,
		byName: make(map[string]Dissector),
		byHint: make(map[token.Token][]Dissector),
	}
}

// Register adds d. Names must be unique.
func (r *Registry) Register(d Dissector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[d.Name()]; ok {
		return errors.New(errors.PhaseDissect, errors.KindInvalidInput).
			Detail("dissector %q already registered", d.Name()).
			Build()
	}
	r.byName[d.Name()] = d
	r.dissectors = append(r.dissectors, d)
	for _, hint := range d.Hints() {
		id := r.tokens.Literal(hint)
		r.byHint[id] = append(r.byHint[id], d)
	}
	return nil
}

// Get returns the dissector registered under name.
func (r *Registry) Get(name string) (Dissector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// For returns the dissectors hinted at id in registration order.
func (r *Registry) For(id token.Token) []Dissector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Dissector(nil), r.byHint[id]...)
}

// Dissectors returns every dissector in registration order.
func (r *Registry) Dissectors() []Dissector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Dissector(nil), r.dissectors...)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
