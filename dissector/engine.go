package dissector

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Config controls an Engine.
type Config struct {
	// Options is the option tree visible through Context.Option.
	Options variant.Variant
	// Workers is the DissectAll pool size. Values below one mean one.
	Workers int
	// MaxDepth bounds layer nesting. Zero means layer.MaxDepth.
	MaxDepth int
	// StopOnError ends dissection of a packet at the first worker error.
	StopOnError bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine dissects packets with the dissectors of a registry.
type Engine struct {
	tokens   token.Interner
	registry *Registry
	logger   *zap.Logger
	links    map[token.Token]*layer.Class
	cfg      Config
	mu       sync.Mutex
}

// New creates an engine.
func New(tokens token.Interner, registry *Registry, cfg Config, opts ...Option) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = layer.MaxDepth
	}
	e := &Engine{
		tokens:   tokens,
		registry: registry,
		cfg:      cfg,
		links:    make(map[token.Token]*layer.Class),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = Logger()
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Tokens() token.Interner { return e.tokens }

// linkClass returns the header-only class of root layers for link.
func (e *Engine) linkClass(link token.Token) *layer.Class {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.links[link]
	if !ok {
		c = layer.NewType(e.tokens, e.tokens.String(link), nil).Class()
		e.links[link] = c
	}
	return c
}

// Session owns one Context and one worker per dissector. It must be used
// by a single goroutine.
type Session struct {
	engine  *Engine
	ctx     *Context
	workers map[string]Worker
}

// NewSession creates the workers of every registered dissector.
func (e *Engine) NewSession(index int) (*Session, error) {
	ctx := NewContext(e.tokens, e.cfg.Options, e.logger.With(zap.Int("worker", index)))
	ctx.worker = index

	s := &Session{engine: e, ctx: ctx, workers: make(map[string]Worker)}
	for _, d := range e.registry.Dissectors() {
		w, err := d.NewWorker(ctx)
		if err != nil {
			s.Close()
			return nil, errors.New(errors.PhaseDissect, errors.KindInvalidInput).
				Detail("create worker for %s", d.Name()).
				Cause(err).
				Build()
		}
		s.workers[d.Name()] = w
	}
	return s, nil
}

func (s *Session) Context() *Context { return s.ctx }

// Close closes the workers implementing Closer. The first error is
// returned; the rest are logged.
func (s *Session) Close() error {
	var first error
	for name, w := range s.workers {
		c, ok := w.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			if first == nil {
				first = err
				continue
			}
			s.ctx.logger.Warn("close worker", zap.String("dissector", name), zap.Error(err))
		}
	}
	s.workers = nil
	return first
}

// Dissect decodes one packet. The returned error is non-nil only when ctx
// is done; worker failures are recorded on the frame.
func (s *Session) Dissect(ctx context.Context, index int, link token.Token, data []byte) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := layer.New(s.engine.linkClass(link), data)
	root.SetPayload(data)
	frame := newFrame(index, root)

	stack := layer.NewStack(nil, root).WithMaxDepth(s.engine.cfg.MaxDepth)
	s.analyze(ctx, stack, frame.Root, frame)
	return frame, nil
}

// analyze runs the hinted workers on the stack's layer and descends into
// the children they added. It reports false when dissection must stop.
func (s *Session) analyze(ctx context.Context, stack *layer.Stack, node *Node, frame *Frame) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, d := range s.engine.registry.For(stack.ID()) {
		w, ok := s.workers[d.Name()]
		if !ok {
			continue
		}
		if err := w.Analyze(s.ctx, stack); err != nil {
			frame.Errors = append(frame.Errors, &Error{
				Err:       err,
				Dissector: d.Name(),
				Layer:     stack.ID(),
				Depth:     stack.Depth(),
			})
			s.ctx.logger.Debug("dissector failed",
				zap.String("dissector", d.Name()),
				zap.Int("packet", frame.Index),
				zap.Error(err))
			if s.engine.cfg.StopOnError {
				return false
			}
		}
	}

	for _, child := range stack.Children().Layers() {
		sub, err := stack.Sub(child)
		if err != nil {
			frame.Errors = append(frame.Errors, &Error{Err: err, Layer: child.ID(), Depth: stack.Depth() + 1})
			s.ctx.logger.Warn("layer nesting too deep",
				zap.Int("packet", frame.Index),
				zap.Error(err))
			if s.engine.cfg.StopOnError {
				return false
			}
			continue
		}
		n := &Node{Layer: child, Depth: sub.Depth()}
		node.Children = append(node.Children, n)
		if !s.analyze(ctx, sub, n, frame) {
			return false
		}
	}
	return true
}

// Dissect decodes one packet with a fresh session.
func (e *Engine) Dissect(ctx context.Context, index int, link token.Token, data []byte) (*Frame, error) {
	s, err := e.NewSession(0)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Dissect(ctx, index, link, data)
}

// DissectAll decodes packets on Config.Workers goroutines and returns the
// frames in packet order. When ctx is done, packets not yet started are
// skipped, their frames are nil, and ctx.Err() is returned.
func (e *Engine) DissectAll(ctx context.Context, link token.Token, packets [][]byte) ([]*Frame, error) {
	frames := make([]*Frame, len(packets))
	if len(packets) == 0 {
		return frames, nil
	}

	workers := min(e.cfg.Workers, len(packets))
	sessions := make([]*Session, workers)
	for i := range sessions {
		s, err := e.NewSession(i)
		if err != nil {
			for _, prev := range sessions[:i] {
				prev.Close()
			}
			return nil, err
		}
		sessions[i] = s
	}
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	jobs := make(chan int)
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f, err := s.Dissect(ctx, i, link, packets[i])
				if err != nil {
					continue
				}
				frames[i] = f
			}
		}()
	}

	e.logger.Debug("dissecting packets",
		zap.Int("packets", len(packets)),
		zap.Int("workers", workers))

feed:
	for i := range packets {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return frames, err
	}
	return frames, nil
}
