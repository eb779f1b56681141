package dissector

import (
	"go.uber.org/zap"

	"github.com/wippyai/dissect-runtime/token"
	"github.com/wippyai/dissect-runtime/variant"
)

// Context is the per-goroutine state handed to workers. It is not safe
// for concurrent use.
type Context struct {
	tokens  token.Interner
	logger  *zap.Logger
	options variant.Variant
	worker  int
}

// NewContext creates a context. options is normally a map keyed by
// dissector name.
func NewContext(tokens token.Interner, options variant.Variant, logger *zap.Logger) *Context {
	if logger == nil {
		logger = Logger()
	}
	return &Context{tokens: tokens, options: options, logger: logger}
}

func (c *Context) Tokens() token.Interner { return c.tokens }

func (c *Context) Logger() *zap.Logger { return c.logger }

// Worker returns the index of the pool goroutine owning the context.
func (c *Context) Worker() int { return c.worker }

// Token interns s.
func (c *Context) Token(s string) token.Token {
	return c.tokens.Literal(s)
}

// Option looks up a dotted path in the options, e.g. "udp.ports".
func (c *Context) Option(path string) (variant.Variant, bool) {
	return c.options.Path(path)
}

// Options returns a copy of the whole option tree.
func (c *Context) Options() variant.Variant {
	return c.options.Clone()
}
