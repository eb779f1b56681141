package token

import (
	"strings"
	"sync"
)

// Token is an interned name handle.
type Token uint32

// Null is the token of the empty string.
const Null Token = 0

// Interner maps names to tokens and back.
type Interner interface {
	// Literal returns the token for s, interning it on first use.
	Literal(s string) Token

	// String returns the name of t, or "" for unknown tokens.
	String(t Token) string

	// Join returns the token of a composite path built from a and b.
	Join(a, b Token) Token
}

// Table is a thread-safe Interner.
type Table struct {
	ids   map[string]Token
	names []string
	mu    sync.RWMutex
}

// NewTable creates an empty table. Null is pre-registered.
func NewTable() *Table {
	return &Table{
		ids:   map[string]Token{"": Null},
		names: []string{""},
	}
}

// Literal returns the token for s.
func (t *Table) Literal(s string) Token {
	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	if ok {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[s]; ok {
		return id
	}
	id = Token(len(t.names))
	t.ids[s] = id
	t.names = append(t.names, s)
	return id
}

// String returns the name of tok.
func (t *Table) String(tok Token) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(tok) >= len(t.names) {
		return ""
	}
	return t.names[tok]
}

// Join builds a dotted path. A suffix that already starts with "."
// is appended as is; Null on either side yields the other token.
func (t *Table) Join(a, b Token) Token {
	if a == Null {
		return b
	}
	if b == Null {
		return a
	}
	return t.Literal(JoinPath(t.String(a), t.String(b)))
}

// Len returns the number of interned names, including the empty one.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// JoinPath applies the Join rule to plain strings.
func JoinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case strings.HasPrefix(b, "."):
		return a + b
	default:
		return a + "." + b
	}
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the process-wide table.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}
