package layer

import (
	"github.com/wippyai/dissect-runtime/attr"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/token"
)

// MaxDepth is the default nesting limit for Stack.Sub.
const MaxDepth = 32

// StackTable is the set of entry points for a children collection. The
// append runs in the collection's owner.
type StackTable struct {
	AddChild func(c *Children, l *Layer)
	Len      func(c *Children) int
	At       func(c *Children, i int) *Layer
}

var defaultStackTable = StackTable{
	AddChild: func(c *Children, l *Layer) { c.layers = append(c.layers, l) },
	Len:      func(c *Children) int { return len(c.layers) },
	At:       func(c *Children, i int) *Layer { return c.layers[i] },
}

// DefaultStackTable returns the in-process implementation.
func DefaultStackTable() *StackTable {
	t := defaultStackTable
	return &t
}

// Children is an append-only collection of layers owned by the caller of
// a dissection.
type Children struct {
	table  *StackTable
	layers []*Layer
}

// NewChildren creates an empty collection. A nil table selects
// DefaultStackTable.
func NewChildren(t *StackTable) *Children {
	if t == nil {
		t = DefaultStackTable()
	}
	return &Children{table: t}
}

func (c *Children) Len() int { return c.table.Len(c) }

// At returns the i-th layer in addition order.
func (c *Children) At(i int) *Layer { return c.table.At(c, i) }

// Layers returns the layers in addition order.
func (c *Children) Layers() []*Layer {
	n := c.Len()
	out := make([]*Layer, n)
	for i := range n {
		out[i] = c.At(i)
	}
	return out
}

// Owned is a move-only handle to a layer not yet placed in a stack.
type Owned struct {
	layer *Layer
}

// Own wraps a newly constructed layer.
func Own(l *Layer) *Owned {
	return &Owned{layer: l}
}

// Take moves the layer out of the handle. Later calls fail.
func (o *Owned) Take() (*Layer, error) {
	if o == nil || o.layer == nil {
		return nil, errors.Moved("layer")
	}
	l := o.layer
	o.layer = nil
	return l, nil
}

// Valid reports whether the handle still owns a layer.
func (o *Owned) Valid() bool {
	return o != nil && o.layer != nil
}

// Stack wraps the layer being analyzed and the collection its children
// are added to.
type Stack struct {
	layer    *Layer
	children *Children
	depth    int
	maxDepth int
	subs     map[*Layer]*Stack
}

// NewStack creates a depth-zero stack. A nil children collection is
// replaced with an empty default one.
func NewStack(children *Children, l *Layer) *Stack {
	if children == nil {
		children = NewChildren(nil)
	}
	return &Stack{layer: l, children: children, maxDepth: MaxDepth}
}

// WithMaxDepth sets the limit enforced by Sub. Values below one keep
// the current limit.
func (s *Stack) WithMaxDepth(n int) *Stack {
	if n > 0 {
		s.maxDepth = n
	}
	return s
}

func (s *Stack) Layer() *Layer { return s.layer }

func (s *Stack) Children() *Children { return s.children }

func (s *Stack) Depth() int { return s.depth }

func (s *Stack) MaxDepth() int { return s.maxDepth }

// CanSub reports whether Sub would stay within the depth limit.
func (s *Stack) CanSub() bool { return s.depth+1 <= s.maxDepth }

func (s *Stack) ID() token.Token { return s.layer.ID() }

func (s *Stack) Data() []byte { return s.layer.Data() }

func (s *Stack) Attrs() []*attr.Attr { return s.layer.Attrs() }

func (s *Stack) Attr(id token.Token) *attr.Attr { return s.layer.Attr(id) }

func (s *Stack) AddAttr(group []*attr.Class, byteRange attr.Range) {
	s.layer.AddAttr(group, byteRange)
}

func (s *Stack) Payload() []byte { return s.layer.Payload() }

func (s *Stack) SetPayload(data []byte) { s.layer.SetPayload(data) }

func (s *Stack) AddTag(tag token.Token) { s.layer.AddTag(tag) }

// AddChild moves the layer out of o into the children collection.
func (s *Stack) AddChild(o *Owned) error {
	l, err := o.Take()
	if err != nil {
		return err
	}
	s.children.table.AddChild(s.children, l)
	return nil
}

// Top returns the most recently added child, or nil.
func (s *Stack) Top() *Layer {
	n := s.children.Len()
	if n == 0 {
		return nil
	}
	return s.children.At(n - 1)
}

// Bottom returns the first child, or nil.
func (s *Stack) Bottom() *Layer {
	if s.children.Len() == 0 {
		return nil
	}
	return s.children.At(0)
}

// Sub returns a stack for child one level deeper, with its own children
// collection using the same table. Repeated calls for the same child
// return the same stack, so children added through it stay reachable.
func (s *Stack) Sub(child *Layer) (*Stack, error) {
	if sub, ok := s.subs[child]; ok {
		return sub, nil
	}
	depth := s.depth + 1
	if depth > s.maxDepth {
		return nil, errors.DepthExceeded(depth, s.maxDepth)
	}
	sub := &Stack{
		layer:    child,
		children: NewChildren(s.children.table),
		depth:    depth,
		maxDepth: s.maxDepth,
	}
	if s.subs == nil {
		s.subs = make(map[*Layer]*Stack)
	}
	s.subs[child] = sub
	return sub, nil
}
