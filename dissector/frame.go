package dissector

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/token"
)

// Node is a layer and the layers decoded from it.
type Node struct {
	Layer    *layer.Layer
	Children []*Node
	Depth    int
}

// Frame is the result of dissecting one packet.
type Frame struct {
	ID     uuid.UUID
	Root   *Node
	Errors []*Error
	Index  int
}

func newFrame(index int, root *layer.Layer) *Frame {
	return &Frame{
		ID:    uuid.New(),
		Index: index,
		Root:  &Node{Layer: root},
	}
}

// Layers returns every layer in depth-first order, the root first.
func (f *Frame) Layers() []*layer.Layer {
	var out []*layer.Layer
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n.Layer)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(f.Root)
	return out
}

// Layer returns the first layer with id in depth-first order, or nil.
func (f *Frame) Layer(id token.Token) *layer.Layer {
	for _, l := range f.Layers() {
		if l.ID() == id {
			return l
		}
	}
	return nil
}

// Leaf returns the innermost layer along the last child chain.
func (f *Frame) Leaf() *layer.Layer {
	n := f.Root
	for len(n.Children) > 0 {
		n = n.Children[len(n.Children)-1]
	}
	return n.Layer
}

// Error is a failure of one worker on one layer.
type Error struct {
	Err       error
	Dissector string
	Layer     token.Token
	Depth     int
}

func (e *Error) Error() string {
	if e.Dissector == "" {
		return fmt.Sprintf("layer %d (depth %d): %v", e.Layer, e.Depth, e.Err)
	}
	return fmt.Sprintf("%s on layer %d (depth %d): %v", e.Dissector, e.Layer, e.Depth, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
