// Package attr implements bit-addressed attributes and their cast pipeline.
//
// A Class describes one field: its id token, aliases, type, declared bit
// range and the Cast that turns the field's bytes into a variant.Variant.
// Classes are built once and shared by every layer of a protocol.
//
// An Attr binds a Class to an effective bit range and a backing buffer.
// Its value is computed on demand: every Value call re-runs the cast
// against the stored range and the current buffer contents.
//
// # Casts
//
// Cast is the type-erased form used by classes. Typed[T] is a narrower cast
// with a concrete output and a default bit width, used to lay out records:
//
//	port := attr.Map(attr.Uint16, func(v uint16) string {
//		return strconv.Itoa(int(v))
//	})
//	class := attr.NewBuilder(tokens.Literal("udp.src")).
//		BitRange(attr.Range{Start: 0, End: 16}).
//		Cast(port).
//		Build()
//
// Box is the uniform, duplicable wrapper stored in a Class. Box.Clone
// rebuilds Mapped chains node by node so a duplicate never shares mutable
// state with the original. Functions passed to Map must only capture plain,
// copyable data; they are called concurrently from every goroutine that
// reads the attribute.
//
// # Layout
//
// Layout turns an ordered list of Field declarations into Classes with
// consecutive bit offsets and dotted ids.
package attr
