// Package layer implements decoded protocol layers and the stacks that
// collect them.
//
// A Class describes a layer kind: its static header attributes and the
// dispatch Table through which every Layer operation runs. Layers created
// in one component can be read and mutated from another that only knows
// the Table's shape.
//
// A Stack wraps the layer under analysis together with the caller-owned
// collection of child layers. Children are added through move-only Owned
// handles, and the collection only grows.
//
// Type derives a Class from a record of attr.Field declarations.
package layer
