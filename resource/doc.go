// Package resource provides generation-checked handle tables for host
// objects that cross the plugin boundary.
//
// A plugin never sees Go pointers. Layers, stacks, attributes, variants and
// contexts are stored in a table and referred to by a 32-bit Handle:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h := table.Insert(resource.KindLayer, l)
//
//	// Retrieve value by handle
//	value, ok := table.Get(h)
//
//	// Remove and get value (for ownership transfer)
//	value, ok := table.Remove(h)
//
// # Generations
//
// A Handle packs a slot index and the slot's generation. Removing a value
// bumps the generation, so handles kept after removal or ownership transfer
// fail lookup even when the slot is reused:
//
//	h1 := table.Insert(resource.KindLayer, a)
//	table.Remove(h1)
//	h2 := table.Insert(resource.KindLayer, b) // same slot
//	table.Get(h1)                             // false
//
// # Kinds
//
// Each handle is tagged with a Kind and GetKind rejects a handle of
// another kind:
//
//	value, ok := table.GetKind(h, resource.KindVariant)
//
// For a single Go type use Typed:
//
//	layers := resource.NewTyped[*layer.Layer](table, resource.KindLayer)
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %v", e.Type, e.Handle)
//	}))
//
// # Memory Management
//
// Values are not garbage collected while a handle refers to them. The host
// removes per-packet handles when the packet is done, or calls Clear.
package resource
