// Package abi is the boundary between the dissection core and dissector
// plugins.
//
// The core never implements token interning, option lookup, variant
// construction or layer growth on its own side of the boundary. It calls a
// fixed set of named primitives supplied by a Resolver:
//
//	syms, err := abi.Init(host)
//	if err != nil {
//	    // *errors.MissingSymbolsError: the plugin must not start
//	}
//	id := syms.TokenLiteral("udp")
//
// Host owns the single shared state behind those primitives: the token
// interner, the registered layer and attribute classes, and the handle
// table used when objects cross into WebAssembly guests.
//
// # WebAssembly
//
// Host.Instantiate exports the same primitives as the wazero host module
// "genet". Guests refer to layers, stacks, attributes, variants and
// contexts by resource handles, and pass strings and byte slices as
// (pointer, length) pairs into their own linear memory:
//
//	(import "genet" "Token_literal_" (func (param i32 i32) (result i32)))
//	(import "genet" "Layer_addTag"   (func (param i32 i32)))
//
// A failed guest memory access returns 0 and is logged; it never traps.
package abi
