// Package plugin runs dissectors compiled to WebAssembly.
//
// A guest imports the host primitives from the "genet" module (see package
// abi) and exports
//
//	analyze(stack i32, ctx i32) -> i32
//
// which receives a stack handle and a context handle and returns zero on
// success. Every worker owns a wazero runtime, a host and a guest
// instance; compiled code is shared through a compilation cache. Handles
// created while analyzing a layer are released when the call returns.
package plugin
