// Package token interns names into small integer handles.
//
// A Token compares by integer equality, converts back to its string with
// an Interner, and two tokens can be joined into a new interned composite:
//
//	tokens := token.NewTable()
//	ipv4 := tokens.Literal("ipv4")
//	src := tokens.Join(ipv4, tokens.Literal("src")) // "ipv4.src"
//
// The zero Token is Null and always stands for the empty string.
//
// Core packages never reach for a global table. Every constructor that
// interns takes an Interner; Default exists for binaries that want one
// process-wide table, created on first use and never reset.
package token
