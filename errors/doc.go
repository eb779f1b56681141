// Package errors provides structured error types for the dissect runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the attribute path, the expected value type and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCast, errors.KindShortBuffer).
//		Attr("ipv4.src").
//		Type("@ipv4:addr").
//		Detail("need 4 bytes, have 2").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ShortBuffer("ipv4.src", 4, 2)
//	err := errors.OutOfBounds(errors.PhaseLayer, "udp.dst", 64, 32)
//
// The package separates three outcomes:
//
//   - decode errors: a cast could not produce a value (short buffer, bad encoding)
//   - lookup misses: not errors at all; lookups return nil or ok == false
//   - resolution failures: a named boundary symbol is missing at plugin init
//     (see MissingSymbolsError), which is fatal for that plugin
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
