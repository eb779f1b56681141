package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCast    Phase = "cast"    // bytes to value
	PhaseLayer   Phase = "layer"   // layer and attribute binding
	PhaseStack   Phase = "stack"   // child ownership and depth
	PhaseResolve Phase = "resolve" // plugin symbol resolution
	PhaseABI     Phase = "abi"     // host calls across the module boundary
	PhaseDissect Phase = "dissect" // engine pipeline
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindShortBuffer     Kind = "short_buffer"
	KindInvalidEncoding Kind = "invalid_encoding"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindTypeMismatch    Kind = "type_mismatch"
	KindMissingSymbol   Kind = "missing_symbol"
	KindDepthExceeded   Kind = "depth_exceeded"
	KindMoved           Kind = "moved"
	KindInvalidHandle   Kind = "invalid_handle"
	KindInvalidInput    Kind = "invalid_input"
	KindUnsupported     Kind = "unsupported"
	KindNotFound        Kind = "not_found"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Attr   string
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	switch {
	case e.Attr != "":
		b.WriteString(" at ")
		b.WriteString(e.Attr)
	case len(e.Path) > 0:
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(" (")
		b.WriteString(e.Type)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsDecode reports whether err is a cast decode failure.
func IsDecode(err error) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	return e.Phase == PhaseCast
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the lookup path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Attr sets the attribute id
func (b *Builder) Attr(id string) *Builder {
	b.err.Attr = id
	return b
}

// Type sets the attribute type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ShortBuffer creates a decode error for data shorter than the representation
func ShortBuffer(attr string, want, have int) *Error {
	return &Error{
		Phase:  PhaseCast,
		Kind:   KindShortBuffer,
		Attr:   attr,
		Detail: fmt.Sprintf("need %d bytes, have %d", want, have),
		Value:  have,
	}
}

// InvalidEncoding creates a decode error for bytes that do not encode the output type
func InvalidEncoding(attr, typ, detail string) *Error {
	return &Error{
		Phase:  PhaseCast,
		Kind:   KindInvalidEncoding,
		Attr:   attr,
		Type:   typ,
		Detail: detail,
	}
}

// OutOfBounds creates an error for a bit range outside its buffer
func OutOfBounds(phase Phase, attr string, bit, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Attr:   attr,
		Detail: fmt.Sprintf("bit %d out of bounds (buffer %d bits)", bit, length),
		Value:  bit,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, attr, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Attr:   attr,
		Type:   goType,
		Detail: fmt.Sprintf("%s cannot be represented as a variant", goType),
	}
}

// DepthExceeded creates an error for encapsulation nested past the limit
func DepthExceeded(depth, limit int) *Error {
	return &Error{
		Phase:  PhaseStack,
		Kind:   KindDepthExceeded,
		Detail: fmt.Sprintf("depth %d exceeds limit %d", depth, limit),
		Value:  depth,
	}
}

// Moved creates an error for a handle whose value was already transferred
func Moved(what string) *Error {
	return &Error{
		Phase:  PhaseStack,
		Kind:   KindMoved,
		Detail: fmt.Sprintf("%s already moved", what),
	}
}

// InvalidHandle creates an error for a stale or unknown handle
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid handle %#x", handle),
		Value:  handle,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported feature error
func Unsupported(phase Phase, feature string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf("%s not supported", feature),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingSymbol represents a single unresolved boundary symbol
type MissingSymbol struct {
	Name   string // e.g. "Token_join"
	Reason string // "not found" or a type description
}

// MissingSymbolsError is returned when a plugin cannot resolve its boundary symbols.
// It is fatal: the plugin must not finish initialization.
type MissingSymbolsError struct {
	Plugin  string
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error listing every unresolved symbol
func NewMissingSymbolsError(plugin string, symbols []MissingSymbol) *MissingSymbolsError {
	return &MissingSymbolsError{
		Plugin:  plugin,
		Symbols: symbols,
	}
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[resolve] missing_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString("[resolve] missing_symbol: ")
	if e.Plugin != "" {
		b.WriteString(e.Plugin)
		b.WriteString(": ")
	}
	b.WriteString(fmt.Sprintf("%d symbol(s) not resolved:", len(e.Symbols)))
	for _, s := range e.Symbols {
		b.WriteString("\n  - ")
		b.WriteString(s.Name)
		if s.Reason != "" {
			b.WriteString(" (")
			b.WriteString(s.Reason)
			b.WriteByte(')')
		}
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	if _, ok := target.(*MissingSymbolsError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseResolve && t.Kind == KindMissingSymbol
	}
	return false
}

// Config creates a configuration error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
