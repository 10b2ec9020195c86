package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseFetch     Phase = "fetch"     // remote asset retrieval
	PhaseParse     Phase = "parse"     // manifest/listing decoding
	PhaseLoad      Phase = "load"      // wasm compilation
	PhaseLink      Phase = "link"      // instantiation and ABI binding
	PhaseConstruct Phase = "construct" // module construction as a whole
	PhaseInit      Phase = "init"      // unit initialization
	PhaseRuntime   Phase = "runtime"   // control operations on a live unit
	PhaseCompute   Phase = "compute"   // per-block processing
	PhaseBoundary  Phase = "boundary"  // foreign interface marshaling
)

// Kind categorizes the error
type Kind string

const (
	KindUnreachable       Kind = "unreachable"
	KindInvalidData       Kind = "invalid_data"
	KindMissingExport     Kind = "missing_export"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindChannelMismatch   Kind = "channel_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindNotFound          Kind = "not_found"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidInput      Kind = "invalid_input"
	KindTrap              Kind = "trap"
	KindInstantiation     Kind = "instantiation"
	KindClosed            Kind = "closed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	URL    string
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

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.URL != "" {
		b.WriteString(" (")
		b.WriteString(e.URL)
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

// Path sets the element path (node index, export name, manifest field)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// URL sets the asset location involved
func (b *Builder) URL(u string) *Builder {
	b.err.URL = u
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

// Unreachable creates an error for an asset that could not be retrieved
func Unreachable(url string, cause error) *Error {
	return &Error{
		Phase: PhaseFetch,
		Kind:  KindUnreachable,
		URL:   url,
		Cause: cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(path []string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindInstantiation,
		Path:   path,
		Detail: "instantiate unit",
		Cause:  cause,
	}
}

// MissingExport creates an error for a unit lacking a required export
func MissingExport(path []string, name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindMissingExport,
		Path:   path,
		Detail: fmt.Sprintf("required export %q not found", name),
	}
}

// SignatureMismatch creates an error for an export whose core signature differs from the ABI
func SignatureMismatch(path []string, name, want, got string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindSignatureMismatch,
		Path:   path,
		Detail: fmt.Sprintf("export %q has signature %s, want %s", name, got, want),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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

// Trap wraps a failure raised while executing guest code
func Trap(phase Phase, fn string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Path:   []string{fn},
		Cause:  cause,
		Detail: "guest call failed",
	}
}

// Closed creates an error for use after release
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " is closed",
	}
}

// Construct collapses any construction-time failure into a single outcome
func Construct(module string, cause error) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   kindOf(cause),
		Detail: fmt.Sprintf("construct module %q", module),
		Cause:  cause,
	}
}

// kindOf returns the kind of the first structured error in the chain, or
// KindInvalidData when the chain carries none.
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInvalidData
}

// Sentinels for errors.Is matching on Phase+Kind.
var (
	ErrUnreachable   = &Error{Phase: PhaseFetch, Kind: KindUnreachable}
	ErrMalformed     = &Error{Phase: PhaseParse, Kind: KindInvalidData}
	ErrMissingExport = &Error{Phase: PhaseLink, Kind: KindMissingExport}
)

// IsConstruct reports whether err is a collapsed construction failure.
func IsConstruct(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Phase == PhaseConstruct
}
