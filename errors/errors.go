package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild    Phase = "build"    // host context construction
	PhaseTable    Phase = "table"    // resource table access
	PhaseNetwork  Phase = "network"  // capability pool configuration
	PhaseSnapshot Phase = "snapshot" // state capture and persistence
	PhaseRestore  Phase = "restore"  // state reinstallation
	PhaseLimits   Phase = "limits"   // growth policy evaluation
	PhaseRuntime  Phase = "runtime"  // instantiation and calls
	PhaseLoad     Phase = "load"     // module compilation
	PhaseHost     Phase = "host"     // host-call implementations
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindTypeMismatch      Kind = "type_mismatch"
	KindExhausted         Kind = "exhausted"
	KindShapeMismatch     Kind = "shape_mismatch"
	KindSizeMismatch      Kind = "size_mismatch"
	KindGrowthDenied      Kind = "growth_denied"
	KindAccessDenied      Kind = "access_denied"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidInput      Kind = "invalid_input"
	KindClosed            Kind = "closed"
	KindInstantiation     Kind = "instantiation"
	KindContractViolation Kind = "contract_violation"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Resource string
	Expected string
	Actual   string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Resource != "" {
		b.WriteString(" at ")
		b.WriteString(e.Resource)
	}

	if e.Expected != "" || e.Actual != "" {
		b.WriteString(": expected ")
		b.WriteString(orUnknown(e.Expected))
		b.WriteString(", got ")
		b.WriteString(orUnknown(e.Actual))
	}

	if e.Detail != "" {
		if e.Expected != "" || e.Actual != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Sentinels for errors.Is matching on kind regardless of phase.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrTypeMismatch  = &Error{Kind: KindTypeMismatch}
	ErrExhausted     = &Error{Kind: KindExhausted}
	ErrShapeMismatch = &Error{Kind: KindShapeMismatch}
	ErrSizeMismatch  = &Error{Kind: KindSizeMismatch}
	ErrGrowthDenied  = &Error{Kind: KindGrowthDenied}
	ErrAccessDenied  = &Error{Kind: KindAccessDenied}
	ErrClosed        = &Error{Kind: KindClosed}
	ErrInvalidData   = &Error{Kind: KindInvalidData}
)

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

// Resource names the logical resource the error concerns
func (b *Builder) Resource(name string) *Builder {
	b.err.Resource = name
	return b
}

// Expected sets the expected shape, kind or size
func (b *Builder) Expected(format string, args ...any) *Builder {
	b.err.Expected = fmt.Sprintf(format, args...)
	return b
}

// Actual sets the observed shape, kind or size
func (b *Builder) Actual(format string, args ...any) *Builder {
	b.err.Actual = fmt.Sprintf(format, args...)
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotFound,
		Resource: name,
		Detail:   fmt.Sprintf("%s not found", what),
	}
}

// TypeMismatch creates a kind mismatch error
func TypeMismatch(phase Phase, resource, expected, actual string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Resource: resource,
		Expected: expected,
		Actual:   actual,
	}
}

// Exhausted creates a capacity exhaustion error
func Exhausted(phase Phase, what string, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("%s capacity of %d exhausted", what, limit),
		Value:  limit,
	}
}

// ShapeMismatch creates a count mismatch error
func ShapeMismatch(phase Phase, what string, expected, actual int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindShapeMismatch,
		Resource: what,
		Expected: fmt.Sprintf("%d", expected),
		Actual:   fmt.Sprintf("%d", actual),
	}
}

// SizeMismatch creates a byte size mismatch error
func SizeMismatch(phase Phase, what string, expected, actual uint64) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindSizeMismatch,
		Resource: what,
		Expected: fmt.Sprintf("at least %d bytes", expected),
		Actual:   fmt.Sprintf("%d bytes", actual),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
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

// AccessDenied creates a capability denial error
func AccessDenied(phase Phase, resource, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindAccessDenied,
		Resource: resource,
		Detail:   detail,
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

// Context wraps cause with the name of the logical resource being processed,
// keeping the cause's phase and kind when it is already structured.
func Context(phase Phase, resource string, cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return &Error{
			Phase:    phase,
			Kind:     e.Kind,
			Resource: resource,
			Cause:    cause,
		}
	}
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidData,
		Resource: resource,
		Cause:    cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
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

// ContractViolation formats the panic message used for programming errors
// that must abort rather than be handled.
func ContractViolation(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindContractViolation,
		Detail: detail,
	}
}
