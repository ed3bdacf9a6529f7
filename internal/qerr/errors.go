// Package qerr defines the error taxonomy shared by every compilation stage.
//
// Every stage fails fast: the first error aborts the whole compilation and is
// returned to the caller unchanged (possibly wrapped with %w). Callers classify
// errors with the Is* helpers, which use errors.As and therefore see through
// wrapping.
//
// Error kinds:
//   - UNRESOLVED_NAME: entity, alias, attribute or constant reference not found
//   - SEMANTIC: names resolve but the query is invalid (alias collision,
//     MEMBER OF on a non-collection, TREAT target not an entity, ...)
//   - STRUCTURAL_PARSE: the parse tree violates a shape the builder relies on
//   - NOT_YET_IMPLEMENTED: recognised but unsupported construct
//   - LITERAL_FORMAT: literal text does not parse as its declared kind
//
// Internal invariant violations use InvariantError instead so that tooling
// can report them as defects rather than bad input.
package qerr

import (
	"errors"
	"fmt"
)

// Kind categorizes compilation errors.
type Kind string

const (
	// KindUnresolvedName indicates a name could not be resolved at any precedence level.
	KindUnresolvedName Kind = "UNRESOLVED_NAME"

	// KindSemantic indicates a semantically invalid query.
	KindSemantic Kind = "SEMANTIC"

	// KindStructuralParse indicates a parse tree shape the builder does not accept.
	KindStructuralParse Kind = "STRUCTURAL_PARSE"

	// KindNotYetImplemented indicates a valid but unsupported construct.
	KindNotYetImplemented Kind = "NOT_YET_IMPLEMENTED"

	// KindLiteralFormat indicates a literal whose text does not parse.
	KindLiteralFormat Kind = "LITERAL_FORMAT"
)

// Error is a user-facing compilation error.
//
// Fragment carries the offending source fragment (alias, path text or
// literal text) when one is known.
type Error struct {
	Kind     Kind
	Message  string
	Fragment string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Kind, e.Message, e.Fragment)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InvariantError reports an internal invariant violation: a metamodel or
// lowering defect, never a problem with the query text.
type InvariantError struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "INVARIANT: " + e.Message
}

// Unresolved creates an UNRESOLVED_NAME error for the given fragment.
func Unresolved(fragment, format string, args ...any) *Error {
	return &Error{Kind: KindUnresolvedName, Message: fmt.Sprintf(format, args...), Fragment: fragment}
}

// Semantic creates a SEMANTIC error for the given fragment.
func Semantic(fragment, format string, args ...any) *Error {
	return &Error{Kind: KindSemantic, Message: fmt.Sprintf(format, args...), Fragment: fragment}
}

// Structural creates a STRUCTURAL_PARSE error.
func Structural(format string, args ...any) *Error {
	return &Error{Kind: KindStructuralParse, Message: fmt.Sprintf(format, args...)}
}

// NotYetImplemented creates a NOT_YET_IMPLEMENTED error naming the construct.
func NotYetImplemented(construct string) *Error {
	return &Error{Kind: KindNotYetImplemented, Message: "not yet implemented", Fragment: construct}
}

// LiteralFormat creates a LITERAL_FORMAT error carrying the literal text.
func LiteralFormat(text, target string, cause error) *Error {
	return &Error{
		Kind:     KindLiteralFormat,
		Message:  fmt.Sprintf("unable to convert query literal to %s", target),
		Fragment: text,
		Cause:    cause,
	}
}

// Invariant creates an InvariantError.
func Invariant(format string, args ...any) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a compilation error, or "" for other errors.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}

// IsUnresolvedName reports whether err is an UNRESOLVED_NAME error.
func IsUnresolvedName(err error) bool {
	return KindOf(err) == KindUnresolvedName
}

// IsSemantic reports whether err is a SEMANTIC error.
func IsSemantic(err error) bool {
	return KindOf(err) == KindSemantic
}

// IsStructural reports whether err is a STRUCTURAL_PARSE error.
func IsStructural(err error) bool {
	return KindOf(err) == KindStructuralParse
}

// IsNotYetImplemented reports whether err is a NOT_YET_IMPLEMENTED error.
func IsNotYetImplemented(err error) bool {
	return KindOf(err) == KindNotYetImplemented
}

// IsLiteralFormat reports whether err is a LITERAL_FORMAT error.
func IsLiteralFormat(err error) bool {
	return KindOf(err) == KindLiteralFormat
}

// IsInvariant reports whether err is an internal invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
