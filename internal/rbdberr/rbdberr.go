// Package rbdberr defines the typed error taxonomy used across the
// engine, distinguishing conditions callers must recognize and react to
// (a missing relation the cursor should rescue and resume past) from
// ordinary wrapped failures callers only log or surface.
package rbdberr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code discriminates the recognized error conditions of spec.md §7.
type Code int

const (
	_ Code = iota
	CodeUnsafeVariables
	CodeTooManyVariables
	CodeEncodingError
	CodeUnknownPredicate
	CodeDuplicateAssertion
	CodeUnsupportedQuery
	CodeUnsupportedTermType
	CodeQuotedColumnNotSupported
	CodeWrongParameterCount
	CodeMissingRelation
)

func (c Code) String() string {
	switch c {
	case CodeUnsafeVariables:
		return "unsafe_variables"
	case CodeTooManyVariables:
		return "too_many_variables"
	case CodeEncodingError:
		return "encoding_error"
	case CodeUnknownPredicate:
		return "unknown_predicate"
	case CodeDuplicateAssertion:
		return "duplicate_assertion"
	case CodeUnsupportedQuery:
		return "unsupported_query"
	case CodeUnsupportedTermType:
		return "unsupported_term_type"
	case CodeQuotedColumnNotSupported:
		return "quoted_column_not_supported"
	case CodeWrongParameterCount:
		return "wrong_parameter_count"
	case CodeMissingRelation:
		return "missing_relation"
	default:
		return "unknown"
	}
}

// Error is the concrete type behind every sentinel below. It carries a
// Code so callers can branch on `errors.As` without string matching,
// plus whatever stack/cause github.com/pkg/errors attached when it was
// built.
type Error struct {
	Code    Code
	Message string
	// Name carries the predicate name for the three codes that name one
	// (CodeUnknownPredicate, CodeMissingRelation, CodeDuplicateAssertion),
	// so callers like internal/cursor can recover it without re-parsing
	// Message.
	Name  string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// newErr builds a stack-annotated *Error, the taxonomy's single constructor.
func newErr(code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: errors.New(message)}
}

// Wrap annotates err with a Code while preserving its chain, so a
// caller can both `errors.As` to the taxonomy and `errors.Cause` through
// to the original failure (e.g. a *sqlite3.Error from the driver).
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, cause: errors.Wrap(err, message)}
}

// UnsafeVariables reports a rule whose head refers to a variable absent
// from its body (spec.md §3's safety invariant).
func UnsafeVariables(indices []uint8) *Error {
	return newErr(CodeUnsafeVariables, fmt.Sprintf("unsafe head variables at indices %v", indices))
}

// TooManyVariables reports a formula using more than logic.MaxVariables
// distinct variables.
func TooManyVariables() *Error {
	return newErr(CodeTooManyVariables, "formula uses more than the maximum number of variables")
}

// EncodingError reports a term the codec cannot serialize (a
// non-canonical variable, a non-finite number, or an unrecognized wire
// shape on decode).
func EncodingError(err error) *Error {
	return Wrap(CodeEncodingError, err, "formula encoding error")
}

// UnknownPredicate reports an assertion or query naming a predicate that
// has no corresponding `_predicate` row.
func UnknownPredicate(name string) *Error {
	e := newErr(CodeUnknownPredicate, fmt.Sprintf("unknown predicate %q", name))
	e.Name = name
	return e
}

// DuplicateAssertion reports either a `CREATE TABLE` (without `IF NOT
// EXISTS`) declaring a predicate that already exists, or an assertion
// whose formula is already stored; name is the predicate involved.
func DuplicateAssertion(name string) *Error {
	e := newErr(CodeDuplicateAssertion, fmt.Sprintf("predicate %q already declared, or formula already asserted", name))
	e.Name = name
	return e
}

// UnsupportedQuery reports a shape the engine does not compile (e.g. a
// query formula with a non-empty body, a rule with an empty body handed
// to the rule compiler, or a CREATE TABLE with no column list).
func UnsupportedQuery(reason string) *Error {
	return newErr(CodeUnsupportedQuery, fmt.Sprintf("unsupported query: %s", reason))
}

// UnsupportedTermType reports a constant term whose Go type the SQL
// layer cannot bind (anything outside string/float64/bool).
func UnsupportedTermType(kind fmt.Stringer) *Error {
	return newErr(CodeUnsupportedTermType, fmt.Sprintf("unsupported term type %s", kind))
}

// QuotedColumnNotSupported reports a CREATE TABLE statement naming a
// quoted or bracketed column, which spec.md §4.5 places out of scope
// for the DDL interceptor.
func QuotedColumnNotSupported(column string) *Error {
	return newErr(CodeQuotedColumnNotSupported, fmt.Sprintf("quoted column %q is not supported", column))
}

// WrongParameterCount reports a cursor call whose argument count does
// not match the total `?` placeholder count across all of its
// statements, whether too few or too many arguments were given.
func WrongParameterCount(want, got int) *Error {
	return newErr(CodeWrongParameterCount, fmt.Sprintf("statement expects %d parameters, got %d", want, got))
}

// MissingRelation reports the one *recoverable* condition in the
// taxonomy: a query referenced a predicate whose view/trigger pair has
// not been materialized yet. The cursor builds it from the SQLite
// driver's "no such table" text in one place (classifyEngineError),
// branches on its Code from there on, and after materializing the view
// re-runs the failing statement from its start (spec.md §4.7).
func MissingRelation(name string) *Error {
	e := newErr(CodeMissingRelation, fmt.Sprintf("missing relation for predicate %q", name))
	e.Name = name
	return e
}

// Is reports whether err carries the given Code, looking through any
// wrap chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
