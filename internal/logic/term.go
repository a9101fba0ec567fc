// Package logic implements the symbol algebra: terms, predicates, and
// Horn-clause formulas, with equality, ordering, and canonicalization.
package logic

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Kind discriminates the variants of a Term.
type Kind int

const (
	KindVariable Kind = iota
	KindString
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// freshCounter hands out globally unique identities to variables created
// before canonicalization, the way object identity would in the source
// pattern this algebra generalizes (see DESIGN.md).
var freshCounter uint64

// NewVar returns a fresh, not-yet-canonical variable. Two calls to NewVar
// never produce equal variables; canonicalization is what gives variables
// their stable, comparable identity (a 0..255 index).
func NewVar() Term {
	id := atomic.AddUint64(&freshCounter, 1)
	return Term{kind: KindVariable, fresh: id}
}

// String builds a constant string term.
func String(s string) Term {
	return Term{kind: KindString, str: s}
}

// Number builds a constant numeric term. It does not itself reject NaN or
// infinities; that check happens at encode time (see internal/codec),
// matching spec.md's "NaN forbidden at encode time".
func Number(n float64) Term {
	return Term{kind: KindNumber, num: n}
}

// Bool builds a constant boolean term.
func Bool(b bool) Term {
	return Term{kind: KindBoolean, boolean: b}
}

// indexed constructs an already-canonical variable with the given index.
func indexed(i uint8) Term {
	return Term{kind: KindVariable, canonical: true, index: i}
}

// IndexedVar constructs an already-canonical variable with the given
// index directly. It exists for callers (notably internal/codec) that
// reconstruct a previously-canonicalized formula and therefore already
// know the variable's index, rather than assigning one via
// Canonicalize.
func IndexedVar(i uint8) Term {
	return indexed(i)
}

// Term is a sum type: a variable (fresh or canonical) or a constant
// (string, number, boolean).
type Term struct {
	kind Kind

	// variable fields
	canonical bool   // true once assigned a canonical index
	fresh     uint64 // identity before canonicalization
	index     uint8  // identity after canonicalization, 0..255

	// constant fields
	str     string
	num     float64
	boolean bool
}

// Kind reports the term's variant.
func (t Term) Kind() Kind { return t.kind }

// IsVariable reports whether t is a variable (fresh or canonical).
func (t Term) IsVariable() bool { return t.kind == KindVariable }

// IsConstant reports whether t is a string, number, or boolean.
func (t Term) IsConstant() bool { return t.kind != KindVariable }

// IsCanonical reports whether a variable term has been assigned a
// canonical index. Always true for constants.
func (t Term) IsCanonical() bool { return t.kind != KindVariable || t.canonical }

// Index returns the canonical index of a canonical variable.
func (t Term) Index() (uint8, bool) {
	if t.kind == KindVariable && t.canonical {
		return t.index, true
	}
	return 0, false
}

// FreshID returns the pre-canonical identity of a not-yet-canonical
// variable.
func (t Term) FreshID() (uint64, bool) {
	if t.kind == KindVariable && !t.canonical {
		return t.fresh, true
	}
	return 0, false
}

// StringValue returns the payload of a string constant.
func (t Term) StringValue() (string, bool) {
	if t.kind == KindString {
		return t.str, true
	}
	return "", false
}

// NumberValue returns the payload of a number constant.
func (t Term) NumberValue() (float64, bool) {
	if t.kind == KindNumber {
		return t.num, true
	}
	return 0, false
}

// BoolValue returns the payload of a boolean constant.
func (t Term) BoolValue() (bool, bool) {
	if t.kind == KindBoolean {
		return t.boolean, true
	}
	return false, false
}

// varKey is the comparable identity of a variable, used by the
// canonicalizer's first-occurrence map. It does not distinguish between
// fresh and canonical variables created from unrelated sources; callers
// are expected to canonicalize one formula's variables in one pass.
type varKey struct {
	canonical bool
	id        uint64
}

func (t Term) key() varKey {
	if t.canonical {
		return varKey{canonical: true, id: uint64(t.index)}
	}
	return varKey{canonical: false, id: t.fresh}
}

// Equal reports deep equality. Two non-canonical variables are equal iff
// they share identity; two canonical variables are equal iff they share
// index; a non-canonical and a canonical variable are never equal.
func (t Term) Equal(other Term) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindVariable:
		if t.canonical != other.canonical {
			return false
		}
		if t.canonical {
			return t.index == other.index
		}
		return t.fresh == other.fresh
	case KindString:
		return t.str == other.str
	case KindNumber:
		return t.num == other.num
	case KindBoolean:
		return t.boolean == other.boolean
	default:
		return false
	}
}

// rank orders term variants: variable < string < number < boolean. The
// ordering among constant kinds is arbitrary but fixed, since spec.md
// only pins down variable < constant and false < true within booleans.
func (t Term) rank() int {
	switch t.kind {
	case KindVariable:
		return 0
	case KindString:
		return 1
	case KindNumber:
		return 2
	case KindBoolean:
		return 3
	default:
		return 4
	}
}

// Compare gives a total order over canonical terms: variable < constant,
// then payload. Comparing two non-canonical variables falls back to their
// fresh identity, which is not a stable order across formulas — callers
// should only compare terms within an already-canonicalized formula.
func (t Term) Compare(other Term) int {
	if d := t.rank() - other.rank(); d != 0 {
		return d
	}
	switch t.kind {
	case KindVariable:
		if t.canonical {
			if t.index < other.index {
				return -1
			} else if t.index > other.index {
				return 1
			}
			return 0
		}
		if t.fresh < other.fresh {
			return -1
		} else if t.fresh > other.fresh {
			return 1
		}
		return 0
	case KindString:
		switch {
		case t.str < other.str:
			return -1
		case t.str > other.str:
			return 1
		default:
			return 0
		}
	case KindNumber:
		switch {
		case t.num < other.num:
			return -1
		case t.num > other.num:
			return 1
		default:
			return 0
		}
	case KindBoolean:
		// false < true, matching the SQL engine's 0 < 1.
		a, b := 0, 0
		if t.boolean {
			a = 1
		}
		if other.boolean {
			b = 1
		}
		return a - b
	default:
		return 0
	}
}

// String renders a term for diagnostics; it is not the codec's wire
// format (see internal/codec).
func (t Term) String() string {
	switch t.kind {
	case KindVariable:
		if t.canonical {
			return fmt.Sprintf("?%d", t.index)
		}
		return fmt.Sprintf("?fresh%d", t.fresh)
	case KindString:
		return strconv.Quote(t.str)
	case KindNumber:
		return strconv.FormatFloat(t.num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(t.boolean)
	default:
		return "<invalid term>"
	}
}

// IsFiniteNumber reports whether a number term is finite (not NaN or
// +/-Inf). Non-number terms report true since the check does not apply.
func (t Term) IsFiniteNumber() bool {
	if t.kind != KindNumber {
		return true
	}
	return !math.IsNaN(t.num) && !math.IsInf(t.num, 0)
}
