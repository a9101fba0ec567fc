package logic

import "strings"

// Formula is a Horn clause: one positive head predicate and an ordered
// sequence of negative body predicates. An empty body with a ground head
// is a fact; a non-empty body (regardless of head groundness) is a rule.
type Formula struct {
	Head Predicate
	Body []Predicate
}

// NewFact builds a Horn clause with no body. It does not check that the
// head is ground: with a ground head the result is a fact, otherwise it
// is a query pattern.
func NewFact(head Predicate) Formula {
	return Formula{Head: head}
}

// NewRule builds a rule formula.
func NewRule(head Predicate, body ...Predicate) Formula {
	return Formula{Head: head, Body: append([]Predicate(nil), body...)}
}

// IsFact reports whether f has no body and a ground head.
func (f Formula) IsFact() bool {
	return len(f.Body) == 0 && f.Head.Ground()
}

// IsQuery reports whether f has no body — a "question pattern" formula
// fit for §4.4's query compilation, whether or not the head is ground.
func (f Formula) IsQuery() bool {
	return len(f.Body) == 0
}

// Equal reports deep equality of head and body, in order. It does not
// account for body reordering — compare canonical forms for that.
func (f Formula) Equal(other Formula) bool {
	if !f.Head.Equal(other.Head) || len(f.Body) != len(other.Body) {
		return false
	}
	for i := range f.Body {
		if !f.Body[i].Equal(other.Body[i]) {
			return false
		}
	}
	return true
}

func (f Formula) String() string {
	var b strings.Builder
	b.WriteString(f.Head.String())
	if len(f.Body) > 0 {
		b.WriteString(" :- ")
		for i, p := range f.Body {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
	}
	return b.String()
}
