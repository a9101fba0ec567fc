package logic

import "strings"

// Predicate is a name paired with an ordered argument sequence. The name
// is lowercased on construction (spec.md §3).
type Predicate struct {
	Name string
	Args []Term
}

// NewPredicate builds a Predicate, lowercasing name.
func NewPredicate(name string, args ...Term) Predicate {
	return Predicate{Name: strings.ToLower(name), Args: append([]Term(nil), args...)}
}

// Arity returns the number of arguments.
func (p Predicate) Arity() int { return len(p.Args) }

// Ground reports whether no argument is a variable.
func (p Predicate) Ground() bool {
	for _, a := range p.Args {
		if a.IsVariable() {
			return false
		}
	}
	return true
}

// Equal reports deep equality of name and arguments.
func (p Predicate) Equal(other Predicate) bool {
	if p.Name != other.Name || len(p.Args) != len(other.Args) {
		return false
	}
	for i := range p.Args {
		if !p.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// Compare gives the total order spec.md §4.1 requires: lexicographic on
// name, then on arguments pairwise. A predicate whose argument list is a
// strict prefix of another's sorts first.
func (p Predicate) Compare(other Predicate) int {
	if p.Name < other.Name {
		return -1
	}
	if p.Name > other.Name {
		return 1
	}
	n := len(p.Args)
	if len(other.Args) < n {
		n = len(other.Args)
	}
	for i := 0; i < n; i++ {
		if c := p.Args[i].Compare(other.Args[i]); c != 0 {
			return c
		}
	}
	return len(p.Args) - len(other.Args)
}

func (p Predicate) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('(')
	for i, a := range p.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}
