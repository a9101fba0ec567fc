package logic

import (
	"sort"

	"github.com/pkg/errors"
)

// MaxVariables is the largest number of distinct variables a single
// formula may carry once canonicalized — indices occupy a single byte
// (spec.md §4.1).
const MaxVariables = 256

// ErrTooManyVariables is returned by Canonicalize when a formula carries
// more than MaxVariables distinct variables.
var ErrTooManyVariables = errors.New("logic: too many distinct variables in formula (max 256)")

type canonicalizer struct {
	order   []varKey
	indices map[varKey]uint8
}

func (c *canonicalizer) RewriteTerm(t Term) Term {
	if !t.IsVariable() {
		return t
	}
	k := t.key()
	if idx, ok := c.indices[k]; ok {
		return indexed(idx)
	}
	idx := uint8(len(c.order))
	c.indices[k] = idx
	c.order = append(c.order, k)
	return indexed(idx)
}

// Canonicalize rewrites f so that variables are indexed 0, 1, … in
// first-occurrence order under a head-first, then-body-in-order
// traversal, and sorts the body predicates by the total order on
// predicates (Predicate.Compare). Canonicalize is idempotent: applying
// it to an already-canonical formula reproduces the same formula, since
// the rename-then-sort pass is repeated until it no longer changes the
// formula.
//
// It enforces the package-default MaxVariables. A caller that needs a
// tighter, session-configured limit (spec.md §4.1's variable count is
// per-session-overridable) should call CanonicalizeMax instead.
func Canonicalize(f Formula) (Formula, error) {
	return CanonicalizeMax(f, MaxVariables)
}

// CanonicalizeMax is Canonicalize with the distinct-variable limit set
// to maxVars instead of the package default. maxVars must not exceed
// MaxVariables: canonical indices are stored as a single byte
// (indexed(idx) below), so 256 is a hard ceiling regardless of what a
// caller asks for.
func CanonicalizeMax(f Formula, maxVars int) (Formula, error) {
	if maxVars <= 0 || maxVars > MaxVariables {
		maxVars = MaxVariables
	}
	// Sorting can move a later-numbered variable ahead of an earlier one
	// (h() :- b(A), a(B, A) sorts to h() :- a(?1, ?0), b(?0)), so one
	// pass is not always a fixed point; repeat until the formula is stable.
	for {
		c := &canonicalizer{indices: make(map[varKey]uint8)}
		renamed := RewriteFormula(c, f)
		if len(c.order) > maxVars {
			return Formula{}, ErrTooManyVariables
		}
		sort.SliceStable(renamed.Body, func(i, j int) bool {
			return renamed.Body[i].Compare(renamed.Body[j]) < 0
		})
		if renamed.Equal(f) {
			return renamed, nil
		}
		f = renamed
	}
}

// DisplayName renders a canonical variable index the way §4.4 requires
// for query-result column aliases: A..Z for 0..25, then AA, AB, … for
// higher indices (base-26, letters only).
func DisplayName(index uint8) string {
	n := int(index)
	if n < 26 {
		return string(rune('A' + n))
	}
	// Two-letter range is sufficient since indices are capped at 255.
	hi := n / 26
	lo := n % 26
	return string(rune('A'+hi-1)) + string(rune('A'+lo))
}
