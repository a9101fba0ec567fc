// Package codec implements the deterministic, compact serialization of
// Horn-clause formulas to a self-describing structured value (arrays and
// tagged maps), per spec.md §4.2. It mirrors the encode/decode interface
// split used by RDF term codecs in the wider Go ecosystem (grounded on
// aleksaelezovic/trigo's TermEncoder/TermDecoder), specialized to the
// fixed array-of-[tag, head-args..., body-predicates...] shape spec.md
// defines and rendered to JSON for storage in the rule store (§4.8).
package codec

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/chkn/rbdb/internal/logic"
	"github.com/pkg/errors"
)

// Sentinel is the leading character of a type-tag, marking it as a
// Horn-clause head and driving the rule store's generated-column
// extraction and index lookups (spec.md §4.2).
const Sentinel = "@"

// ErrNonCanonical is returned by Encode when given a formula containing
// a variable that has not been assigned a canonical index.
var ErrNonCanonical = errors.New("codec: formula is not canonical")

// ErrNonFiniteNumber is returned by Encode when a number term is NaN or
// infinite.
var ErrNonFiniteNumber = errors.New("codec: non-finite number")

// ErrUnrecognizedTerm is returned by Decode when a term map has none of
// the recognized keys.
var ErrUnrecognizedTerm = errors.New("codec: no recognized term variant")

// Encode renders a validated, canonical formula into the structured wire
// value: [type-tag, head-arg-0, head-arg-1, …, body-predicate-0, …].
// It refuses non-canonical formulas and non-finite numbers.
func Encode(f logic.Formula) ([]any, error) {
	out := make([]any, 0, 1+len(f.Head.Args)+len(f.Body))
	out = append(out, Sentinel+f.Head.Name)
	for _, a := range f.Head.Args {
		v, err := encodeTerm(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	for _, p := range f.Body {
		pv, err := encodePredicate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, nil
}

func encodeTerm(t logic.Term) (any, error) {
	if t.IsVariable() {
		idx, ok := t.Index()
		if !ok {
			return nil, ErrNonCanonical
		}
		return map[string]any{"v": float64(idx)}, nil
	}
	switch t.Kind() {
	case logic.KindString:
		s, _ := t.StringValue()
		return map[string]any{"": s}, nil
	case logic.KindNumber:
		n, _ := t.NumberValue()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, ErrNonFiniteNumber
		}
		return map[string]any{"": n}, nil
	case logic.KindBoolean:
		b, _ := t.BoolValue()
		return map[string]any{"": b}, nil
	default:
		return nil, errors.Errorf("codec: unknown term kind %v", t.Kind())
	}
}

func encodePredicate(p logic.Predicate) ([]any, error) {
	out := make([]any, 0, 1+len(p.Args))
	out = append(out, p.Name)
	for _, a := range p.Args {
		v, err := encodeTerm(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ToJSON renders an encoded formula value to its JSON text form, the
// representation stored in `_rule.formula` (spec.md §4.8).
func ToJSON(v []any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: marshal")
	}
	return b, nil
}

// EncodeToJSON is a convenience wrapper combining Encode and ToJSON.
func EncodeToJSON(f logic.Formula) ([]byte, error) {
	v, err := Encode(f)
	if err != nil {
		return nil, err
	}
	return ToJSON(v)
}

// FromJSON parses a stored formula's JSON text back into the structured
// wire value.
func FromJSON(data []byte) ([]any, error) {
	var v []any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "codec: unmarshal")
	}
	return v, nil
}

// Decode reconstructs a Formula from the structured wire value. It
// tolerates unknown map keys on a term as long as at least one
// recognized key remains, and prefers the "v" (variable) variant over
// "" (constant) when a term map somehow carries both, since "v" is the
// later-defined variant (spec.md §4.2's forward-compatibility rule).
func Decode(v []any) (logic.Formula, error) {
	if len(v) == 0 {
		return logic.Formula{}, errors.New("codec: empty encoded formula")
	}
	tag, ok := v[0].(string)
	if !ok || len(tag) == 0 || tag[:1] != Sentinel {
		return logic.Formula{}, errors.Errorf("codec: missing or malformed type tag %v", v[0])
	}
	name := tag[len(Sentinel):]

	var headArgs []logic.Term
	var body []logic.Predicate
	i := 1
	for ; i < len(v); i++ {
		m, ok := v[i].(map[string]any)
		if !ok {
			break
		}
		term, err := decodeTerm(m)
		if err != nil {
			return logic.Formula{}, err
		}
		headArgs = append(headArgs, term)
	}
	for ; i < len(v); i++ {
		arr, ok := v[i].([]any)
		if !ok {
			return logic.Formula{}, errors.Errorf("codec: expected body predicate array at element %d, got %T", i, v[i])
		}
		pred, err := decodePredicate(arr)
		if err != nil {
			return logic.Formula{}, err
		}
		body = append(body, pred)
	}
	return logic.Formula{Head: logic.NewPredicate(name, headArgs...), Body: body}, nil
}

func decodeTerm(m map[string]any) (logic.Term, error) {
	if raw, ok := m["v"]; ok {
		n, ok := raw.(float64)
		if !ok {
			return logic.Term{}, errors.Errorf("codec: variable index must be numeric, got %T", raw)
		}
		return variableFromIndex(n)
	}
	if raw, ok := m[""]; ok {
		return constantFromAny(raw)
	}
	return logic.Term{}, ErrUnrecognizedTerm
}

func variableFromIndex(n float64) (logic.Term, error) {
	return logic.IndexedVar(uint8(n)), nil
}

func constantFromAny(raw any) (logic.Term, error) {
	switch val := raw.(type) {
	case string:
		return logic.String(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return logic.Term{}, ErrNonFiniteNumber
		}
		return logic.Number(val), nil
	case bool:
		return logic.Bool(val), nil
	case nil:
		return logic.Term{}, errors.New("codec: null is not a valid constant term")
	default:
		return logic.Term{}, errors.Errorf("codec: unsupported constant type %T", raw)
	}
}

func decodePredicate(arr []any) (logic.Predicate, error) {
	if len(arr) == 0 {
		return logic.Predicate{}, errors.New("codec: empty body predicate array")
	}
	name, ok := arr[0].(string)
	if !ok {
		return logic.Predicate{}, fmt.Errorf("codec: body predicate name must be string, got %T", arr[0])
	}
	args := make([]logic.Term, 0, len(arr)-1)
	for _, raw := range arr[1:] {
		m, ok := raw.(map[string]any)
		if !ok {
			return logic.Predicate{}, errors.Errorf("codec: malformed term in body predicate %q: %T", name, raw)
		}
		t, err := decodeTerm(m)
		if err != nil {
			return logic.Predicate{}, err
		}
		args = append(args, t)
	}
	return logic.NewPredicate(name, args...), nil
}
