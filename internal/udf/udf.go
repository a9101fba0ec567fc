// Package udf registers the SQL-engine-resident user-defined functions
// the Rule Store's generated columns, triggers, and INSTEAD-OF-INSERT
// views depend on: new_entity_id (entity identity), encode_predicate
// (formula encoding from inside a trigger), sql_exec (arbitrary SQL from
// inside a trigger, for the rule-fired view-drop), formula_body_len
// (the generated-column extraction backing `negative_literal_count`,
// see DESIGN.md's Open Question decision #4), and formula_arg_constant
// (the head-argument extraction backing `arg1_constant`/`arg2_constant`
// and the Materializer's fact projection).
//
// Registration happens once per process via mattn/go-sqlite3's
// ConnectHook, since go-sqlite3 functions are registered per
// *connection*, not per *DSN*: every new connection the driver opens
// runs the hook and gets the same function set.
package udf

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// DriverName is the name rbdb registers its sqlite3 driver variant
// under. database/sql driver names are process-global, so a distinct
// name avoids colliding with a host application's own "sqlite3"
// registration.
const DriverName = "rbdb-sqlite3"

var registerOnce sync.Once

// Register installs rbdb's sqlite3 driver variant, with every UDF this
// package provides wired into ConnectHook. It is idempotent — callers
// can invoke it from every rbdb.Open without risking a duplicate
// sql.Register panic.
func Register() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc("new_entity_id", newEntityID, false); err != nil {
					return err
				}
				if err := conn.RegisterFunc("encode_predicate", encodePredicateSQL, true); err != nil {
					return err
				}
				if err := conn.RegisterFunc("sql_exec", makeSQLExec(conn), false); err != nil {
					return err
				}
				if err := conn.RegisterFunc("formula_body_len", formulaBodyLen, true); err != nil {
					return err
				}
				if err := conn.RegisterFunc("formula_arg_constant", formulaArgConstant, true); err != nil {
					return err
				}
				return nil
			},
		})
	})
}

// newEntityID returns a fresh 128-bit v7 UUID as raw bytes, the
// externally-visible identifier stamped on every `_entity` row (spec
// §4.8, §6). google/uuid's NewV7 lays out the 48-bit big-endian
// millisecond timestamp, version nibble 7, and variant bits 10 exactly
// as spec'd, so no hand-rolled bit-packing is needed.
func newEntityID() ([]byte, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	b := id[:]
	return b, nil
}

// encodePredicateSQL builds a canonical-formula-encoded text value from
// a head predicate name and its already-bound argument values, for use
// inside an INSTEAD OF INSERT trigger (spec §4.6): the trigger's new.*
// columns become a fact's ground arguments, with no variables to
// canonicalize.
func encodePredicateSQL(name string, args ...any) (string, error) {
	out := make([]any, 0, 1+len(args))
	out = append(out, "@"+strings.ToLower(name))
	for _, a := range args {
		v, err := constantWireValue(a)
		if err != nil {
			return "", err
		}
		out = append(out, v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// constantWireValue mirrors internal/codec's constant-term encoding
// (map[string]any{"": value}) without depending on internal/logic,
// since go-sqlite3 hands this function raw driver.Value (int64,
// float64, string, []byte, bool, nil), not Terms.
func constantWireValue(v any) (map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, errors.New("udf: NULL is not a valid predicate argument")
	case int64:
		return map[string]any{"": float64(val)}, nil
	case float64:
		return map[string]any{"": val}, nil
	case bool:
		return map[string]any{"": val}, nil
	case string:
		return map[string]any{"": val}, nil
	case []byte:
		return nil, errors.New("udf: BLOB is not a valid predicate argument")
	default:
		return map[string]any{"": val}, nil
	}
}

// makeSQLExec closes over the connection it was registered on, so the
// executed statement (typically a TEMP VIEW drop, spec §4.6) runs on
// the same connection and session as the trigger invoking it.
func makeSQLExec(conn *sqlite3.SQLiteConn) func(string) (int64, error) {
	return func(stmt string) (int64, error) {
		if _, err := conn.Exec(stmt, nil); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

// formulaBodyLen counts the body-predicate elements of a stored
// formula's JSON array (every element after the head tag that is
// itself a JSON array, since head-arg terms encode as single-key
// objects and body predicates encode as arrays). It backs the
// `negative_literal_count` generated column via
// `NULLIF(formula_body_len(formula), 0)` (DESIGN.md decision #4),
// returning 0 for facts so NULLIF turns them into NULL.
func formulaBodyLen(formula string) (int64, error) {
	var v []any
	if err := json.Unmarshal([]byte(formula), &v); err != nil {
		return 0, err
	}
	var count int64
	for _, elem := range v {
		if _, ok := elem.([]any); ok {
			count++
		}
	}
	return count, nil
}

// formulaArgConstant extracts the constant-key projection of the nth
// (0-based) head argument of a stored formula, or NULL if that
// argument is absent or is a variable. It backs the `arg1_constant` /
// `arg2_constant` generated columns (spec §4.8); boolean constants
// project as their 0/1 SQL value per DESIGN.md's Open Question decision
// #2.
func formulaArgConstant(formula string, argIndex int64) (any, error) {
	var v []any
	if err := json.Unmarshal([]byte(formula), &v); err != nil {
		return nil, err
	}
	pos := 1 + int(argIndex)
	if pos >= len(v) {
		return nil, nil
	}
	m, ok := v[pos].(map[string]any)
	if !ok {
		return nil, nil
	}
	if _, isVar := m["v"]; isVar {
		return nil, nil
	}
	raw, ok := m[""]
	if !ok {
		return nil, nil
	}
	switch val := raw.(type) {
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return val, nil
	}
}
