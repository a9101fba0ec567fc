// Package rbdb is the public facade of an embedded relational database
// that layers a safe Datalog-style deductive engine on top of SQLite. A
// client declares predicates with ordinary CREATE TABLE statements,
// then freely mixes plain SQL, formula assertions, and formula queries
// against them; see internal/engine for the coordinators this package
// wraps.
package rbdb

import (
	"context"

	"github.com/chkn/rbdb/internal/config"
	"github.com/chkn/rbdb/internal/engine"
	"github.com/chkn/rbdb/internal/logic"
	"github.com/chkn/rbdb/internal/rlog"
	"github.com/chkn/rbdb/internal/store"
)

// Options configures a DB at Open. The zero value is filled in with
// DefaultOptions' values by WithDefaults.
type Options = config.Options

// DefaultOptions returns the options a client gets by not specifying
// any: a 5 second busy timeout, foreign keys on, and the Symbol
// Algebra's maximum variable count.
func DefaultOptions() Options { return config.DefaultOptions() }

// Cursor iterates the rows of a SQL statement or formula query, per
// spec.md §4.7's retry protocol: on a missing-relation error it
// rescues (rebuilds the predicate's session view) and resumes from the
// failing statement rather than surfacing the error to the caller.
type Cursor = engine.Cursor

// Row is one result row, keyed by column name.
type Row = engine.Row

// DB is one open RBDB session: a single physical connection (session
// views and triggers are connection-private, per spec.md §5) plus the
// coordinators layered over it.
type DB struct {
	engine *engine.Engine
	store  *store.Store
	log    *rlog.Logger
}

// Open opens (creating if absent) a SQLite-backed database file at
// path, installing the Rule Store schema on first use and checking
// schema-version compatibility otherwise.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	s, err := store.Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return &DB{engine: engine.New(s), store: s, log: rlog.Nop()}, nil
}

// WithLogger attaches a structured logger the DB will use for
// diagnostic messages (currently none are emitted on the hot path; this
// is a hook for future rescue/retry tracing). It returns db for
// chaining.
func (db *DB) WithLogger(l *rlog.Logger) *DB {
	db.log = l
	return db
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.store.Close()
}

// Exec runs sqlText — a single statement, a `;`-joined batch, or a
// `CREATE TABLE` declaring a predicate — with the given positional
// arguments distributed across statements by each one's own
// placeholder count (spec.md §4.7). A sqlText that begins with `CREATE
// TABLE` is intercepted per spec.md §4.5 and never reaches the SQL
// engine; only that first statement is handled and the rest of the text
// is not run. A `CREATE TABLE` later in a batch is not intercepted.
func (db *DB) Exec(ctx context.Context, sqlText string, args ...any) (*Cursor, error) {
	return db.engine.Exec(ctx, sqlText, args)
}

// Assert canonicalizes, validates, and durably records f as either a
// fact or a rule (spec.md §4.9), returning *rbdberr.Error(CodeUnsafeVariables)
// if f's head refers to a variable absent from its body, or
// CodeDuplicateAssertion if an identical formula was already asserted.
func (db *DB) Assert(ctx context.Context, f logic.Formula) error {
	return db.engine.Assert(ctx, f)
}

// Query compiles f — a formula with an empty body — into a SELECT over
// its head predicate's derived relation and returns a Cursor over the
// results: one row per satisfying binding of f's free variables, or a
// single `{sat: 1}` row if f is ground and satisfiable (spec.md §4.10).
func (db *DB) Query(ctx context.Context, f logic.Formula) (*Cursor, error) {
	return db.engine.Query(ctx, f)
}
