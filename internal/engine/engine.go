// Package engine wires the Symbol Algebra, Codec, Rule Store,
// Compiler, Materializer, and Cursor together into the two operations a
// client actually calls: assert(formula) and query(...), per spec.md
// §4.9/§4.10. It is the one package that imports all the others, the
// way the teacher's internal/api handlers call down into
// internal/store.Manager.
package engine

import (
	"context"
	"database/sql"

	"github.com/chkn/rbdb/internal/compiler"
	"github.com/chkn/rbdb/internal/dbexec"
	"github.com/chkn/rbdb/internal/ddl"
	"github.com/chkn/rbdb/internal/logic"
	"github.com/chkn/rbdb/internal/materializer"
	"github.com/chkn/rbdb/internal/rbdberr"
	"github.com/chkn/rbdb/internal/store"
	"github.com/pkg/errors"
)

// Engine is the session-scoped coordinator. One Engine owns one
// *store.Store (and therefore one single-connection *sql.DB).
type Engine struct {
	Store        *store.Store
	Materializer *materializer.Materializer
	Interceptor  *ddl.Interceptor
}

// New wires an Engine around an already-open Store, connecting the DDL
// Interceptor's post-commit hook to the Materializer.
func New(s *store.Store) *Engine {
	m := &materializer.Materializer{DB: s.DB}
	in := &ddl.Interceptor{DB: s.DB, Materialize: m.Materialize}
	return &Engine{Store: s, Materializer: m, Interceptor: in}
}

// Exec runs one SQL statement (or a `;`-joined batch) through the DDL
// interceptor, then the SQL Cursor. Only a text that begins with
// `CREATE TABLE` is diverted to predicate declaration, and then only
// that first statement is handled: any statements after it are not
// run. A `CREATE TABLE` that is not first in a batch is not
// intercepted and reaches the SQL engine through the Cursor. This is
// the `rbdb` facade's entry point for raw SQL.
func (e *Engine) Exec(ctx context.Context, sqlText string, args []any) (*Cursor, error) {
	handled, err := e.Interceptor.Handle(ctx, sqlText)
	if handled {
		return nil, err
	}
	return e.newCursor(ctx, sqlText, args)
}

// Assert implements the Assertion Coordinator (spec.md §4.9).
func (e *Engine) Assert(ctx context.Context, f logic.Formula) error {
	canon, err := logic.CanonicalizeMax(f, e.Store.Options.MaxVariables)
	if err != nil {
		if errors.Is(err, logic.ErrTooManyVariables) {
			return rbdberr.TooManyVariables()
		}
		return err
	}
	if unsafe := logic.ValidateSafety(canon); len(unsafe) > 0 {
		return rbdberr.UnsafeVariables(unsafe)
	}

	data, err := encodeFormula(canon)
	if err != nil {
		return rbdberr.EncodingError(err)
	}

	exists, err := predicateExists(ctx, e.Store.DB, canon.Head.Name)
	if err != nil {
		return errors.Wrap(err, "engine: check predicate catalog")
	}
	if !exists {
		return rbdberr.UnknownPredicate(canon.Head.Name)
	}

	tx, err := e.Store.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "engine: begin assert")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO _entity DEFAULT VALUES`)
	if err != nil {
		return errors.Wrap(err, "engine: insert entity")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "engine: read entity id")
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO _rule(id, formula) VALUES (?, ?)`, id, data); err != nil {
		return rbdberr.DuplicateAssertion(canon.Head.Name)
	}

	return tx.Commit()
}

// Query implements the Query Coordinator (spec.md §4.10): compile the
// formula and run it through the Cursor, with rescue wired to the
// Materializer.
func (e *Engine) Query(ctx context.Context, f logic.Formula) (*Cursor, error) {
	canon, err := logic.CanonicalizeMax(f, e.Store.Options.MaxVariables)
	if err != nil {
		if errors.Is(err, logic.ErrTooManyVariables) {
			return nil, rbdberr.TooManyVariables()
		}
		return nil, err
	}

	sqlText, _, err := compiler.CompileQuery(canon, e.Materializer.ColumnsOf)
	if err != nil {
		return nil, err
	}
	return e.newCursor(ctx, sqlText, nil)
}

// QuerySQL runs raw SQL through the Cursor, with rescue wired to the
// Materializer, implementing the `query(sql, arguments)` client API.
func (e *Engine) QuerySQL(ctx context.Context, sqlText string, args []any) (*Cursor, error) {
	return e.newCursor(ctx, sqlText, args)
}

func (e *Engine) newCursor(ctx context.Context, sqlText string, args []any) (*Cursor, error) {
	c, err := newCursor(ctx, e.Store.DB, sqlText, args, e.rescue)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// rescue implements the retry protocol's recovery step: if the catalog
// knows the predicate, (re)materialize its view/trigger; otherwise the
// MissingRelation is unrecoverable and surfaces as UnknownPredicate
// (spec.md §7). It runs entirely on conn, the cursor's own checked-out
// connection, since the store's pool has no second connection to hand
// out while the cursor holds its only one (spec.md §4.7).
func (e *Engine) rescue(ctx context.Context, conn *sql.Conn, predicateName string) error {
	exists, err := predicateExists(ctx, conn, predicateName)
	if err != nil {
		return err
	}
	if !exists {
		return rbdberr.UnknownPredicate(predicateName)
	}
	return e.Materializer.Materialize(ctx, conn, predicateName, nil)
}

func predicateExists(ctx context.Context, db dbexec.Execer, name string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM _predicate WHERE name = ? COLLATE NOCASE`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
