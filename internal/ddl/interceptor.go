package ddl

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/chkn/rbdb/internal/dbexec"
	"github.com/chkn/rbdb/internal/rbdberr"
	"github.com/pkg/errors"
)

// Materialize builds the session-scoped view and INSTEAD OF INSERT
// trigger for a newly declared predicate (spec.md §4.6). The
// interceptor invokes it once the declaring transaction commits; it is
// supplied by internal/engine wiring internal/materializer, kept out of
// this package's own dependencies to avoid a cycle (materializer never
// needs to know about DDL parsing).
type Materialize func(ctx context.Context, db dbexec.Execer, predicateName string, columns []string) error

// Interceptor recognizes and handles `CREATE TABLE` statements per
// spec.md §4.5, diverting them into a predicate declaration instead of
// letting them reach the SQL engine's ordinary execution path.
type Interceptor struct {
	DB          *sql.DB
	Materialize Materialize
}

// Handle inspects sqlText. If it is not a `CREATE TABLE` statement,
// handled is false and the caller should execute it normally. If it
// is, handled is true and err reports either a parse failure or the
// declaration outcome (nil on success, *rbdberr.Error on failure); the
// original statement must never reach the SQL engine either way.
func (in *Interceptor) Handle(ctx context.Context, sqlText string) (handled bool, err error) {
	parsed, ok, err := TryParse(sqlText)
	if !ok {
		return false, nil
	}
	if err != nil {
		return true, err
	}

	name := strings.ToLower(parsed.TableName)
	colsJSON, err := json.Marshal(parsed.Columns)
	if err != nil {
		return true, errors.Wrap(err, "ddl: marshal column names")
	}

	tx, err := in.DB.BeginTx(ctx, nil)
	if err != nil {
		return true, errors.Wrap(err, "ddl: begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO _entity DEFAULT VALUES`)
	if err != nil {
		return true, errors.Wrap(err, "ddl: insert entity")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return true, errors.Wrap(err, "ddl: read entity id")
	}

	if parsed.IfNotExists {
		res2, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO _predicate(id, name, column_names) VALUES (?, ?, ?)`, id, name, colsJSON)
		if err != nil {
			return true, errors.Wrap(err, "ddl: insert predicate")
		}
		rows, err := res2.RowsAffected()
		if err != nil {
			return true, errors.Wrap(err, "ddl: rows affected")
		}
		if rows == 0 {
			// Predicate already declared: no-op, and no entity leaks since
			// the whole transaction (including the entity insert) is rolled
			// back by the deferred Rollback above.
			return true, nil
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO _predicate(id, name, column_names) VALUES (?, ?, ?)`, id, name, colsJSON); err != nil {
			return true, rbdberr.DuplicateAssertion(name)
		}
	}

	if err := tx.Commit(); err != nil {
		return true, errors.Wrap(err, "ddl: commit")
	}

	if in.Materialize != nil {
		if err := in.Materialize(ctx, in.DB, name, parsed.Columns); err != nil {
			return true, err
		}
	}
	return true, nil
}
