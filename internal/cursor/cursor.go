// Package cursor implements the SQL Cursor with Retry (spec.md §4.7):
// it prepares and executes a possibly multi-statement SQL text,
// distributing bound arguments across statements by each statement's
// own placeholder count, and on a *MissingRelation* error invokes a
// caller-supplied rescue callback before resuming execution from
// exactly the failing statement.
package cursor

import (
	"context"
	"database/sql"
	"strings"

	"github.com/chkn/rbdb/internal/rbdberr"
)

// Rescue attempts to materialize the view/trigger for predicateName so
// a subsequent retry of the same statement can succeed. conn is the
// cursor's own checked-out connection: with the store's pool opened at
// SetMaxOpenConns(1), it is the only connection available for the
// duration of the cursor's call into New, so rescue must run its
// recovery queries on it rather than reaching back into the pool,
// which would deadlock waiting for a connection this very call is
// holding. Rescue returns nil on success ("recovered") or an error
// ("not recovered") — typically *rbdberr.Error with
// CodeUnknownPredicate when the catalog has no such predicate at all.
type Rescue func(ctx context.Context, conn *sql.Conn, predicateName string) error

// Cursor executes multi-statement SQL with the retry protocol. The
// zero value is not usable; construct with New.
type Cursor struct {
	conn   *sql.Conn
	rescue Rescue

	statements []statement
	argStarts  []int // cumulative arg index each statement's args begin at
	args       []any

	finalRows   *sql.Rows
	finalCols   []string
	buffered    Row
	hasBuffered bool
	done        bool
}

// New prepares and executes all but the final statement of sqlText,
// then prepares the final statement and eagerly reads its first row,
// so any engine error is surfaced synchronously from New rather than
// from the first call to Next (spec.md §4.7).
func New(ctx context.Context, db *sql.DB, sqlText string, args []any, rescue Rescue) (*Cursor, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	c := &Cursor{conn: conn, rescue: rescue}
	if err := c.bind(ctx, sqlText, args); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// bind (re)parses sqlText against args and runs every statement,
// buffering the final statement's first row. It is shared by New and
// Rerun.
func (c *Cursor) bind(ctx context.Context, sqlText string, args []any) error {
	statements := splitStatements(sqlText)
	total := 0
	argStarts := make([]int, len(statements))
	for i, s := range statements {
		argStarts[i] = total
		total += s.ParamCount
	}
	if total != len(args) {
		return rbdberr.WrongParameterCount(total, len(args))
	}

	c.statements = statements
	c.argStarts = argStarts
	c.args = args
	c.done = false
	c.hasBuffered = false
	if c.finalRows != nil {
		c.finalRows.Close()
		c.finalRows = nil
	}

	if len(statements) == 0 {
		c.done = true
		return nil
	}

	for i := 0; i < len(statements)-1; i++ {
		if err := c.execNonFinal(ctx, i); err != nil {
			return err
		}
	}

	return c.prepareFinal(ctx, len(statements)-1)
}

func (c *Cursor) argsFor(i int) []any {
	start := c.argStarts[i]
	return c.args[start : start+c.statements[i].ParamCount]
}

// execNonFinal runs statement i to completion, rescuing once on a
// MissingRelation error and retrying exactly that statement.
func (c *Cursor) execNonFinal(ctx context.Context, i int) error {
	_, err := c.conn.ExecContext(ctx, c.statements[i].Text, c.argsFor(i)...)
	if err == nil {
		return nil
	}
	classified := classifyEngineError(err)
	name, isMissing := missingRelationName(classified)
	if !isMissing || c.rescue == nil {
		return classified
	}
	if rescueErr := c.rescue(ctx, c.conn, name); rescueErr != nil {
		return rescueErr
	}
	_, err = c.conn.ExecContext(ctx, c.statements[i].Text, c.argsFor(i)...)
	if err != nil {
		return classifyEngineError(err)
	}
	return nil
}

// prepareFinal prepares and executes the final statement, rescuing
// once on MissingRelation, then eagerly reads its first row.
func (c *Cursor) prepareFinal(ctx context.Context, i int) error {
	rows, cols, err := c.queryOnce(ctx, i)
	if err != nil {
		classified := classifyEngineError(err)
		name, isMissing := missingRelationName(classified)
		if !isMissing || c.rescue == nil {
			return classified
		}
		if rescueErr := c.rescue(ctx, c.conn, name); rescueErr != nil {
			return rescueErr
		}
		rows, cols, err = c.queryOnce(ctx, i)
		if err != nil {
			return classifyEngineError(err)
		}
	}
	c.finalRows = rows
	c.finalCols = cols
	return c.advance()
}

func (c *Cursor) queryOnce(ctx context.Context, i int) (*sql.Rows, []string, error) {
	rows, err := c.conn.QueryContext(ctx, c.statements[i].Text, c.argsFor(i)...)
	if err != nil {
		return nil, nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, err
	}
	return rows, cols, nil
}

// advance reads the next row of finalRows into the buffer, or marks
// the cursor done.
func (c *Cursor) advance() error {
	if c.finalRows == nil || !c.finalRows.Next() {
		c.hasBuffered = false
		c.done = true
		if c.finalRows != nil {
			return c.finalRows.Err()
		}
		return nil
	}
	dest := make([]any, len(c.finalCols))
	ptrs := make([]any, len(c.finalCols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := c.finalRows.Scan(ptrs...); err != nil {
		return err
	}
	row := make(Row, len(c.finalCols))
	for i, name := range c.finalCols {
		row[name] = FromSQL(dest[i])
	}
	c.buffered = row
	c.hasBuffered = true
	return nil
}

// Next returns the currently buffered row (if any) and advances to the
// next one, reporting UnderestimatedCount semantics via the boolean
// return: true while a row is buffered, false once exhausted.
func (c *Cursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.hasBuffered {
		return nil, false, nil
	}
	row := c.buffered
	if err := c.advance(); err != nil {
		return row, true, err
	}
	return row, true, nil
}

// UnderestimatedCount reports 0 or 1 depending on whether a row is
// currently buffered (spec.md §4.7).
func (c *Cursor) UnderestimatedCount() int {
	if c.hasBuffered {
		return 1
	}
	return 0
}

// Rerun resets the cursor against a new (or identical) argument list,
// re-executing every non-final statement and re-reading the final
// statement's first row. It reuses the same connection and the
// original SQL text.
func (c *Cursor) Rerun(ctx context.Context, args []any) error {
	var b strings.Builder
	for i, s := range c.statements {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(s.Text)
	}
	return c.bind(ctx, b.String(), args)
}

// Close releases the cursor's prepared statements and connection.
func (c *Cursor) Close() error {
	if c.finalRows != nil {
		c.finalRows.Close()
	}
	return c.conn.Close()
}

// classifyEngineError recognizes the one recoverable condition the
// underlying SQL engine raises in-band — "no such table: X" for a
// predicate's absent session view — and turns it into
// *rbdberr.Error(CodeMissingRelation), since the driver has no typed
// error for this distinct from any other "no such table" message.
// Every other engine error passes through unchanged.
func classifyEngineError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	const marker = "no such table: "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return err
	}
	name := strings.TrimSpace(msg[idx+len(marker):])
	name = strings.TrimPrefix(name, "main.")
	return rbdberr.MissingRelation(name)
}

func missingRelationName(err error) (string, bool) {
	if !rbdberr.Is(err, rbdberr.CodeMissingRelation) {
		return "", false
	}
	e, ok := err.(*rbdberr.Error)
	if !ok {
		return "", false
	}
	return e.Name, true
}
