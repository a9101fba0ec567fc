// Package materializer builds the session-scoped view and INSTEAD OF
// INSERT trigger that make a declared predicate transparently queryable
// as a table (spec.md §4.6), grounded on the teacher's schema_def.go
// idempotent CREATE TRIGGER IF NOT EXISTS block style, generalized from
// a fixed FTS5 sync trigger trio to a per-predicate view/trigger pair
// built from the predicate's compiled rule set.
package materializer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chkn/rbdb/internal/codec"
	"github.com/chkn/rbdb/internal/compiler"
	"github.com/chkn/rbdb/internal/dbexec"
	"github.com/chkn/rbdb/internal/logic"
	"github.com/chkn/rbdb/internal/rbdberr"
)

// Materializer builds the view+trigger pair for a predicate on demand,
// both eagerly after a successful DDL declaration and lazily during
// cursor rescue (spec.md §4.9's state machine).
type Materializer struct {
	DB *sql.DB
}

// ColumnsOf resolves a predicate's declared columns from `_predicate`,
// implementing compiler.ColumnsOf so the compiler can be handed
// straight through without an adapter at each call site.
func (m *Materializer) ColumnsOf(name string) ([]string, error) {
	return columnsOf(context.Background(), m.DB, name)
}

func columnsOf(ctx context.Context, db dbexec.Execer, name string) ([]string, error) {
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT column_names FROM _predicate WHERE name = ? COLLATE NOCASE`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, rbdberr.UnknownPredicate(name)
	}
	if err != nil {
		return nil, err
	}
	var cols []string
	if err := json.Unmarshal(raw, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// Materialize (re)builds predicateName's session-scoped view and
// trigger. It is idempotent: both the view and the trigger are created
// `IF NOT EXISTS`, so a caller that races another materialization of
// the same predicate (or calls this after the rule-change trigger has
// already dropped and something else rebuilt it) is safe.
//
// db is whatever connection the caller already has open — the pooled
// *sql.DB for an eager materialization after CREATE TABLE, or a
// cursor's single checked-out *sql.Conn during rescue. Every query
// Materialize issues, including resolving the columns of any other
// predicate a rule body references, goes through this same db so a
// rescue never needs a second connection.
func (m *Materializer) Materialize(ctx context.Context, db dbexec.Execer, predicateName string, columns []string) error {
	if db == nil {
		db = m.DB
	}
	if columns == nil {
		cols, err := columnsOf(ctx, db, predicateName)
		if err != nil {
			return err
		}
		columns = cols
	}

	rules, err := m.loadRules(ctx, db, predicateName)
	if err != nil {
		return err
	}

	viewSQL, err := m.buildViewSQL(ctx, db, predicateName, columns, rules)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return err
	}

	triggerSQL := m.buildTriggerSQL(predicateName, columns)
	if _, err := db.ExecContext(ctx, triggerSQL); err != nil {
		return err
	}
	return nil
}

func (m *Materializer) loadRules(ctx context.Context, db dbexec.Execer, predicateName string) ([]logic.Formula, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT formula FROM _rule WHERE output_type = ? COLLATE NOCASE AND negative_literal_count IS NOT NULL`,
		"@"+predicateName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []logic.Formula
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := codec.FromJSON(raw)
		if err != nil {
			return nil, rbdberr.EncodingError(err)
		}
		f, err := codec.Decode(v)
		if err != nil {
			return nil, rbdberr.EncodingError(err)
		}
		rules = append(rules, f)
	}
	return rules, rows.Err()
}

// viewName is the identity function: a predicate's session-scoped view
// is named after the predicate itself, per spec.md's "the predicate
// appears to the client as a table". __base/__t-suffixed names are
// reserved for the internal WITH RECURSIVE base CTE and the
// INSTEAD OF INSERT trigger, neither of which a client ever names
// directly.
func viewName(name string) string    { return name }
func baseName(name string) string    { return name + "__base" }
func triggerName(name string) string { return name + "__t" }

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// buildViewSQL assembles the recursive-CTE view definition: a facts
// select unioned with one select per rule. Wrapping every predicate's
// view in `WITH RECURSIVE` unconditionally (rather than only for
// predicates actually self-referential) costs nothing when there is no
// self-reference to resolve and avoids a separate non-recursive code
// path (DESIGN.md's Open Question decision #3).
func (m *Materializer) buildViewSQL(ctx context.Context, db dbexec.Execer, predicateName string, columns []string, rules []logic.Formula) (string, error) {
	factSelect := m.buildFactSelect(predicateName, columns)

	boundColumnsOf := func(name string) ([]string, error) { return columnsOf(ctx, db, name) }
	var sourceRef compiler.SourceRef = func(bodyPredName string) string {
		if strings.EqualFold(bodyPredName, predicateName) {
			return quoteIdent(baseName(predicateName))
		}
		return compiler.DefaultSourceRef(bodyPredName)
	}

	selects := []string{factSelect}
	for _, rule := range rules {
		sql, err := compiler.CompileRule(rule, boundColumnsOf, sourceRef)
		if err != nil {
			return "", err
		}
		selects = append(selects, sql)
	}

	colList := make([]string, len(columns))
	for i, c := range columns {
		colList[i] = quoteIdent(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TEMP VIEW IF NOT EXISTS %s AS WITH RECURSIVE %s(%s) AS (\n",
		quoteIdent(viewName(predicateName)), quoteIdent(baseName(predicateName)), strings.Join(colList, ", "))
	b.WriteString(strings.Join(selects, "\nUNION ALL\n"))
	fmt.Fprintf(&b, "\n) SELECT * FROM %s", quoteIdent(baseName(predicateName)))
	return b.String(), nil
}

// buildFactSelect projects the ground facts of predicateName directly
// out of `_rule`, per spec.md §4.6: only rows with
// `negative_literal_count IS NULL` (facts) are ground, so
// formula_arg_constant always yields a value for every declared column.
func (m *Materializer) buildFactSelect(predicateName string, columns []string) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		exprs[i] = fmt.Sprintf("formula_arg_constant(formula, %d) AS %s", i, quoteIdent(c))
	}
	return fmt.Sprintf("SELECT %s FROM _rule WHERE output_type = '@%s' COLLATE NOCASE AND negative_literal_count IS NULL",
		strings.Join(exprs, ", "), strings.ToLower(predicateName))
}

// buildTriggerSQL assembles the INSTEAD OF INSERT trigger that turns a
// plain `INSERT INTO predicate VALUES (...)` into a fact assertion:
// mint an entity, then encode and insert the fact's formula.
func (m *Materializer) buildTriggerSQL(predicateName string, columns []string) string {
	newCols := make([]string, len(columns))
	for i := range columns {
		newCols[i] = fmt.Sprintf("NEW.%s", quoteIdent(columns[i]))
	}
	return fmt.Sprintf(`CREATE TEMP TRIGGER IF NOT EXISTS %s
INSTEAD OF INSERT ON %s
BEGIN
    INSERT INTO _entity(id) VALUES (NULL);
    INSERT INTO _rule(id, formula) VALUES (
        last_insert_rowid(),
        encode_predicate('%s', %s)
    );
END;`, quoteIdent(triggerName(predicateName)), quoteIdent(viewName(predicateName)),
		strings.ToLower(predicateName), strings.Join(newCols, ", "))
}
