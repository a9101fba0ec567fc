package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chkn/rbdb/internal/config"
	"github.com/chkn/rbdb/internal/logic"
	"github.com/chkn/rbdb/internal/rbdberr"
	"github.com/chkn/rbdb/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(context.Background(), filepath.Join(dir, "rules.db"), config.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func mustDeclare(t *testing.T, e *Engine, createTable string) {
	t.Helper()
	_, err := e.Exec(context.Background(), createTable, nil)
	require.NoError(t, err)
}

// Scenario: declare a predicate, assert ground facts, query them back.
func TestScenarioAssertAndQueryFacts(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE parent(a TEXT, b TEXT)`)

	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("parent", logic.String("alice"), logic.String("bob")))))
	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("parent", logic.String("bob"), logic.String("carol")))))

	v := logic.NewVar()
	c, err := e.Query(ctx, logic.NewFact(logic.NewPredicate("parent", logic.String("alice"), v)))
	require.NoError(t, err)
	defer c.Close()

	row, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := row["A"].AsString()
	assert.Equal(t, "bob", got)
}

// Scenario: asserting a fact against an undeclared predicate surfaces
// UnknownPredicate rather than a bare SQL error.
func TestScenarioAssertUnknownPredicate(t *testing.T) {
	e := openTestEngine(t)
	err := e.Assert(context.Background(), logic.NewFact(logic.NewPredicate("ghost", logic.String("x"))))
	require.Error(t, err)
	assert.True(t, rbdberr.Is(err, rbdberr.CodeUnknownPredicate))
}

// Scenario: a rule with a non-empty body succeeds as an Assert, and a
// later formula query on its head predicate answers via the rebuilt
// view.
func TestScenarioRuleAssertThenQuery(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE parent(a TEXT, b TEXT)`)
	mustDeclare(t, e, `CREATE TABLE grandparent(a TEXT, b TEXT)`)

	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("parent", logic.String("alice"), logic.String("bob")))))
	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("parent", logic.String("bob"), logic.String("carol")))))

	x, y, z := logic.NewVar(), logic.NewVar(), logic.NewVar()
	rule := logic.NewRule(
		logic.NewPredicate("grandparent", x, z),
		logic.NewPredicate("parent", x, y),
		logic.NewPredicate("parent", y, z),
	)
	require.NoError(t, e.Assert(ctx, rule))

	v := logic.NewVar()
	c, err := e.Query(ctx, logic.NewFact(logic.NewPredicate("grandparent", logic.String("alice"), v)))
	require.NoError(t, err)
	defer c.Close()

	row, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := row["A"].AsString()
	assert.Equal(t, "carol", got)
}

// Scenario: a query naming a predicate whose view is absent (dropped
// here, as a fresh connection would lack it) still resolves, because
// the cursor's rescue path materializes it on
// the fly — this is the MissingRelation retry protocol (spec.md §4.7)
// exercised end-to-end rather than against a hand-rolled rescue stub.
func TestScenarioQueryRescuesMissingView(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE widget(id TEXT)`)
	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("widget", logic.String("w1")))))

	// Drop the session-private view directly, simulating a fresh
	// connection that has never materialized it.
	_, err := e.Store.DB.Exec(`DROP VIEW IF EXISTS "widget"`)
	require.NoError(t, err)

	v := logic.NewVar()
	c, err := e.Query(ctx, logic.NewFact(logic.NewPredicate("widget", v)))
	require.NoError(t, err)
	defer c.Close()

	row, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := row["A"].AsString()
	assert.Equal(t, "w1", got)
}

// Scenario: re-declaring a predicate through raw SQL without IF NOT
// EXISTS surfaces DuplicateAssertion from the DDL interceptor, reached
// through the Engine's Exec entry point rather than the interceptor
// directly.
func TestScenarioDuplicateDeclarationViaExec(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE widget(id TEXT)`)
	_, err := e.Exec(ctx, `CREATE TABLE widget(id TEXT)`, nil)
	require.Error(t, err)
	assert.True(t, rbdberr.Is(err, rbdberr.CodeDuplicateAssertion))
}

// Scenario: raw multi-statement SQL through QuerySQL distributes bound
// arguments per statement and rescues a missing relation mid-batch.
func TestScenarioMultiStatementRawSQLWithRescue(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE widget(id TEXT, tag TEXT)`)
	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("widget", logic.String("w1"), logic.String("red")))))

	_, err := e.Store.DB.Exec(`DROP VIEW IF EXISTS "widget"`)
	require.NoError(t, err)

	sqlText := `CREATE TEMP TABLE seen(id TEXT); SELECT id, tag FROM "widget" WHERE tag = ?`
	c, err := e.QuerySQL(ctx, sqlText, []any{"red"})
	require.NoError(t, err)
	defer c.Close()

	row, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	id, _ := row["id"].AsString()
	assert.Equal(t, "w1", id)
}
