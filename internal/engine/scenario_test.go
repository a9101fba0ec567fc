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

// This file runs the end-to-end scenarios verbatim, one test per
// letter.

func querySQL(t *testing.T, e *Engine, sqlText string, args ...any) []Row {
	t.Helper()
	c, err := e.QuerySQL(context.Background(), sqlText, args)
	require.NoError(t, err)
	defer c.Close()
	var rows []Row
	for {
		row, ok, err := c.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

// Scenario A (fact then view).
func TestScenarioA_FactThenView(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE human(name TEXT)`)
	require.NoError(t, e.Assert(ctx, logic.NewFact(logic.NewPredicate("human", logic.String("Socrates")))))

	rows := querySQL(t, e, `SELECT * FROM "human"`)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].AsString()
	assert.Equal(t, "Socrates", name)
}

// Scenario B (rule triggers view drop).
func TestScenarioB_RuleTriggersViewDrop(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE human(name TEXT)`)
	mustDeclare(t, e, `CREATE TABLE mortal(name TEXT)`)
	_, err := e.Exec(ctx, `INSERT INTO "human" VALUES ('Socrates')`, nil)
	require.NoError(t, err)

	x := logic.NewVar()
	require.NoError(t, e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("mortal", x),
		logic.NewPredicate("human", x),
	)))

	rows := querySQL(t, e, `SELECT * FROM "mortal"`)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].AsString()
	assert.Equal(t, "Socrates", name)

	_, err = e.Store.DB.Exec(`DROP VIEW IF EXISTS "human"`)
	require.NoError(t, err)

	rows = querySQL(t, e, `SELECT * FROM "mortal"`)
	require.Len(t, rows, 1)
	name, _ = rows[0]["name"].AsString()
	assert.Equal(t, "Socrates", name)
}

// Scenario C (recursion).
func TestScenarioC_Recursion(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE parent(a TEXT, b TEXT)`)
	mustDeclare(t, e, `CREATE TABLE ancestor(a TEXT, b TEXT)`)

	x, y, z := logic.NewVar(), logic.NewVar(), logic.NewVar()
	require.NoError(t, e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("ancestor", x, y),
		logic.NewPredicate("parent", x, y),
	)))
	require.NoError(t, e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("ancestor", x, z),
		logic.NewPredicate("parent", x, y),
		logic.NewPredicate("ancestor", y, z),
	)))

	_, err := e.Exec(ctx, `INSERT INTO "parent" VALUES ('john', 'douglas')`, nil)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `INSERT INTO "parent" VALUES ('mary', 'john')`, nil)
	require.NoError(t, err)

	rows := querySQL(t, e, `SELECT * FROM "ancestor"`)
	assert.Len(t, rows, 3)
}

// Scenario D (grandparent, multi-join).
func TestScenarioD_GrandparentMultiJoin(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE parent(parent TEXT, child TEXT)`)
	mustDeclare(t, e, `CREATE TABLE grandparent(grandparent TEXT, grandchild TEXT)`)

	_, err := e.Exec(ctx, `INSERT INTO "parent" VALUES ('Alice', 'Bob')`, nil)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `INSERT INTO "parent" VALUES ('Bob', 'Charlie')`, nil)
	require.NoError(t, err)

	x, y, z := logic.NewVar(), logic.NewVar(), logic.NewVar()
	require.NoError(t, e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("grandparent", x, z),
		logic.NewPredicate("parent", x, y),
		logic.NewPredicate("parent", y, z),
	)))

	rows := querySQL(t, e, `SELECT * FROM "grandparent"`)
	require.Len(t, rows, 1)
	gp, _ := rows[0]["grandparent"].AsString()
	gc, _ := rows[0]["grandchild"].AsString()
	assert.Equal(t, "Alice", gp)
	assert.Equal(t, "Charlie", gc)
}

// Scenario E (formula query with bindings) — built on scenario D's state.
func TestScenarioE_FormulaQueryWithBindings(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE parent(parent TEXT, child TEXT)`)
	mustDeclare(t, e, `CREATE TABLE grandparent(grandparent TEXT, grandchild TEXT)`)
	_, err := e.Exec(ctx, `INSERT INTO "parent" VALUES ('Alice', 'Bob')`, nil)
	require.NoError(t, err)
	_, err = e.Exec(ctx, `INSERT INTO "parent" VALUES ('Bob', 'Charlie')`, nil)
	require.NoError(t, err)
	x, y, z := logic.NewVar(), logic.NewVar(), logic.NewVar()
	require.NoError(t, e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("grandparent", x, z),
		logic.NewPredicate("parent", x, y),
		logic.NewPredicate("parent", y, z),
	)))

	zVar := logic.NewVar()
	c, err := e.Query(ctx, logic.NewFact(logic.NewPredicate("grandparent", logic.String("Alice"), zVar)))
	require.NoError(t, err)
	row, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := row["A"].AsString()
	assert.Equal(t, "Charlie", got)
	c.Close()

	c, err = e.Query(ctx, logic.NewFact(logic.NewPredicate("grandparent", logic.String("Alice"), logic.String("Charlie"))))
	require.NoError(t, err)
	_, ok, err = c.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	c.Close()

	c, err = e.Query(ctx, logic.NewFact(logic.NewPredicate("grandparent", logic.String("Alice"), logic.String("Zeus"))))
	require.NoError(t, err)
	_, ok, err = c.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	c.Close()
}

// Scenario F (unsafe rule rejected).
func TestScenarioF_UnsafeRuleRejected(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	mustDeclare(t, e, `CREATE TABLE human(name TEXT)`)
	mustDeclare(t, e, `CREATE TABLE mortal(name TEXT, age TEXT)`)

	x, y := logic.NewVar(), logic.NewVar()
	err := e.Assert(ctx, logic.NewRule(
		logic.NewPredicate("mortal", x, y),
		logic.NewPredicate("human", x),
	))
	require.Error(t, err)
	assert.True(t, rbdberr.Is(err, rbdberr.CodeUnsafeVariables))
}

// Scenario G (multi-statement rescue with parameters).
func TestScenarioG_MultiStatementRescueWithParameters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rbdb.db")

	s1, err := store.Open(context.Background(), path, config.Options{})
	require.NoError(t, err)
	e1 := New(s1)
	ctx := context.Background()
	mustDeclare(t, e1, `CREATE TABLE users(id TEXT, name TEXT)`)
	mustDeclare(t, e1, `CREATE TABLE posts(id TEXT, title TEXT)`)
	require.NoError(t, e1.Assert(ctx, logic.NewFact(logic.NewPredicate("posts", logic.String("p1"), logic.String("hello")))))
	require.NoError(t, s1.Close())

	s2, err := store.Open(context.Background(), path, config.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() })
	e2 := New(s2)

	sqlText := `INSERT INTO "users" VALUES (?,?); SELECT * FROM "posts" WHERE id=?; INSERT INTO "users" VALUES (?,?)`
	c, err := e2.QuerySQL(ctx, sqlText, []any{"u1", "alice", "p1", "u2", "bob"})
	require.NoError(t, err)
	// The cursor yields rows of the final statement only; that is the
	// second INSERT, so there are none. The SELECT ran to completion
	// after rescue rebuilt the posts view, which now answers directly.
	_, ok, err := c.Next(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	c.Close()

	postRows := querySQL(t, e2, `SELECT * FROM "posts" WHERE id = ?`, "p1")
	require.Len(t, postRows, 1)
	title, _ := postRows[0]["title"].AsString()
	assert.Equal(t, "hello", title)

	rows := querySQL(t, e2, `SELECT * FROM "users" ORDER BY id`)
	require.Len(t, rows, 2)
	id0, _ := rows[0]["id"].AsString()
	id1, _ := rows[1]["id"].AsString()
	assert.Equal(t, "u1", id0)
	assert.Equal(t, "u2", id1)
}
