package compiler

import (
	"testing"

	"github.com/chkn/rbdb/internal/logic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func columnsFor(schema map[string][]string) ColumnsOf {
	return func(name string) ([]string, error) {
		cols, ok := schema[name]
		if !ok {
			return nil, assert.AnError
		}
		return cols, nil
	}
}

func canon(t *testing.T, f logic.Formula) logic.Formula {
	t.Helper()
	c, err := logic.Canonicalize(f)
	require.NoError(t, err)
	return c
}

func TestCompileRuleSimpleJoin(t *testing.T) {
	x, y, z := logic.NewVar(), logic.NewVar(), logic.NewVar()
	rule := canon(t, logic.NewRule(
		logic.NewPredicate("grandparent", x, z),
		logic.NewPredicate("parent", x, y),
		logic.NewPredicate("parent", y, z),
	))
	cols := columnsFor(map[string][]string{
		"grandparent": {"gp", "gc"},
		"parent":      {"parent_name", "child_name"},
	})
	sql, err := CompileRule(rule, cols, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, `FROM "parent" AS "parent"`)
	assert.Contains(t, sql, `JOIN "parent" AS "parent2" ON`)
	assert.Contains(t, sql, `"parent2"."parent_name" = "parent"."child_name"`)
	assert.Contains(t, sql, `AS "gp"`)
	assert.Contains(t, sql, `AS "gc"`)
}

func TestCompileRuleConstantInBody(t *testing.T) {
	x := logic.NewVar()
	rule := canon(t, logic.NewRule(
		logic.NewPredicate("athenian", x),
		logic.NewPredicate("livesIn", x, logic.String("Athens")),
	))
	cols := columnsFor(map[string][]string{
		"athenian": {"name"},
		"livesin":  {"person", "city"},
	})
	sql, err := CompileRule(rule, cols, nil)
	require.NoError(t, err)
	assert.Contains(t, sql, `WHERE "livesin"."city" = 'Athens'`)
}

func TestCompileQueryGroundYieldsSat(t *testing.T) {
	f := canon(t, logic.NewFact(logic.NewPredicate("human", logic.String("Socrates"))))
	cols := columnsFor(map[string][]string{"human": {"name"}})
	sql, ground, err := CompileQuery(f, cols)
	require.NoError(t, err)
	assert.True(t, ground)
	assert.Contains(t, sql, "SELECT 1 AS sat")
	assert.Contains(t, sql, `"name" = 'Socrates'`)
}

func TestCompileQueryWithVariableProjectsDisplayName(t *testing.T) {
	x := logic.NewVar()
	f := canon(t, logic.NewFact(logic.NewPredicate("human", x)))
	cols := columnsFor(map[string][]string{"human": {"name"}})
	sql, ground, err := CompileQuery(f, cols)
	require.NoError(t, err)
	assert.False(t, ground)
	assert.Contains(t, sql, `"name" AS "A"`)
}

func TestCompileQueryRejectsNonEmptyBody(t *testing.T) {
	x := logic.NewVar()
	f := canon(t, logic.NewRule(logic.NewPredicate("mortal", x), logic.NewPredicate("human", x)))
	cols := columnsFor(map[string][]string{"mortal": {"name"}, "human": {"name"}})
	_, _, err := CompileQuery(f, cols)
	assert.Error(t, err)
}
