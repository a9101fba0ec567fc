package ddl

import (
	"testing"

	"github.com/chkn/rbdb/internal/rbdberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryParseNonCreateTableIsUnhandled(t *testing.T) {
	_, ok, err := TryParse("SELECT * FROM foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryParseSimple(t *testing.T) {
	p, ok, err := TryParse(`CREATE TABLE human (name TEXT)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "human", p.TableName)
	assert.False(t, p.IfNotExists)
	assert.Equal(t, []string{"name"}, p.Columns)
}

func TestTryParseIfNotExists(t *testing.T) {
	p, ok, err := TryParse(`CREATE TABLE IF NOT EXISTS parent (parent_name TEXT, child_name TEXT)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.IfNotExists)
	assert.Equal(t, []string{"parent_name", "child_name"}, p.Columns)
}

func TestTryParseDiscardsTableConstraints(t *testing.T) {
	p, ok, err := TryParse(`CREATE TABLE edge (a TEXT, b TEXT, UNIQUE(a, b))`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, p.Columns)
}

func TestTryParseCommaInsideNestedParensNotSplit(t *testing.T) {
	p, ok, err := TryParse(`CREATE TABLE t (a TEXT CHECK(a IN ('x', 'y')), b INTEGER)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, p.Columns)
}

func TestTryParseBracketedTableName(t *testing.T) {
	p, ok, err := TryParse(`CREATE TABLE [my table] (a TEXT)`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "my table", p.TableName)
}

func TestTryParseRejectsQuotedColumn(t *testing.T) {
	_, ok, err := TryParse(`CREATE TABLE t ("weird col" TEXT)`)
	require.True(t, ok)
	require.Error(t, err)
	assert.True(t, rbdberr.Is(err, rbdberr.CodeQuotedColumnNotSupported))
}
