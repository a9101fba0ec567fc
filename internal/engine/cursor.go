package engine

import (
	"context"
	"database/sql"

	"github.com/chkn/rbdb/internal/codec"
	"github.com/chkn/rbdb/internal/cursor"
	"github.com/chkn/rbdb/internal/logic"
)

// Cursor is the engine-level result handle, re-exported so callers of
// this package never need to import internal/cursor directly.
type Cursor = cursor.Cursor

// Row is one row of cursor results, keyed by column name.
type Row = cursor.Row

func newCursor(ctx context.Context, db *sql.DB, sqlText string, args []any, rescue cursor.Rescue) (*Cursor, error) {
	return cursor.New(ctx, db, sqlText, args, rescue)
}

func encodeFormula(f logic.Formula) ([]byte, error) {
	return codec.EncodeToJSON(f)
}
