package store

import (
	"context"
	"database/sql"
)

const configKeySchemaVersion = "schema_version"

// readConfigValue reads a single `_config` row's value, mirroring the
// teacher's SELECT-key-value-into-map GetDBConfig pattern narrowed to
// one key at a time since the Rule Store's config table only ever
// tracks schema version, not a whole model card.
func readConfigValue(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM _config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func writeConfigValue(ctx context.Context, e interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, key, value string) error {
	_, err := e.ExecContext(ctx, `INSERT INTO _config(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
