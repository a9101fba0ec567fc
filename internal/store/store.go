// Package store owns the physical SQLite connection and the Rule
// Store's schema lifecycle: opening a database file, installing the
// schema and UDFs on first use, and stamping/checking the schema
// version, generalizing the teacher's Manager.CreateDatabase /
// GetDBConfig pair onto a single long-lived connection instead of a
// directory of named database folders.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chkn/rbdb/internal/config"
	"github.com/chkn/rbdb/internal/udf"
	"github.com/pkg/errors"
)

// Store wraps the single *sql.DB connection a session holds. RBDB pins
// MaxOpenConns to 1: the Rule Store's session views and INSTEAD-OF-
// INSERT triggers are TEMP objects, private to one SQLite connection,
// so a connection pool would silently scatter a session's materialized
// predicates across connections a query could never see.
type Store struct {
	DB      *sql.DB
	Options config.Options
}

// Open opens (creating if absent) a SQLite database file at path,
// installs the Rule Store schema if this is a fresh file, and checks
// schema-version compatibility otherwise.
func Open(ctx context.Context, path string, opts config.Options) (*Store, error) {
	udf.Register()
	opts = opts.WithDefaults()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, opts.BusyTimeoutMillis)
	if opts.ForeignKeys {
		dsn += "&_foreign_keys=on"
	}
	db, err := sql.Open(udf.DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	db.SetMaxOpenConns(1)

	s := &Store{DB: db, Options: opts}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// ensureSchema installs the Rule Store DDL (idempotent, IF NOT EXISTS
// throughout) and then either stamps a fresh schema-version config row
// or checks an existing one for compatibility, mirroring the teacher's
// apply-schema-then-stamp-config transaction in CreateDatabase.
func (s *Store) ensureSchema(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin schema tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, SchemaSQL); err != nil {
		return errors.Wrap(err, "store: apply schema")
	}

	stored, err := readConfigValue(ctx, tx, configKeySchemaVersion)
	if err != nil {
		return errors.Wrap(err, "store: read schema version")
	}
	if stored == "" {
		if err := writeConfigValue(ctx, tx, configKeySchemaVersion, config.SchemaVersion); err != nil {
			return errors.Wrap(err, "store: stamp schema version")
		}
	} else if err := config.CheckCompatibility(stored); err != nil {
		return err
	}

	return tx.Commit()
}
