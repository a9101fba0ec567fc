// Package config holds rbdb's session options and the schema-version
// compatibility check performed on every Open, generalizing the
// teacher's versioned SystemConfig/ModelCard stamp-and-check pattern
// onto the Rule Store's schema instead of a model identity.
package config

import (
	"fmt"

	"github.com/chkn/rbdb/internal/logic"
)

// SchemaVersion is stamped into the `_config` table at install time and
// compared against on every subsequent open. Bumping it is a breaking
// change to the Rule Store's DDL; rbdb never migrates an existing
// database's schema, per spec.md's Non-goals, so a mismatch is always
// an error, never an automatic upgrade.
const SchemaVersion = "1"

// Options configures a session beyond the defaults. The zero value is
// valid and yields DefaultOptions' behavior, matching the teacher's
// Options-struct-with-sane-zero-value style.
type Options struct {
	// BusyTimeoutMillis bounds how long a connection waits on SQLITE_BUSY
	// before returning an error. 0 means use the default below.
	BusyTimeoutMillis int

	// ForeignKeys enables SQLite foreign-key enforcement (`PRAGMA
	// foreign_keys=ON`), covering the `_predicate.id` / `_rule.id`
	// references to `_entity(id)` declared in the Rule Store schema
	// (spec.md §4.8).
	ForeignKeys bool

	// MaxVariables tightens logic.MaxVariables for this session: a
	// formula canonicalized through this session's Engine is rejected
	// once it carries more than MaxVariables distinct variables, letting
	// a caller catch runaway rule bodies earlier than the hard 256-index
	// ceiling. 0 means use the package default (256, spec.md §4.1); a
	// value above 256 is clamped back down to it, since canonical
	// variable indices are a single byte.
	MaxVariables int
}

// DefaultOptions returns the Options rbdb.Open uses when the caller
// passes none.
func DefaultOptions() Options {
	return Options{
		BusyTimeoutMillis: 5000,
		ForeignKeys:       true,
		MaxVariables:      logic.MaxVariables,
	}
}

// WithDefaults fills any zero-valued field of o with DefaultOptions'
// value, so a caller can override a single field without having to
// restate the rest.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.BusyTimeoutMillis == 0 {
		o.BusyTimeoutMillis = d.BusyTimeoutMillis
	}
	if o.MaxVariables == 0 {
		o.MaxVariables = d.MaxVariables
	}
	return o
}

// CheckCompatibility compares a `_config` table's stamped schema
// version against SchemaVersion, returning an error describing the
// mismatch. An empty storedVersion means the row was never written
// (pre-rbdb file, or a corrupt install) and is always incompatible.
func CheckCompatibility(storedVersion string) error {
	if storedVersion == "" {
		return fmt.Errorf("config: database has no stamped schema version")
	}
	if storedVersion != SchemaVersion {
		return fmt.Errorf("config: schema version mismatch: database has %q, engine supports %q", storedVersion, SchemaVersion)
	}
	return nil
}
