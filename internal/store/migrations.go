package store

import (
	"database/sql"
	"fmt"

	"trainrx/internal/logging"
)

// Schema versions:
// v1: guideline_versions (tenant, id, is_default), guideline_rules without seq
// v2: version label and status, rule seq for stable ordering of equal timestamps
const CurrentSchemaVersion = 2

// Migration adds a column to a table created by an older release.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after v1.
// These handle databases whose tables exist but predate a column.
var pendingMigrations = []Migration{
	{"guideline_versions", "label", "TEXT NOT NULL DEFAULT ''"},
	{"guideline_versions", "status", "TEXT NOT NULL DEFAULT 'published'"},
	{"guideline_rules", "seq", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations brings an existing rule database up to CurrentSchemaVersion.
func RunMigrations(db *sql.DB) error {
	from := GetSchemaVersion(db)
	if from >= CurrentSchemaVersion {
		logging.StoreDebug("schema at v%d, no migrations needed", from)
		return SetSchemaVersion(db, from)
	}

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) || columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		logging.StoreDebug("executing migration: %s", query)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		applied++
	}

	if err := SetSchemaVersion(db, CurrentSchemaVersion); err != nil {
		return err
	}
	logging.Store("schema migrated v%d -> v%d (%d columns added)", from, CurrentSchemaVersion, applied)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

// GetSchemaVersion returns the recorded schema version. Databases without a
// schema_versions row are inferred from their columns.
func GetSchemaVersion(db *sql.DB) int {
	if tableExists(db, "schema_versions") {
		var version int
		if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err == nil && version > 0 {
			return version
		}
	}

	switch {
	case !tableExists(db, "guideline_rules"):
		return 0
	case columnExists(db, "guideline_rules", "seq") && columnExists(db, "guideline_versions", "status"):
		return 2
	default:
		return 1
	}
}

// SetSchemaVersion records version as applied.
func SetSchemaVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO schema_versions (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
