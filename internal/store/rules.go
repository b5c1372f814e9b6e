// Package store persists guideline versions and rules in SQLite and serves
// them as a rule repository.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"trainrx/internal/catalog"
	"trainrx/internal/logging"
	"trainrx/internal/types"
)

// Driver names registered by the imported SQLite drivers.
const (
	DriverPureGo = "sqlite"  // modernc.org/sqlite
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
)

// ErrEmptyVersion is returned when importing a published version without rules.
var ErrEmptyVersion = errors.New("version has no rules")

// RuleStore keeps guideline versions and their rules in SQLite.
type RuleStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	driver string
}

// Open initializes the SQLite database at path using driver.
// The path ":memory:" opens a private in-memory database.
func Open(driver, path string) (*RuleStore, error) {
	if driver == "" {
		driver = DriverPureGo
	}
	if driver != DriverPureGo && driver != DriverCGO {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &RuleStore{db: db, dbPath: path, driver: driver}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.StoreDebug("opened %s with driver %s", path, driver)
	return s, nil
}

// initialize creates the required tables and migrates older ones.
func (s *RuleStore) initialize() error {
	versionsTable := `
	CREATE TABLE IF NOT EXISTS guideline_versions (
		tenant TEXT NOT NULL,
		id TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'published',
		is_default INTEGER NOT NULL DEFAULT 0,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tenant, id)
	);
	CREATE INDEX IF NOT EXISTS idx_versions_default ON guideline_versions(tenant, is_default);
	`

	rulesTable := `
	CREATE TABLE IF NOT EXISTS guideline_rules (
		row_id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL,
		version_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		priority TEXT NOT NULL,
		priority_rank INTEGER NOT NULL,
		condition_json TEXT NOT NULL,
		outputs_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		UNIQUE(tenant, version_id, rule_id)
	);
	CREATE INDEX IF NOT EXISTS idx_rules_version ON guideline_rules(tenant, version_id, priority_rank, created_at);
	`

	for _, table := range []string{versionsTable, rulesTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return RunMigrations(s.db)
}

// Close closes the database connection.
func (s *RuleStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *RuleStore) Path() string { return s.dbPath }

// Driver returns the SQL driver name in use.
func (s *RuleStore) Driver() string { return s.driver }

// ImportStats summarizes an import.
type ImportStats struct {
	Versions int
	Rules    int
}

// ImportCatalog mirrors every version of c into the store in one
// transaction. Imported versions replace stored ones with the same ID.
func (s *RuleStore) ImportCatalog(ctx context.Context, c *catalog.Catalog) (ImportStats, error) {
	var stats ImportStats
	for _, tenant := range c.Tenants() {
		for _, v := range c.Versions(tenant) {
			if v.Status == types.StatusPublished && len(v.Rules) == 0 {
				return stats, fmt.Errorf("tenant %q version %q: %w", tenant, v.ID, ErrEmptyVersion)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, tenant := range c.Tenants() {
		for _, v := range c.Versions(tenant) {
			if err := importVersion(ctx, tx, v); err != nil {
				return stats, err
			}
			stats.Versions++
			stats.Rules += len(v.Rules)
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit import: %w", err)
	}
	logging.Store("imported %d versions, %d rules", stats.Versions, stats.Rules)
	return stats, nil
}

func importVersion(ctx context.Context, tx *sql.Tx, v catalog.Version) error {
	if v.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE guideline_versions SET is_default = 0 WHERE tenant = ? AND id <> ?`,
			v.Tenant, v.ID); err != nil {
			return fmt.Errorf("failed to clear default version: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO guideline_versions (tenant, id, label, status, is_default, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, id) DO UPDATE SET
			label = excluded.label,
			status = excluded.status,
			is_default = excluded.is_default,
			imported_at = excluded.imported_at`,
		v.Tenant, v.ID, v.Label, string(v.Status), boolToInt(v.IsDefault), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert version %q: %w", v.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM guideline_rules WHERE tenant = ? AND version_id = ?`, v.Tenant, v.ID); err != nil {
		return fmt.Errorf("failed to clear rules of version %q: %w", v.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO guideline_rules
			(row_id, tenant, version_id, rule_id, priority, priority_rank, condition_json, outputs_json, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule insert: %w", err)
	}
	defer stmt.Close()

	for seq, rule := range v.Rules {
		condition, err := json.Marshal(rule.Condition)
		if err != nil {
			return fmt.Errorf("failed to encode condition of rule %q: %w", rule.ID, err)
		}
		outputs, err := json.Marshal(rule.Outputs)
		if err != nil {
			return fmt.Errorf("failed to encode outputs of rule %q: %w", rule.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), v.Tenant, v.ID, rule.ID, string(rule.Priority), rule.Priority.Rank(),
			string(condition), string(outputs), rule.CreatedAt.UnixMicro(), seq,
		); err != nil {
			return fmt.Errorf("failed to insert rule %q: %w", rule.ID, err)
		}
	}
	return nil
}

// ResolveVersion finds a tenant's version; types.DefaultVersion selects the
// tenant's default.
func (s *RuleStore) ResolveVersion(ctx context.Context, tenant, id string) (types.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, label, status, is_default FROM guideline_versions WHERE tenant = ? AND id = ?`
	args := []interface{}{tenant, id}
	if id == types.DefaultVersion {
		query = `SELECT id, label, status, is_default FROM guideline_versions WHERE tenant = ? AND is_default = 1`
		args = []interface{}{tenant}
	}

	v := types.Version{Tenant: tenant}
	var status string
	var isDefault int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&v.ID, &v.Label, &status, &isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Version{}, &types.NotFoundError{Resource: "guideline version", ID: id}
	}
	if err != nil {
		return types.Version{}, fmt.Errorf("failed to resolve version %q: %w", id, err)
	}
	v.Status = types.VersionStatus(status)
	v.IsDefault = isDefault != 0
	return v, nil
}

// ListRules returns a version's rules ordered by priority, then creation time.
func (s *RuleStore) ListRules(ctx context.Context, tenant, versionID string) ([]types.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, priority, condition_json, outputs_json, created_at
		FROM guideline_rules
		WHERE tenant = ? AND version_id = ?
		ORDER BY priority_rank DESC, created_at ASC, seq ASC`,
		tenant, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := []types.Rule{}
	for rows.Next() {
		var (
			r         types.Rule
			priority  string
			condition string
			outputs   string
			createdUS int64
		)
		if err := rows.Scan(&r.ID, &priority, &condition, &outputs, &createdUS); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Priority = types.Priority(priority)
		r.CreatedAt = time.UnixMicro(createdUS).UTC()
		if err := json.Unmarshal([]byte(condition), &r.Condition); err != nil {
			return nil, fmt.Errorf("rule %q has a corrupt condition: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
			return nil, fmt.Errorf("rule %q has corrupt outputs: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return rules, nil
}

// VersionSummary is a stored version with its rule count.
type VersionSummary struct {
	types.Version
	RuleCount int `json:"rule_count"`
}

// ListVersions returns a tenant's versions, newest import first.
func (s *RuleStore) ListVersions(ctx context.Context, tenant string) ([]VersionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.label, v.status, v.is_default, COUNT(r.row_id)
		FROM guideline_versions v
		LEFT JOIN guideline_rules r ON r.tenant = v.tenant AND r.version_id = v.id
		WHERE v.tenant = ?
		GROUP BY v.tenant, v.id
		ORDER BY v.is_default DESC, v.imported_at DESC, v.id ASC`,
		tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var out []VersionSummary
	for rows.Next() {
		vs := VersionSummary{Version: types.Version{Tenant: tenant}}
		var status string
		var isDefault int
		if err := rows.Scan(&vs.ID, &vs.Label, &status, &isDefault, &vs.RuleCount); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		vs.Status = types.VersionStatus(status)
		vs.IsDefault = isDefault != 0
		out = append(out, vs)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
