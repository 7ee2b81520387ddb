// Package sqlite provides a SQLite-backed system catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/rpg-systems/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/rpg-systems/internal/systems/storage"
	"github.com/louisbranch/rpg-systems/internal/systems/storage/sqlite/migrations"
	"github.com/louisbranch/rpg-systems/internal/systems/system"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists the system catalog in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.CatalogStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite catalog and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, migrations.Root); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// GetSystemVersion returns one version with its resources and stats.
func (s *Store) GetSystemVersion(ctx context.Context, id, version string) (storage.SystemVersion, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SystemVersion{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, selectSystems+` WHERE id = ? AND version = ?`, id, version)
	v, err := scanSystem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SystemVersion{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SystemVersion{}, fmt.Errorf("get system version: %w", err)
	}
	resources, err := s.resources(ctx, id, version)
	if err != nil {
		return storage.SystemVersion{}, err
	}
	v.Resources = resources
	return v, nil
}

// ListSystemVersions returns the versions of one system, oldest first.
func (s *Store) ListSystemVersions(ctx context.Context, id string) ([]storage.SystemVersion, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listSystems(ctx, selectSystems+` WHERE id = ?`, id)
}

// ListSystems returns every stored version ordered by id and version.
func (s *Store) ListSystems(ctx context.Context) ([]storage.SystemVersion, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listSystems(ctx, selectSystems)
}

// PutSystemVersion inserts a version and its resources in one transaction.
func (s *Store) PutSystemVersion(ctx context.Context, v storage.SystemVersion) error {
	return s.putVersion(ctx, v, "")
}

// PutSupersedingVersion inserts v and marks previous superseded by it in
// one transaction.
func (s *Store) PutSupersedingVersion(ctx context.Context, v storage.SystemVersion, previous string) error {
	if strings.TrimSpace(previous) == "" {
		return fmt.Errorf("previous version is required")
	}
	return s.putVersion(ctx, v, previous)
}

func (s *Store) putVersion(ctx context.Context, v storage.SystemVersion, previous string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id := strings.TrimSpace(v.ID)
	version := strings.TrimSpace(v.Version)
	if id == "" {
		return fmt.Errorf("system id is required")
	}
	if version == "" {
		return fmt.Errorf("system version is required")
	}
	if strings.TrimSpace(v.ContentHash) == "" {
		return fmt.Errorf("content hash is required")
	}
	importedAt := v.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put system version: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO systems (id, version, name, content_hash, definition_json, superseded_by, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, version, v.Name, v.ContentHash, v.Definition, v.SupersededBy, toMillis(importedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert system: %w", err)
	}

	for _, res := range v.Resources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO system_resources (system_id, system_version, resource_id, name, kind, document_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, version, res.ID, res.Name, res.Kind, res.Document,
		); err != nil {
			return fmt.Errorf("insert resource %s: %w", res.ID, err)
		}
		for _, stat := range res.Stats {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO resource_stats (system_id, system_version, resource_id, stat_name, stat_type, line)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				id, version, res.ID, stat.Name, stat.Type, stat.Line,
			); err != nil {
				return fmt.Errorf("insert stat %s.%s: %w", res.ID, stat.Name, err)
			}
		}
	}

	if previous != "" {
		result, err := tx.ExecContext(ctx,
			`UPDATE systems SET superseded_by = ? WHERE id = ? AND version = ?`,
			version, id, previous,
		)
		if err != nil {
			return fmt.Errorf("mark superseded: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark superseded rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put system version: %w", err)
	}
	return nil
}

const selectSystems = `SELECT id, version, name, content_hash, definition_json, superseded_by, imported_at FROM systems`

type scanner interface {
	Scan(dest ...any) error
}

func scanSystem(row scanner) (storage.SystemVersion, error) {
	var (
		v          storage.SystemVersion
		importedAt int64
	)
	if err := row.Scan(&v.ID, &v.Version, &v.Name, &v.ContentHash, &v.Definition, &v.SupersededBy, &importedAt); err != nil {
		return storage.SystemVersion{}, err
	}
	v.ImportedAt = fromMillis(importedAt)
	return v, nil
}

func (s *Store) listSystems(ctx context.Context, query string, args ...any) ([]storage.SystemVersion, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()

	var out []storage.SystemVersion
	for rows.Next() {
		v, err := scanSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan system: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate systems: %w", err)
	}
	// Versions are ordered by semver precedence, which SQL cannot express.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return system.CompareVersions(out[i].Version, out[j].Version) < 0
	})
	return out, nil
}

func (s *Store) resources(ctx context.Context, id, version string) ([]storage.Resource, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT resource_id, name, kind, document_json FROM system_resources
		 WHERE system_id = ? AND system_version = ? ORDER BY resource_id`,
		id, version,
	)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	var out []storage.Resource
	for rows.Next() {
		var res storage.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Kind, &res.Document); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	rows.Close()

	for idx := range out {
		stats, err := s.stats(ctx, id, version, out[idx].ID)
		if err != nil {
			return nil, err
		}
		out[idx].Stats = stats
	}
	return out, nil
}

func (s *Store) stats(ctx context.Context, id, version, resourceID string) ([]storage.Stat, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT stat_name, stat_type, line FROM resource_stats
		 WHERE system_id = ? AND system_version = ? AND resource_id = ? ORDER BY line, stat_name`,
		id, version, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	var out []storage.Stat
	for rows.Next() {
		var stat storage.Stat
		if err := rows.Scan(&stat.Name, &stat.Type, &stat.Line); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		out = append(out, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
