package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/lernkern/lernkern/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ProgressStore = (*Store)(nil)

// maxBackups bounds the backup table. A full table surfaces as
// domain.ErrStorageQuota so migrations abort cleanly.
const maxBackups = 20

// Store is the SQLite-backed progress store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a progress store at the specified data directory.
// If dataDir is empty, defaults to ~/.lernkern/data/progress.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lernkern", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "progress.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending schema migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Get returns the current progress record, or an empty record if none was
// ever stored.
func (s *Store) Get(ctx context.Context) (*domain.ProgressRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM progress WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ProgressRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}

	var record domain.ProgressRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	return &record, nil
}

// Put replaces the current progress record.
func (s *Store) Put(ctx context.Context, p *domain.ProgressRecord) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, string(data))
	if err != nil {
		return fmt.Errorf("writing progress: %w", err)
	}
	return nil
}

// SaveBackup stores a pre-migration copy keyed by migration ID. A full
// backup table surfaces as domain.ErrStorageQuota.
func (s *Store) SaveBackup(ctx context.Context, migrationID string, p *domain.ProgressRecord) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM backups").Scan(&count); err != nil {
		return fmt.Errorf("counting backups: %w", err)
	}
	if count >= maxBackups {
		return fmt.Errorf("backup table holds %d entries: %w", count, domain.ErrStorageQuota)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backups (migration_id, data) VALUES (?, ?)
		ON CONFLICT(migration_id) DO UPDATE SET data = excluded.data
	`, migrationID, string(data))
	if err != nil {
		return fmt.Errorf("writing backup %s: %w", migrationID, err)
	}
	return nil
}

// GetBackup returns the backup for a migration ID.
func (s *Store) GetBackup(ctx context.Context, migrationID string) (*domain.ProgressRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM backups WHERE migration_id = ?", migrationID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("backup %s: %w", migrationID, domain.ErrBackupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", migrationID, err)
	}

	var record domain.ProgressRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decoding backup %s: %w", migrationID, err)
	}
	return &record, nil
}

// RecordMigration appends to the migration history.
func (s *Store) RecordMigration(ctx context.Context, rec domain.MigrationRecord) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("encoding migration summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO migration_history (id, at, summary) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.At, string(summary))
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", rec.ID, err)
	}
	return nil
}

// RecordRollback appends to the rollback history.
func (s *Store) RecordRollback(ctx context.Context, rec domain.RollbackRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rollback_history (migration_id, at) VALUES (?, ?)",
		rec.MigrationID, rec.At)
	if err != nil {
		return fmt.Errorf("recording rollback of %s: %w", rec.MigrationID, err)
	}
	return nil
}

// CompletedMigrations lists the IDs of committed migrations, oldest first.
func (s *Store) CompletedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM migration_history ORDER BY at")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning migration id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
