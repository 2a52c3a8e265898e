package driven

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// ProgressStore persists the user's progress record, migration backups and
// migration/rollback history. Capacity exhaustion surfaces as
// domain.ErrStorageQuota.
type ProgressStore interface {
	// Get returns the current progress record, or an empty record if none
	// was ever stored.
	Get(ctx context.Context) (*domain.ProgressRecord, error)

	// Put replaces the current progress record.
	Put(ctx context.Context, p *domain.ProgressRecord) error

	// SaveBackup stores a pre-migration copy keyed by migration ID.
	SaveBackup(ctx context.Context, migrationID string, p *domain.ProgressRecord) error

	// GetBackup returns the backup for a migration ID, or
	// domain.ErrBackupNotFound.
	GetBackup(ctx context.Context, migrationID string) (*domain.ProgressRecord, error)

	// RecordMigration appends to the migration history and marks the
	// migration completed.
	RecordMigration(ctx context.Context, rec domain.MigrationRecord) error

	// RecordRollback appends to the rollback history.
	RecordRollback(ctx context.Context, rec domain.RollbackRecord) error

	// CompletedMigrations lists the IDs of committed migrations.
	CompletedMigrations(ctx context.Context) ([]string, error)
}
