package driving

import (
	"context"

	"github.com/lernkern/lernkern/internal/core/domain"
)

// MigrationService transforms legacy progress records into bucket-annotated
// form. Migration is transactional: backup, transform, verify, commit.
type MigrationService interface {
	// Migrate annotates the given progress record and commits it.
	// A stamped record is refused with reason "already_migrated" unless
	// force is set. Verification failure rolls back automatically.
	Migrate(ctx context.Context, progress *domain.ProgressRecord, force bool) (*domain.MigrationResult, error)

	// Rollback restores the backup of a committed migration.
	Rollback(ctx context.Context, migrationID string) error

	// IsMigrated reports whether the record carries a migration stamp.
	IsMigrated(progress *domain.ProgressRecord) bool
}
