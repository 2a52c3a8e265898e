package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
)

// Ensure ProgressStore implements the interface.
var _ driven.ProgressStore = (*ProgressStore)(nil)

// ProgressStore is an in-memory implementation of driven.ProgressStore for
// testing and ephemeral runs. MaxBackups simulates a capacity limit; zero
// means unlimited.
type ProgressStore struct {
	mu         sync.Mutex
	current    *domain.ProgressRecord
	backups    map[string]*domain.ProgressRecord
	migrations []domain.MigrationRecord
	rollbacks  []domain.RollbackRecord

	// MaxBackups caps the backup map; SaveBackup beyond it returns
	// domain.ErrStorageQuota. Zero disables the cap.
	MaxBackups int
}

// NewProgressStore creates an empty in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		backups: make(map[string]*domain.ProgressRecord),
	}
}

// Get returns the current progress record, or an empty record if none was
// ever stored.
func (s *ProgressStore) Get(ctx context.Context) (*domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return &domain.ProgressRecord{}, nil
	}
	return s.current.Clone(), nil
}

// Put replaces the current progress record.
func (s *ProgressStore) Put(ctx context.Context, p *domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = p.Clone()
	return nil
}

// SaveBackup stores a pre-migration copy keyed by migration ID.
func (s *ProgressStore) SaveBackup(ctx context.Context, migrationID string, p *domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MaxBackups > 0 && len(s.backups) >= s.MaxBackups {
		return fmt.Errorf("backup store holds %d entries: %w", len(s.backups), domain.ErrStorageQuota)
	}
	s.backups[migrationID] = p.Clone()
	return nil
}

// GetBackup returns the backup for a migration ID.
func (s *ProgressStore) GetBackup(ctx context.Context, migrationID string) (*domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, ok := s.backups[migrationID]
	if !ok {
		return nil, fmt.Errorf("backup %s: %w", migrationID, domain.ErrBackupNotFound)
	}
	return backup.Clone(), nil
}

// RecordMigration appends to the migration history.
func (s *ProgressStore) RecordMigration(ctx context.Context, rec domain.MigrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.migrations = append(s.migrations, rec)
	return nil
}

// RecordRollback appends to the rollback history.
func (s *ProgressStore) RecordRollback(ctx context.Context, rec domain.RollbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollbacks = append(s.rollbacks, rec)
	return nil
}

// CompletedMigrations lists the IDs of committed migrations, oldest first.
func (s *ProgressStore) CompletedMigrations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.migrations))
	for _, rec := range s.migrations {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// Rollbacks returns the recorded rollbacks, for tests.
func (s *ProgressStore) Rollbacks() []domain.RollbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RollbackRecord(nil), s.rollbacks...)
}
