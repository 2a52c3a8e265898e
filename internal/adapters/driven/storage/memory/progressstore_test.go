package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/core/domain"
)

func TestProgressStore_GetEmpty(t *testing.T) {
	store := NewProgressStore()

	record, err := store.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Empty(t, record.CompletedModules)
	assert.False(t, record.IsMigrated())
}

func TestProgressStore_PutAndGet(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	record := &domain.ProgressRecord{
		CompletedModules: []domain.ModuleProgress{{ID: "bp-01"}},
	}
	require.NoError(t, store.Put(ctx, record))

	// The store keeps a copy; mutating the original must not leak in.
	record.CompletedModules[0].ID = "mutated"

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bp-01", got.CompletedModules[0].ID)
}

func TestProgressStore_Backups(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	record := &domain.ProgressRecord{
		QuizAttempts: []domain.QuizAttempt{{QuizID: "quiz-01", Score: 80}},
	}
	require.NoError(t, store.SaveBackup(ctx, "mig-1", record))

	got, err := store.GetBackup(ctx, "mig-1")
	require.NoError(t, err)
	assert.Equal(t, "quiz-01", got.QuizAttempts[0].QuizID)

	_, err = store.GetBackup(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrBackupNotFound)
}

func TestProgressStore_BackupQuota(t *testing.T) {
	store := NewProgressStore()
	store.MaxBackups = 1
	ctx := context.Background()

	require.NoError(t, store.SaveBackup(ctx, "mig-1", &domain.ProgressRecord{}))
	err := store.SaveBackup(ctx, "mig-2", &domain.ProgressRecord{})
	assert.ErrorIs(t, err, domain.ErrStorageQuota)
}

func TestProgressStore_History(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	require.NoError(t, store.RecordMigration(ctx, domain.MigrationRecord{ID: "mig-1", At: time.Now()}))
	require.NoError(t, store.RecordMigration(ctx, domain.MigrationRecord{ID: "mig-2", At: time.Now()}))
	require.NoError(t, store.RecordRollback(ctx, domain.RollbackRecord{MigrationID: "mig-1", At: time.Now()}))

	ids, err := store.CompletedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"mig-1", "mig-2"}, ids)

	rollbacks := store.Rollbacks()
	require.Len(t, rollbacks, 1)
	assert.Equal(t, "mig-1", rollbacks[0].MigrationID)
}
