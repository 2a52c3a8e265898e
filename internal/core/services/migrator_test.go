package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernkern/lernkern/internal/adapters/driven/storage/memory"
	"github.com/lernkern/lernkern/internal/core/domain"
)

func newTestMigrator(t *testing.T) (*ProgressMigrator, *memory.ProgressStore, *fakeClock) {
	t.Helper()
	store, mapper := newTestStore(t)
	progress := memory.NewProgressStore()
	clock := newFakeClock()
	return NewProgressMigrator(store, mapper, progress, clock), progress, clock
}

func legacyProgress(clock *fakeClock) *domain.ProgressRecord {
	return &domain.ProgressRecord{
		CompletedModules: []domain.ModuleProgress{
			{ID: "bp-dpa-01"},
			{ID: "bp-ae-01"},
			{ID: "old-module-7"}, // not in the catalog, no inferable prefix
		},
		InProgressModules: []domain.ModuleProgress{
			{ID: "bp-03"},
		},
		QuizAttempts: []domain.QuizAttempt{
			{QuizID: "bp-dpa-quiz-01", Score: 80, Date: clock.Now().Add(-time.Hour)},
			{QuizID: "bp-dpa-quiz-01", Score: 90, Date: clock.Now()},
		},
	}
}

func TestMigrate_AnnotatesAndStamps(t *testing.T) {
	migrator, progress, clock := newTestMigrator(t)
	ctx := context.Background()

	legacy := legacyProgress(clock)
	require.NoError(t, progress.Put(ctx, legacy))

	result, err := migrator.Migrate(ctx, legacy, false)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.NotEmpty(t, result.MigrationID)
	assert.Equal(t, 4, result.Summary.ModulesAnnotated)
	assert.Equal(t, 2, result.Summary.QuizzesAnnotated)
	assert.Equal(t, 1, result.Summary.Unassigned)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "old-module-7")

	migrated, err := progress.Get(ctx)
	require.NoError(t, err)
	require.True(t, migrated.IsMigrated())
	assert.Equal(t, "1.0", migrated.Migration.Version)
	assert.Equal(t, result.MigrationID, migrated.Migration.ID)

	// Buckets annotated, original ids preserved.
	assert.Equal(t, domain.BucketDPA, migrated.CompletedModules[0].Bucket)
	assert.Equal(t, "bp-dpa-01", migrated.CompletedModules[0].OriginalID)
	assert.Equal(t, domain.BucketAE, migrated.CompletedModules[1].Bucket)
	assert.Equal(t, domain.BucketGeneral, migrated.CompletedModules[2].Bucket)
	assert.Equal(t, domain.BucketGeneral, migrated.InProgressModules[0].Bucket)
	assert.Equal(t, domain.BucketDPA, migrated.QuizAttempts[0].Bucket)

	// Breakdown per bucket.
	dpa := migrated.BucketBreakdown[domain.BucketDPA]
	assert.Equal(t, 1, dpa.Modules)
	assert.Equal(t, 2, dpa.Quizzes)
	assert.InDelta(t, 85.0, dpa.AvgScore, 1e-9)
	assert.Equal(t, clock.Now(), dpa.LastActivity)

	// Backup matches the pre-migration record.
	backup, err := progress.GetBackup(ctx, result.MigrationID)
	require.NoError(t, err)
	assert.False(t, backup.IsMigrated())
	assert.Len(t, backup.CompletedModules, 3)

	completed, err := progress.CompletedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{result.MigrationID}, completed)
}

func TestMigrate_AlreadyMigratedRefused(t *testing.T) {
	migrator, progress, clock := newTestMigrator(t)
	ctx := context.Background()

	legacy := legacyProgress(clock)
	first, err := migrator.Migrate(ctx, legacy, false)
	require.NoError(t, err)
	require.True(t, first.OK)

	migrated, err := progress.Get(ctx)
	require.NoError(t, err)

	second, err := migrator.Migrate(ctx, migrated, false)
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.Equal(t, "already_migrated", second.Reason)

	// Force re-runs the migration under a new id.
	clock.Advance(time.Second)
	forced, err := migrator.Migrate(ctx, migrated, true)
	require.NoError(t, err)
	assert.True(t, forced.OK)
	assert.NotEqual(t, first.MigrationID, forced.MigrationID)
}

func TestMigrate_ValidationFailure(t *testing.T) {
	migrator, progress, _ := newTestMigrator(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		record *domain.ProgressRecord
	}{
		{
			"score out of range",
			&domain.ProgressRecord{QuizAttempts: []domain.QuizAttempt{{QuizID: "q", Score: 150}}},
		},
		{
			"attempt without quiz id",
			&domain.ProgressRecord{QuizAttempts: []domain.QuizAttempt{{Score: 50}}},
		},
		{
			"module without id",
			&domain.ProgressRecord{CompletedModules: []domain.ModuleProgress{{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := migrator.Migrate(ctx, tt.record, false)
			assert.ErrorIs(t, err, domain.ErrMigrationValidation)
		})
	}

	_, err := migrator.Migrate(ctx, nil, false)
	assert.ErrorIs(t, err, domain.ErrMigrationValidation)

	// Nothing was committed.
	live, err := progress.Get(ctx)
	require.NoError(t, err)
	assert.False(t, live.IsMigrated())
}

func TestMigrate_QuotaAbortsWithoutTouchingLive(t *testing.T) {
	migrator, progress, clock := newTestMigrator(t)
	progress.MaxBackups = 1
	ctx := context.Background()

	require.NoError(t, progress.SaveBackup(ctx, "earlier", &domain.ProgressRecord{}))

	legacy := legacyProgress(clock)
	require.NoError(t, progress.Put(ctx, legacy))

	_, err := migrator.Migrate(ctx, legacy, false)
	require.Error(t, err)
	assert.True(t, IsStorageQuota(err))

	live, err := progress.Get(ctx)
	require.NoError(t, err)
	assert.False(t, live.IsMigrated())
	assert.Empty(t, live.CompletedModules[0].Bucket)
}

func TestMigrate_RecursesIntoSnapshots(t *testing.T) {
	migrator, progress, _ := newTestMigrator(t)
	ctx := context.Background()

	record := &domain.ProgressRecord{
		CompletedModules: []domain.ModuleProgress{{ID: "bp-dpa-01"}},
		PerSpecialization: map[domain.Specialization]*domain.ProgressRecord{
			domain.SpecializationAE: {
				CompletedModules: []domain.ModuleProgress{{ID: "bp-ae-01"}},
			},
		},
	}

	result, err := migrator.Migrate(ctx, record, false)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, 1, result.Summary.SnapshotsProcessed)
	assert.Equal(t, 2, result.Summary.ModulesAnnotated)

	migrated, err := progress.Get(ctx)
	require.NoError(t, err)
	snapshot := migrated.PerSpecialization[domain.SpecializationAE]
	require.NotNil(t, snapshot)
	assert.Equal(t, domain.BucketAE, snapshot.CompletedModules[0].Bucket)
}

func TestMigrate_LeavesInputUntouched(t *testing.T) {
	migrator, _, clock := newTestMigrator(t)
	ctx := context.Background()

	legacy := legacyProgress(clock)
	_, err := migrator.Migrate(ctx, legacy, false)
	require.NoError(t, err)

	// The caller's record stays in legacy shape; only the stored copy is
	// transformed.
	assert.False(t, legacy.IsMigrated())
	assert.Empty(t, legacy.CompletedModules[0].Bucket)
}

func TestRollback_RestoresBackup(t *testing.T) {
	migrator, progress, clock := newTestMigrator(t)
	ctx := context.Background()

	legacy := legacyProgress(clock)
	require.NoError(t, progress.Put(ctx, legacy))

	result, err := migrator.Migrate(ctx, legacy, false)
	require.NoError(t, err)
	require.True(t, result.OK)

	require.NoError(t, migrator.Rollback(ctx, result.MigrationID))

	restored, err := progress.Get(ctx)
	require.NoError(t, err)
	assert.False(t, restored.IsMigrated())
	assert.Empty(t, restored.CompletedModules[0].Bucket)

	rollbacks := progress.Rollbacks()
	require.Len(t, rollbacks, 1)
	assert.Equal(t, result.MigrationID, rollbacks[0].MigrationID)
}

func TestRollback_UnknownMigration(t *testing.T) {
	migrator, _, _ := newTestMigrator(t)

	err := migrator.Rollback(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrBackupNotFound)
}

func TestVerifyNoShrinkage(t *testing.T) {
	before := &domain.ProgressRecord{
		CompletedModules: []domain.ModuleProgress{{ID: "a"}, {ID: "b"}},
	}
	after := before.Clone()

	assert.NoError(t, verifyNoShrinkage(before, after))

	after.CompletedModules = after.CompletedModules[:1]
	assert.ErrorIs(t, verifyNoShrinkage(before, after), domain.ErrVerificationFailed)
}
