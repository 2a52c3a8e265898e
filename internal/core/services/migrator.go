package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/core/ports/driving"
	"github.com/lernkern/lernkern/internal/logger"
)

// Ensure ProgressMigrator implements the interface.
var _ driving.MigrationService = (*ProgressMigrator)(nil)

// migrationVersion stamps migrated progress records.
const migrationVersion = "1.0"

// ProgressMigrator transforms legacy progress records into bucket-annotated
// form. One call is transactional: backup, transform a copy, verify, commit.
// The stamp makes repeated runs no-ops.
type ProgressMigrator struct {
	store    *ContentStore
	mapper   *CategoryMapper
	progress driven.ProgressStore
	clock    driven.Clock
}

// NewProgressMigrator wires the migrator.
func NewProgressMigrator(store *ContentStore, mapper *CategoryMapper, progress driven.ProgressStore, clock driven.Clock) *ProgressMigrator {
	return &ProgressMigrator{
		store:    store,
		mapper:   mapper,
		progress: progress,
		clock:    clock,
	}
}

// IsMigrated reports whether the record carries a migration stamp.
func (m *ProgressMigrator) IsMigrated(progress *domain.ProgressRecord) bool {
	return progress.IsMigrated()
}

// Migrate annotates every module reference, quiz attempt and
// per-specialization snapshot with its bucket, computes the bucket
// breakdown, stamps the record and commits it. The live record is only
// written after a successful verification; any storage failure before the
// commit leaves it untouched.
func (m *ProgressMigrator) Migrate(ctx context.Context, progress *domain.ProgressRecord, force bool) (*domain.MigrationResult, error) {
	started := m.clock.Now()

	if progress == nil {
		return nil, fmt.Errorf("no progress record: %w", domain.ErrMigrationValidation)
	}
	if progress.IsMigrated() && !force {
		return &domain.MigrationResult{
			OK:     false,
			Reason: domain.ErrAlreadyMigrated.Error(),
		}, nil
	}

	if err := validateLegacyShape(progress); err != nil && !force {
		return nil, err
	}

	migrationID := m.newMigrationID()

	// Backup before anything else; quota errors abort the whole run.
	if err := m.progress.SaveBackup(ctx, migrationID, progress.Clone()); err != nil {
		return nil, fmt.Errorf("saving backup %s: %w", migrationID, err)
	}

	migrated := progress.Clone()
	var summary domain.MigrationSummary
	var warnings []string
	m.annotate(migrated, &summary, &warnings)

	migrated.BucketBreakdown = computeBreakdown(migrated)
	migrated.Migration = &domain.MigrationInfo{
		Version:    migrationVersion,
		ID:         migrationID,
		MigratedAt: m.clock.Now(),
		Source:     "legacy",
		Target:     "three-tier",
	}

	if err := verifyNoShrinkage(progress, migrated); err != nil && !force {
		return nil, err
	}

	if err := m.progress.Put(ctx, migrated); err != nil {
		return nil, fmt.Errorf("committing migration %s: %w", migrationID, err)
	}
	if err := m.progress.RecordMigration(ctx, domain.MigrationRecord{
		ID:      migrationID,
		At:      m.clock.Now(),
		Summary: summary,
	}); err != nil {
		logger.Warn("migration %s committed but history write failed: %v", migrationID, err)
	}

	logger.Info("migration %s committed in %v: %d modules, %d quizzes",
		migrationID, m.clock.Now().Sub(started), summary.ModulesAnnotated, summary.QuizzesAnnotated)

	return &domain.MigrationResult{
		OK:          true,
		MigrationID: migrationID,
		Summary:     summary,
		Warnings:    warnings,
	}, nil
}

// Rollback restores the backup of a committed migration and records the
// rollback in history.
func (m *ProgressMigrator) Rollback(ctx context.Context, migrationID string) error {
	backup, err := m.progress.GetBackup(ctx, migrationID)
	if err != nil {
		return fmt.Errorf("loading backup %s: %w", migrationID, err)
	}
	if err := m.progress.Put(ctx, backup); err != nil {
		return fmt.Errorf("restoring backup %s: %w", migrationID, err)
	}
	if err := m.progress.RecordRollback(ctx, domain.RollbackRecord{
		MigrationID: migrationID,
		At:          m.clock.Now(),
	}); err != nil {
		logger.Warn("rollback of %s done but history write failed: %v", migrationID, err)
	}

	logger.Info("migration %s rolled back", migrationID)
	return nil
}

// newMigrationID builds "<unix ms>-<short random suffix>".
func (m *ProgressMigrator) newMigrationID() string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", m.clock.Now().UnixMilli(), suffix)
}

// validateLegacyShape checks the legacy record: every quiz attempt needs a
// quiz id and a sane score.
func validateLegacyShape(progress *domain.ProgressRecord) error {
	for i, attempt := range progress.QuizAttempts {
		if attempt.QuizID == "" {
			return fmt.Errorf("quiz attempt %d has no quizId: %w", i, domain.ErrMigrationValidation)
		}
		if attempt.Score < 0 || attempt.Score > 100 {
			return fmt.Errorf("quiz attempt %d: score %.1f out of range: %w",
				i, attempt.Score, domain.ErrMigrationValidation)
		}
	}
	for i, ref := range progress.CompletedModules {
		if ref.ID == "" {
			return fmt.Errorf("completed module %d has no id: %w", i, domain.ErrMigrationValidation)
		}
	}
	for i, ref := range progress.InProgressModules {
		if ref.ID == "" {
			return fmt.Errorf("in-progress module %d has no id: %w", i, domain.ErrMigrationValidation)
		}
	}
	return nil
}

// annotate stamps buckets onto all references, recursing into
// per-specialization snapshots.
func (m *ProgressMigrator) annotate(progress *domain.ProgressRecord, summary *domain.MigrationSummary, warnings *[]string) {
	for i := range progress.CompletedModules {
		m.annotateModule(&progress.CompletedModules[i], summary, warnings)
	}
	for i := range progress.InProgressModules {
		m.annotateModule(&progress.InProgressModules[i], summary, warnings)
	}
	for i := range progress.QuizAttempts {
		m.annotateAttempt(&progress.QuizAttempts[i], summary, warnings)
	}
	for _, snapshot := range progress.PerSpecialization {
		if snapshot == nil {
			continue
		}
		summary.SnapshotsProcessed++
		m.annotate(snapshot, summary, warnings)
	}
}

func (m *ProgressMigrator) annotateModule(ref *domain.ModuleProgress, summary *domain.MigrationSummary, warnings *[]string) {
	if ref.OriginalID == "" {
		ref.OriginalID = ref.ID
	}
	ref.Bucket = m.bucketFor(ref.ID, summary, warnings)
	summary.ModulesAnnotated++
}

func (m *ProgressMigrator) annotateAttempt(attempt *domain.QuizAttempt, summary *domain.MigrationSummary, warnings *[]string) {
	if attempt.OriginalQuizID == "" {
		attempt.OriginalQuizID = attempt.QuizID
	}
	attempt.Bucket = m.bucketFor(attempt.QuizID, summary, warnings)
	summary.QuizzesAnnotated++
}

// bucketFor maps a referenced id through the catalog when present, or by id
// prefix inference when absent.
func (m *ProgressMigrator) bucketFor(id string, summary *domain.MigrationSummary, warnings *[]string) domain.Bucket {
	if item, ok := m.store.Get(id); ok {
		return m.mapper.Map(item).Bucket
	}

	inferred := MapID(id)
	if inferred == domain.BucketGeneral {
		summary.Unassigned++
		*warnings = append(*warnings,
			fmt.Sprintf("id %s not in catalog; assigned %s by inference", id, inferred))
	}
	return inferred
}

// computeBreakdown counts completed modules, quiz attempts, average score
// and last activity per bucket.
func computeBreakdown(progress *domain.ProgressRecord) map[domain.Bucket]domain.BucketProgress {
	breakdown := make(map[domain.Bucket]domain.BucketProgress)
	scoreSums := make(map[domain.Bucket]float64)

	for _, ref := range progress.CompletedModules {
		bp := breakdown[ref.Bucket]
		bp.Modules++
		breakdown[ref.Bucket] = bp
	}
	for _, attempt := range progress.QuizAttempts {
		bp := breakdown[attempt.Bucket]
		bp.Quizzes++
		scoreSums[attempt.Bucket] += attempt.Score
		if attempt.Date.After(bp.LastActivity) {
			bp.LastActivity = attempt.Date
		}
		breakdown[attempt.Bucket] = bp
	}
	for bucket, bp := range breakdown {
		if bp.Quizzes > 0 {
			bp.AvgScore = scoreSums[bucket] / float64(bp.Quizzes)
			breakdown[bucket] = bp
		}
	}
	return breakdown
}

// verifyNoShrinkage ensures the transformation lost no ids.
func verifyNoShrinkage(before, after *domain.ProgressRecord) error {
	if len(after.CompletedModules) < len(before.CompletedModules) {
		return fmt.Errorf("completed modules shrank from %d to %d: %w",
			len(before.CompletedModules), len(after.CompletedModules), domain.ErrVerificationFailed)
	}
	if len(after.InProgressModules) < len(before.InProgressModules) {
		return fmt.Errorf("in-progress modules shrank from %d to %d: %w",
			len(before.InProgressModules), len(after.InProgressModules), domain.ErrVerificationFailed)
	}
	if len(after.QuizAttempts) < len(before.QuizAttempts) {
		return fmt.Errorf("quiz attempts shrank from %d to %d: %w",
			len(before.QuizAttempts), len(after.QuizAttempts), domain.ErrVerificationFailed)
	}
	if len(after.PerSpecialization) < len(before.PerSpecialization) {
		return fmt.Errorf("specialization snapshots shrank from %d to %d: %w",
			len(before.PerSpecialization), len(after.PerSpecialization), domain.ErrVerificationFailed)
	}
	for spec, beforeSnap := range before.PerSpecialization {
		afterSnap, ok := after.PerSpecialization[spec]
		if !ok || afterSnap == nil {
			if beforeSnap == nil {
				continue
			}
			return fmt.Errorf("snapshot for %s lost: %w", spec, domain.ErrVerificationFailed)
		}
		if beforeSnap == nil {
			continue
		}
		if err := verifyNoShrinkage(beforeSnap, afterSnap); err != nil {
			return err
		}
	}
	return nil
}

// IsStorageQuota reports whether an error chain contains a quota failure.
// Callers distinguish aborted migrations from other storage trouble.
func IsStorageQuota(err error) bool {
	return errors.Is(err, domain.ErrStorageQuota)
}
