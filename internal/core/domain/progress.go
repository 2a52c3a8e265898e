package domain

import (
	"encoding/json"
	"time"
)

// ModuleProgress references a module in a progress record. Legacy records
// store bare id strings; migrated records carry the bucket annotation and
// keep the original id.
type ModuleProgress struct {
	// ID is the module id.
	ID string `json:"id"`

	// OriginalID preserves the pre-migration id.
	OriginalID string `json:"originalId,omitempty"`

	// Bucket is the annotation assigned by migration.
	Bucket Bucket `json:"bucket,omitempty"`
}

// UnmarshalJSON accepts both the legacy bare-string form and the annotated
// object form.
func (m *ModuleProgress) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		m.ID = id
		return nil
	}

	type alias ModuleProgress
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = ModuleProgress(a)
	return nil
}

// QuizAttempt records one quiz run.
type QuizAttempt struct {
	// QuizID is the quiz id.
	QuizID string `json:"quizId"`

	// OriginalQuizID preserves the pre-migration id.
	OriginalQuizID string `json:"originalQuizId,omitempty"`

	// Bucket is the annotation assigned by migration.
	Bucket Bucket `json:"bucket,omitempty"`

	// Score is the achieved percentage.
	Score float64 `json:"score"`

	// Date is when the attempt happened.
	Date time.Time `json:"date"`

	// Answers holds the given answers keyed by question id.
	Answers map[string]any `json:"answers,omitempty"`
}

// BucketProgress summarises activity within one bucket.
type BucketProgress struct {
	// Modules counts completed modules.
	Modules int `json:"modules"`

	// Quizzes counts quiz attempts.
	Quizzes int `json:"quizzes"`

	// AvgScore is the mean quiz score.
	AvgScore float64 `json:"avgScore"`

	// LastActivity is the most recent attempt date in this bucket.
	LastActivity time.Time `json:"lastActivity,omitzero"`
}

// MigrationInfo is the stamp proving a progress record has been migrated
// into bucket-annotated form.
type MigrationInfo struct {
	// Version of the migration format.
	Version string `json:"version"`

	// ID of the migration run.
	ID string `json:"id"`

	// MigratedAt is when the migration committed.
	MigratedAt time.Time `json:"migratedAt"`

	// Source names the input format.
	Source string `json:"source"`

	// Target names the output format.
	Target string `json:"target"`
}

// ProgressRecord is the per-user learning progress. The host owns it; the
// core reads it and writes only through the migrator and the specialization
// policy.
type ProgressRecord struct {
	// CompletedModules lists finished modules.
	CompletedModules []ModuleProgress `json:"completedModules"`

	// InProgressModules lists started modules.
	InProgressModules []ModuleProgress `json:"inProgressModules"`

	// QuizAttempts lists quiz runs.
	QuizAttempts []QuizAttempt `json:"quizAttempts"`

	// PerSpecialization holds progress snapshots preserved across
	// specialization switches.
	PerSpecialization map[Specialization]*ProgressRecord `json:"perSpecializationSnapshot,omitempty"`

	// BucketBreakdown summarises activity per bucket; set by migration.
	BucketBreakdown map[Bucket]BucketProgress `json:"bucketBreakdown,omitempty"`

	// Migration is the stamp set when the record is bucket-annotated.
	Migration *MigrationInfo `json:"migration,omitempty"`
}

// IsMigrated reports whether the record carries a migration stamp.
func (p *ProgressRecord) IsMigrated() bool {
	return p != nil && p.Migration != nil
}

// Clone returns a deep copy of the record.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}

	out := &ProgressRecord{
		CompletedModules:  append([]ModuleProgress(nil), p.CompletedModules...),
		InProgressModules: append([]ModuleProgress(nil), p.InProgressModules...),
	}

	out.QuizAttempts = make([]QuizAttempt, len(p.QuizAttempts))
	for i, a := range p.QuizAttempts {
		copied := a
		if a.Answers != nil {
			copied.Answers = make(map[string]any, len(a.Answers))
			for k, v := range a.Answers {
				copied.Answers[k] = v
			}
		}
		out.QuizAttempts[i] = copied
	}

	if p.PerSpecialization != nil {
		out.PerSpecialization = make(map[Specialization]*ProgressRecord, len(p.PerSpecialization))
		for spec, snap := range p.PerSpecialization {
			out.PerSpecialization[spec] = snap.Clone()
		}
	}

	if p.BucketBreakdown != nil {
		out.BucketBreakdown = make(map[Bucket]BucketProgress, len(p.BucketBreakdown))
		for b, bp := range p.BucketBreakdown {
			out.BucketBreakdown[b] = bp
		}
	}

	if p.Migration != nil {
		m := *p.Migration
		out.Migration = &m
	}

	return out
}

// MigrationSummary counts what a migration touched.
type MigrationSummary struct {
	// ModulesAnnotated counts bucket-annotated module references.
	ModulesAnnotated int `json:"modulesAnnotated"`

	// QuizzesAnnotated counts bucket-annotated quiz attempts.
	QuizzesAnnotated int `json:"quizzesAnnotated"`

	// SnapshotsProcessed counts recursed per-specialization snapshots.
	SnapshotsProcessed int `json:"snapshotsProcessed"`

	// Unassigned counts references that fell back to the general bucket
	// by inference.
	Unassigned int `json:"unassigned"`
}

// MigrationResult is the outcome of a migration call.
type MigrationResult struct {
	// OK reports success.
	OK bool `json:"ok"`

	// MigrationID identifies the run and its backup.
	MigrationID string `json:"migrationId,omitempty"`

	// Summary counts the transformation.
	Summary MigrationSummary `json:"summary"`

	// Warnings lists non-fatal findings.
	Warnings []string `json:"warnings,omitempty"`

	// Reason explains a refused migration, e.g. "already_migrated".
	Reason string `json:"reason,omitempty"`
}

// MigrationRecord is one entry in the migration history.
type MigrationRecord struct {
	// ID of the migration run.
	ID string `json:"id"`

	// At is when the migration committed.
	At time.Time `json:"at"`

	// Summary counts the transformation.
	Summary MigrationSummary `json:"summary"`
}

// RollbackRecord is one entry in the rollback history.
type RollbackRecord struct {
	// MigrationID names the migration that was rolled back.
	MigrationID string `json:"migrationId"`

	// At is when the rollback happened.
	At time.Time `json:"at"`
}
