package services

import (
	"context"
	"fmt"

	"github.com/lernkern/lernkern/internal/core/domain"
	"github.com/lernkern/lernkern/internal/core/ports/driven"
	"github.com/lernkern/lernkern/internal/core/ports/driving"
	"github.com/lernkern/lernkern/internal/logger"
)

// Ensure SpecializationPolicy implements the interface.
var _ driving.SpecializationService = (*SpecializationPolicy)(nil)

// specializationKey is the config key holding the selected exam track.
const specializationKey = "specialization.selected"

// SpecializationPolicy persists the chosen exam track and keeps progress
// separated per track: switching away snapshots the live record, switching
// back restores it with shared general content carried over.
type SpecializationPolicy struct {
	config   driven.ConfigStore
	progress driven.ProgressStore
}

// NewSpecializationPolicy wires the policy.
func NewSpecializationPolicy(config driven.ConfigStore, progress driven.ProgressStore) *SpecializationPolicy {
	return &SpecializationPolicy{config: config, progress: progress}
}

// Get returns the selected specialization, if any.
func (s *SpecializationPolicy) Get() (domain.Specialization, bool) {
	raw := s.config.GetString(specializationKey)
	if raw == "" {
		return "", false
	}
	spec := domain.Specialization(raw)
	if !spec.IsValid() {
		logger.Warn("ignoring invalid stored specialization %q", raw)
		return "", false
	}
	return spec, true
}

// HasSelected reports whether a specialization was ever chosen.
func (s *SpecializationPolicy) HasSelected() bool {
	_, ok := s.Get()
	return ok
}

// Set selects a specialization. On a switch the current progress is
// snapshotted under the previous track, and the target's saved snapshot is
// restored with the general-bucket activity of the current record merged in.
func (s *SpecializationPolicy) Set(ctx context.Context, spec domain.Specialization) error {
	if !spec.IsValid() {
		return fmt.Errorf("specialization %q: %w", spec, domain.ErrUnknownSpecialization)
	}

	previous, had := s.Get()
	if had && previous == spec {
		return nil
	}

	if had {
		if err := s.switchProgress(ctx, previous, spec); err != nil {
			return err
		}
	}

	if err := s.config.Set(specializationKey, string(spec)); err != nil {
		return fmt.Errorf("persisting specialization: %w", err)
	}

	logger.Info("specialization set to %s", spec)
	return nil
}

// switchProgress snapshots the live record under the previous track and
// restores the target's snapshot merged with shared general content.
func (s *SpecializationPolicy) switchProgress(ctx context.Context, previous, target domain.Specialization) error {
	current, err := s.progress.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if current == nil {
		current = &domain.ProgressRecord{}
	}

	snapshots := current.PerSpecialization
	if snapshots == nil {
		snapshots = make(map[domain.Specialization]*domain.ProgressRecord)
	}

	// Snapshot the live record without the snapshot map itself, so
	// snapshots never nest.
	saved := current.Clone()
	saved.PerSpecialization = nil
	snapshots[previous] = saved

	restored := &domain.ProgressRecord{}
	if snap, ok := snapshots[target]; ok && snap != nil {
		restored = snap.Clone()
		delete(snapshots, target)
	}
	mergeGeneral(restored, current)
	restored.PerSpecialization = snapshots

	if err := s.progress.Put(ctx, restored); err != nil {
		return fmt.Errorf("storing switched progress: %w", err)
	}

	logger.Debug("progress switched from %s to %s (%d snapshots kept)",
		previous, target, len(snapshots))
	return nil
}

// mergeGeneral carries general-bucket activity from the outgoing record into
// the restored one. General content is shared across tracks, so work done on
// it counts regardless of the selected specialization.
func mergeGeneral(into, from *domain.ProgressRecord) {
	haveModule := make(map[string]struct{}, len(into.CompletedModules))
	for _, ref := range into.CompletedModules {
		haveModule[ref.ID] = struct{}{}
	}
	for _, ref := range from.CompletedModules {
		if ref.Bucket != domain.BucketGeneral {
			continue
		}
		if _, ok := haveModule[ref.ID]; ok {
			continue
		}
		into.CompletedModules = append(into.CompletedModules, ref)
		haveModule[ref.ID] = struct{}{}
	}

	haveStarted := make(map[string]struct{}, len(into.InProgressModules))
	for _, ref := range into.InProgressModules {
		haveStarted[ref.ID] = struct{}{}
	}
	for _, ref := range from.InProgressModules {
		if ref.Bucket != domain.BucketGeneral {
			continue
		}
		if _, ok := haveStarted[ref.ID]; ok {
			continue
		}
		if _, done := haveModule[ref.ID]; done {
			continue
		}
		into.InProgressModules = append(into.InProgressModules, ref)
		haveStarted[ref.ID] = struct{}{}
	}

	haveAttempt := make(map[string]struct{}, len(into.QuizAttempts))
	for _, a := range into.QuizAttempts {
		haveAttempt[attemptKey(a)] = struct{}{}
	}
	for _, a := range from.QuizAttempts {
		if a.Bucket != domain.BucketGeneral {
			continue
		}
		if _, ok := haveAttempt[attemptKey(a)]; ok {
			continue
		}
		into.QuizAttempts = append(into.QuizAttempts, a)
		haveAttempt[attemptKey(a)] = struct{}{}
	}
}

func attemptKey(a domain.QuizAttempt) string {
	return a.QuizID + "@" + a.Date.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Relevance returns the fixed bucket-to-specialization relevance.
func (s *SpecializationPolicy) Relevance(bucket domain.Bucket, spec domain.Specialization) domain.Relevance {
	return domain.BucketRelevance(bucket, spec)
}

// Filter narrows items to those whose bucket reaches at least minLevel for
// the specialization.
func (s *SpecializationPolicy) Filter(items []domain.ContentItem, spec domain.Specialization, minLevel domain.Relevance) []domain.ContentItem {
	min := relevanceRank[minLevel]
	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if relevanceRank[domain.BucketRelevance(item.Bucket, spec)] >= min {
			out = append(out, item)
		}
	}
	return out
}
