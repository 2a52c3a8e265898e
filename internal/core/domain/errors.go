package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrCatalogInvalid indicates a schema violation during catalog load.
	// Fatal: initialisation aborts.
	ErrCatalogInvalid = errors.New("catalog invalid")

	// ErrUnknownBucket indicates a request for a bucket outside the fixed
	// three. Queries return an empty result instead of failing.
	ErrUnknownBucket = errors.New("unknown bucket")

	// ErrUnknownSpecialization indicates an unrecognised specialization.
	ErrUnknownSpecialization = errors.New("unknown specialization")

	// ErrIndexStale indicates a read observed indexes older than the
	// staleness limit. Recovered locally by a rebuild and a single retry.
	ErrIndexStale = errors.New("index stale")

	// ErrIndexBuildFailed indicates index construction failed. The query
	// engine falls back to a linear scan.
	ErrIndexBuildFailed = errors.New("index build failed")

	// ErrCacheUnavailable indicates the cache cannot be used.
	// Operations bypass the cache and still succeed.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrStorageQuota indicates the progress store ran out of capacity.
	// Migration aborts without touching live progress.
	ErrStorageQuota = errors.New("storage quota exceeded")

	// ErrMigrationValidation indicates the legacy progress record failed
	// shape validation. No state change unless forced.
	ErrMigrationValidation = errors.New("migration validation failed")

	// ErrVerificationFailed indicates the post-migration check detected
	// id-count shrinkage. Triggers an automatic rollback.
	ErrVerificationFailed = errors.New("migration verification failed")

	// ErrAlreadyMigrated indicates the progress record already carries a
	// migration stamp. The migration is a no-op unless forced.
	ErrAlreadyMigrated = errors.New("already_migrated")

	// ErrBackupNotFound indicates no backup exists for a migration ID.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotInitialised indicates the core was used before Init.
	ErrNotInitialised = errors.New("content core not initialised")
)
