// Package domain defines the core business entities for lernkern.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContentItem: A learning module or quiz with its category bucket
//   - Bucket: One of the three canonical categories
//   - MappingRule: Maps native exam-catalog categories onto buckets
//   - ProgressRecord: Per-user learning progress
//   - Metric, Alert, Trend: Monitoring records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
