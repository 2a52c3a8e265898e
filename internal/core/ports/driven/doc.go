// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CatalogProvider: Loads the content library
//   - RuleStore: Supplies category definitions and mapping rules
//   - ProgressStore: Progress, backup and migration-history persistence
//   - ConfigStore: Application configuration
//   - Clock: Time source, injected so tests control time
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
