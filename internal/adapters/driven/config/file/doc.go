// Package file provides the TOML-based configuration store. It persists the
// selected specialization and tuning overrides under the application config
// directory.
package file
