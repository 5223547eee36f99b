// Package settings registers all setting definitions with the core
// registry. Import this package to ensure all settings are registered.
package settings

// This file exists to provide a single import point.
// Each settings file uses init() to register its definitions.
