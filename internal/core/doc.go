// Package core implements the KiCad-facing business logic of the
// bridge: resolving part metadata into KiCad fields, the settings
// registry with its database-backed values, and the netlist import
// pipeline with progress reporting and concurrency limits.
//
// The package has no HTTP dependencies. The web layer calls into
// Service, which loads rows through the inventory store and applies
// the pure resolution rules in resolver.go.
//
// # Import pipeline
//
// Imports run asynchronously. StartImport validates the request,
// acquires a limiter slot and returns an import id; the caller follows
// progress through SubscribeProgress (streamed) or Progress (polled)
// and collects the outcome with Result. Each run executes inside a
// single transaction with a savepoint per component, so a malformed
// file writes nothing while a partially bad one keeps its good
// components.
package core
