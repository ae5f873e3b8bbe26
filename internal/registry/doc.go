// Package registry maps the factory names used in configuration files and
// snapshots to the shared comp.Factory values that components are built from.
//
// Factories are grouped into libraries. A Library registers its factories
// once at startup; after that the Registry is read-only and safe for
// concurrent lookups.
package registry
