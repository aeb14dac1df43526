// Package ports declares the interfaces the application layer consumes.
//
// Adapters under pkg/adapters provide the implementations; the orchestrator
// and tool executor receive them through constructors so every execution's
// dependencies are visible in its own scope and swappable in tests.
package ports
