// Package domain holds the core data model shared across layers: graph
// entities and specs, execution state, the planner decision union, the tool
// result envelope, lifecycle events, and the typed error taxonomy.
//
// Everything here is plain data with no behavior beyond invariant helpers;
// services act on these types through the interfaces in internal/ports.
package domain
