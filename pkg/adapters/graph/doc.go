// Package graph provides GraphStore implementations.
//
// Implementations:
//   - neo4j: Neo4j with MERGE-based idempotent upserts
//   - memory: single-lock in-memory maps for tests and standalone use
package graph
