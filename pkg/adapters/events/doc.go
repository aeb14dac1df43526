// Package events provides event bus implementations for execution
// lifecycle notifications.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: in-process fan-out for tests and single-node deployments
package events
