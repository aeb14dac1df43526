// Package state provides ExecutionState checkpoint storage adapters.
//
// The memory variant backs tests and single-process deployments; the redis
// variant persists checkpoints across restarts so suspended executions can
// be resumed after the process comes back.
package state
