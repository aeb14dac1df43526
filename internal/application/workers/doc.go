// Package workers implements the worker pool that advances goal executions.
//
// The pool manages a fixed number of goroutines pulling execution stage
// loops from a bounded queue, capping how many goals run concurrently. The
// health monitor tracks worker status and reports it to metrics.
package workers
