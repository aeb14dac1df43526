// Package orchestrator implements the stage machine that turns a
// natural-language goal into a sequence of graph mutations.
//
// The Manager owns execution lifecycles: it validates and admits goals,
// advances them stage by stage, checkpoints state at every boundary, and
// suspends for human input on ambiguity or escalation. The classifier and
// escalation handler implement the failure policy: transient errors retry
// with backoff, repeated identical errors get one more unchanged attempt
// before a human sees them, and systematic errors escalate immediately.
package orchestrator
