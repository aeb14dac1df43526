// Package tools implements the tool executor: a closed, enumerable set of
// graph operations looked up by name, validated against a declared argument
// schema and normalized into a canonical result envelope.
//
// The executor never lets a raw error escape; failures carry an error type
// (validation, not found, system, tool) plus a retryable judgment for the
// orchestrator to consult.
package tools
