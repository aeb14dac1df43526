// Package llm provides planner client implementations.
//
// The factory creates planner clients based on provider configuration.
// Currently supports:
//   - Anthropic Claude
package llm
