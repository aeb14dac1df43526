package domain

import "time"

// ToolName identifies one of the known graph operations. The set is closed:
// names are registered from an enumerable list at startup, never looked up
// from open-ended caller strings.
type ToolName string

const (
	ToolUpsertNode  ToolName = "upsert_node"
	ToolUpsertEdge  ToolName = "upsert_edge"
	ToolUpdateProps ToolName = "update_props"
	ToolDeleteNode  ToolName = "delete_node"
	ToolDeleteEdge  ToolName = "delete_edge"
	ToolGetSubgraph ToolName = "get_subgraph"
	ToolRunQuery    ToolName = "run_query"
)

// KnownTools enumerates every registered tool name.
func KnownTools() []ToolName {
	return []ToolName{
		ToolUpsertNode, ToolUpsertEdge, ToolUpdateProps,
		ToolDeleteNode, ToolDeleteEdge, ToolGetSubgraph, ToolRunQuery,
	}
}

// IsReadOnly reports whether the tool never mutates the store. Read-only
// tools are always safe to retry.
func (t ToolName) IsReadOnly() bool {
	return t == ToolGetSubgraph || t == ToolRunQuery
}

// ToolSignature is the minimal tool description handed to the planner.
type ToolSignature struct {
	Name        ToolName `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
	Optional    []string `json:"optional,omitempty"`
}

// ToolStatus is the outcome tag on a tool result envelope.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ToolErrorType is the downgraded error class on a failed envelope.
type ToolErrorType string

const (
	ToolErrValidation ToolErrorType = "validation_error"
	ToolErrNotFound   ToolErrorType = "not_found_error"
	ToolErrSystem     ToolErrorType = "system_error"
	ToolErrTool       ToolErrorType = "tool_error"
)

// ResultKind tags the payload of a successful tool result so consumers
// pattern-match instead of probing field presence.
type ResultKind string

const (
	ResultKindNode     ResultKind = "node"
	ResultKindEdge     ResultKind = "edge"
	ResultKindSubgraph ResultKind = "subgraph"
	ResultKindNone     ResultKind = "none"
	ResultKindRaw      ResultKind = "raw"
)

// ToolResult is the canonical envelope produced by the tool executor. On
// success Payload carries the value tagged by ResultKind; on error ErrorType
// and ErrorMessage are set and Retryable records the executor's judgment.
type ToolResult struct {
	Status       ToolStatus    `json:"status"`
	ToolName     ToolName      `json:"tool_name"`
	ResultKind   ResultKind    `json:"result_kind,omitempty"`
	Payload      any           `json:"payload,omitempty"`
	ErrorType    ToolErrorType `json:"error_type,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Retryable    bool          `json:"retryable"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Succeeded reports whether the envelope carries a success payload.
func (r *ToolResult) Succeeded() bool {
	return r.Status == ToolStatusSuccess
}
