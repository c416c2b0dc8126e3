// Package tools provides the Tool abstraction and the demo domain tool
// implementations (wifi and video), plus the sealed global tool registry.
package tools

import (
	"context"

	"concierge/pkg/proto"
)

// Property describes one field of a tool's parameter schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// InputSchema is the typed field list for a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Definition is the immutable identity of an invocable action: name, schema,
// and execution mode. Registered once; never mutated.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema InputSchema        `json:"input_schema"`
	Mode        proto.ExecutionMode `json:"mode"`
}

// UIPayload is the structured "render this" payload a UI tool produces. The
// supervisor forwards it over the UI event channel after the tool completes.
type UIPayload struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Result is the outcome of executing a tool's underlying effect.
type Result struct {
	// Text is the conversational result rendered back to the caller.
	Text string

	// UI is non-nil for tools that render a frontend component.
	UI *UIPayload
}

// Tool is an invocable action. Exec performs the underlying effect; for gated
// tools Exec runs only after an approve/edit decision has been applied.
type Tool interface {
	Definition() Definition
	Exec(ctx context.Context, args map[string]any) (Result, error)
}

// Provider resolves tool names to instances.
type Provider interface {
	Get(name string) (Tool, error)
}
