// Package proto defines the protocol types shared across the orchestration
// core: turn and resume requests, responses, interrupts, decisions, and UI
// events. These types are the single source of truth for the wire contracts.
package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain is a named specialization ("wifi", "video") with its own permitted
// tool set and executor.
type Domain string

// ExecutionMode determines whether a tool runs immediately or requires an
// approval interrupt before its side effect executes.
type ExecutionMode string

const (
	// ModeDirect executes immediately; the result is rendered without approval.
	ModeDirect ExecutionMode = "direct"

	// ModeGated requires an approval interrupt before the underlying side
	// effect runs.
	ModeGated ExecutionMode = "gated"
)

// ResponseKind distinguishes the two terminal outcomes of a turn.
type ResponseKind string

const (
	ResponseCompleted ResponseKind = "completed"
	ResponseSuspended ResponseKind = "suspended"
)

// InterruptStatus tracks the lifecycle of a suspension record.
type InterruptStatus string

const (
	// InterruptPending means the interrupt awaits a decision.
	InterruptPending InterruptStatus = "pending"

	// InterruptResolved means a decision has been applied exactly once.
	InterruptResolved InterruptStatus = "resolved"

	// InterruptAbandoned means the interrupt expired or was cancelled without
	// a decision. Terminal, like resolved.
	InterruptAbandoned InterruptStatus = "abandoned"
)

// Terminal reports whether the status permits no further transitions.
func (s InterruptStatus) Terminal() bool {
	return s == InterruptResolved || s == InterruptAbandoned
}

// DecisionKind is the client-supplied outcome for a pending interrupt.
type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionReject  DecisionKind = "reject"
	DecisionEdit    DecisionKind = "edit"
)

// ActionRequest is a concrete invocation attempt: tool name plus bound
// argument values. Produced by a domain executor when it decides to invoke a
// gated tool.
type ActionRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// WithOverrides returns a copy of the action request with the given argument
// overrides merged on top of the originally bound values.
func (a ActionRequest) WithOverrides(overrides map[string]any) ActionRequest {
	if len(overrides) == 0 {
		return a
	}
	merged := make(map[string]any, len(a.Args)+len(overrides))
	for k, v := range a.Args {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return ActionRequest{Name: a.Name, Args: merged}
}

// Decision is the client-supplied outcome for a pending interrupt.
type Decision struct {
	Kind DecisionKind `json:"kind"`

	// OverriddenArgs is only meaningful for edit (or approve-with-overrides);
	// values replace the originally bound arguments key by key.
	OverriddenArgs map[string]any `json:"overriddenArgs,omitempty"`

	// Reason is only meaningful for reject.
	Reason string `json:"reason,omitempty"`
}

// Validate checks decision shape against its kind.
func (d *Decision) Validate() error {
	switch d.Kind {
	case DecisionApprove, DecisionEdit:
		return nil
	case DecisionReject:
		if len(d.OverriddenArgs) > 0 {
			return fmt.Errorf("reject decision must not carry overridden args")
		}
		return nil
	default:
		return fmt.Errorf("unknown decision kind: %q", d.Kind)
	}
}

// ContextMessage is one turn of dialogue context carried inside a resume
// token so execution can continue the conversation after approval.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResumeToken captures exactly where to re-enter a suspended domain executor.
// It is a self-contained serializable value: no closures, no stack capture,
// so the checkpoint store can live in any durable backend.
type ResumeToken struct {
	SessionID   string           `json:"session_id"`
	InterruptID string           `json:"interrupt_id"`
	Domain      Domain           `json:"domain"`
	Pending     ActionRequest    `json:"pending"`
	Context     []ContextMessage `json:"context,omitempty"`
}

// Encode serializes the token for durable storage.
func (t *ResumeToken) Encode() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume token: %w", err)
	}
	return data, nil
}

// DecodeResumeToken deserializes a stored token.
func DecodeResumeToken(data []byte) (*ResumeToken, error) {
	var token ResumeToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode resume token: %w", err)
	}
	return &token, nil
}

// Interrupt is a durable record of a paused execution awaiting a decision.
// Owned by the checkpoint store; executors never mutate it directly.
type Interrupt struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Action    ActionRequest   `json:"action"`
	Token     ResumeToken     `json:"token"`
	Status    InterruptStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// TurnRequest is the inbound request contract.
type TurnRequest struct {
	SessionID           string   `json:"sessionId"`
	RequestText         string   `json:"requestText"`
	AdvertisedToolNames []string `json:"advertisedToolNames"`
}

// ResumeRequest applies a decision against a specific pending interrupt. The
// advertised tool names travel with the resume call so a client reconnecting
// after an upgrade can supply an updated capability list.
type ResumeRequest struct {
	InterruptID         string   `json:"interruptId"`
	Decision            Decision `json:"decision"`
	AdvertisedToolNames []string `json:"advertisedToolNames"`
}

// TurnResponse is the terminal response for a turn or resume call: either a
// completed text or a suspension descriptor.
type TurnResponse struct {
	Kind        ResponseKind   `json:"kind"`
	Text        string         `json:"text,omitempty"`
	InterruptID string         `json:"interruptId,omitempty"`
	Action      *ActionRequest `json:"actionRequest,omitempty"`
}

// Completed builds a completed response.
func Completed(text string) *TurnResponse {
	return &TurnResponse{Kind: ResponseCompleted, Text: text}
}

// Suspended builds a suspension descriptor response.
func Suspended(interruptID string, action ActionRequest) *TurnResponse {
	return &TurnResponse{Kind: ResponseSuspended, InterruptID: interruptID, Action: &action}
}

// UIEvent is a fire-and-forget payload for direct tools: delivered once,
// best-effort, over the UI event channel. Never persisted.
type UIEvent struct {
	SessionID  string         `json:"sessionId"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GenerateSessionID returns a new unique session identifier.
func GenerateSessionID() string {
	return "sess-" + uuid.New().String()
}

// GenerateInterruptID returns a new unique interrupt identifier.
func GenerateInterruptID() string {
	return "int-" + uuid.New().String()
}

// GenerateTurnID returns a new unique turn identifier for audit records.
func GenerateTurnID() string {
	return "turn-" + uuid.New().String()
}
