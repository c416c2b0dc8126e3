// Package executor defines the domain executor contract and its two
// implementations: a deterministic scripted executor and an LLM-backed one.
// An executor is opaque to the supervisor; its only promise is to terminate
// each invocation in one of exactly two ways, completed or suspended.
package executor

import (
	"context"
	"fmt"

	"concierge/pkg/capability"
	"concierge/pkg/proto"
)

// Request is one executor invocation for a fresh turn.
type Request struct {
	SessionID string
	Domain    proto.Domain
	Text      string

	// Context is the conversation so far, not including Text.
	Context []proto.ContextMessage

	// Tools is the effective tool set negotiated for this invocation. The
	// executor may only reach tools through it.
	Tools *capability.EffectiveToolSet
}

// ResumeRequest re-enters a suspended execution with the user's decision.
type ResumeRequest struct {
	SessionID string
	Domain    proto.Domain

	// Action is the pending action with any argument overrides already
	// merged. On approve or edit the executor runs it; the suspension that
	// produced it is its authorization, so it runs even if the freshly
	// negotiated set no longer contains the tool.
	Action   proto.ActionRequest
	Decision proto.Decision

	Context []proto.ContextMessage
	Tools   *capability.EffectiveToolSet
}

// Outcome is the terminal result of an executor invocation.
type Outcome struct {
	Kind proto.ResponseKind

	// Text is the user-facing response for a completed outcome.
	Text string

	// Pending is the gated action awaiting approval for a suspended outcome.
	Pending *proto.ActionRequest

	// Context is the conversation snapshot to carry into the resume token
	// (suspended) or persist as history (completed).
	Context []proto.ContextMessage

	// UIEvents are fire-and-forget rendering hints produced by direct tools
	// during this invocation.
	UIEvents []proto.UIEvent
}

// DomainExecutor runs one domain's behavior. Executor faults are folded into
// completed outcomes with error text; Run and Resume return a non-nil error
// only for infrastructure failures the supervisor cannot present to the user.
type DomainExecutor interface {
	Run(ctx context.Context, req Request) (*Outcome, error)
	Resume(ctx context.Context, req ResumeRequest) (*Outcome, error)
}

func completed(text string, context []proto.ContextMessage, uiEvents []proto.UIEvent) *Outcome {
	return &Outcome{
		Kind:     proto.ResponseCompleted,
		Text:     text,
		Context:  context,
		UIEvents: uiEvents,
	}
}

func suspended(action proto.ActionRequest, context []proto.ContextMessage, uiEvents []proto.UIEvent) *Outcome {
	return &Outcome{
		Kind:     proto.ResponseSuspended,
		Pending:  &action,
		Context:  context,
		UIEvents: uiEvents,
	}
}

// unsupportedText is the completed response for a capability the client did
// not advertise or the domain does not permit. The turn completes normally;
// capability gaps are conversation content, not errors.
func unsupportedText(what string) string {
	return fmt.Sprintf("I'm not able to %s with the capabilities available on this device.", what)
}

// faultText folds a tool failure into a completed response.
func faultText(toolName string, err error) string {
	return fmt.Sprintf("Something went wrong while running %s: %v. Please try again.", toolName, err)
}
