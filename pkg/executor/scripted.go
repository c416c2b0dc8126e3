package executor

import (
	"context"
	"strings"

	"concierge/pkg/logx"
	"concierge/pkg/proto"
	"concierge/pkg/tools"
)

// ScriptedExecutor is a deterministic domain executor driven by keyword
// playbooks. It exercises the full suspension and resume machinery without an
// LLM in the loop, so it doubles as the test executor and the offline demo
// mode.
type ScriptedExecutor struct {
	provider tools.Provider
	logger   *logx.Logger
}

// NewScriptedExecutor creates a scripted executor over the given tool provider.
func NewScriptedExecutor(provider tools.Provider) *ScriptedExecutor {
	return &ScriptedExecutor{
		provider: provider,
		logger:   logx.NewLogger("executor-scripted"),
	}
}

// Run implements DomainExecutor.
func (e *ScriptedExecutor) Run(ctx context.Context, req Request) (*Outcome, error) {
	snapshot := appendMessage(req.Context, "user", req.Text)

	action, what := e.plan(req.Domain, req.Text)
	if action == nil {
		text := "I'm not sure how to help with that. Could you tell me more about what you need?"
		return completed(text, appendMessage(snapshot, "assistant", text), nil), nil
	}

	desc, ok := req.Tools.Get(action.Name)
	if !ok {
		// Not advertised or not permitted: a normal conversational outcome.
		text := unsupportedText(what)
		return completed(text, appendMessage(snapshot, "assistant", text), nil), nil
	}

	if desc.Gated() {
		e.logger.Info("session %s: gated tool %s, suspending", req.SessionID, action.Name)
		return suspended(*action, snapshot, nil), nil
	}

	return e.execute(ctx, *action, snapshot)
}

// Resume implements DomainExecutor. The approved action runs as recorded (with
// any overrides already merged); reject completes without touching the tool.
func (e *ScriptedExecutor) Resume(ctx context.Context, req ResumeRequest) (*Outcome, error) {
	if req.Decision.Kind == proto.DecisionReject {
		text := "Okay, I've cancelled that. Nothing was changed."
		if req.Decision.Reason != "" {
			text = "Okay, I've cancelled that (" + req.Decision.Reason + "). Nothing was changed."
		}
		return completed(text, appendMessage(req.Context, "assistant", text), nil), nil
	}

	e.logger.Info("session %s: resuming %s after %s", req.SessionID, req.Action.Name, req.Decision.Kind)
	return e.execute(ctx, req.Action, req.Context)
}

// execute runs a tool and folds any failure into a completed outcome.
func (e *ScriptedExecutor) execute(ctx context.Context, action proto.ActionRequest, snapshot []proto.ContextMessage) (*Outcome, error) {
	tool, err := e.provider.Get(action.Name)
	if err != nil {
		text := faultText(action.Name, err)
		return completed(text, appendMessage(snapshot, "assistant", text), nil), nil
	}

	result, err := tool.Exec(ctx, action.Args)
	if err != nil {
		e.logger.Warn("tool %s failed: %v", action.Name, err)
		text := faultText(action.Name, err)
		return completed(text, appendMessage(snapshot, "assistant", text), nil), nil
	}

	var uiEvents []proto.UIEvent
	if result.UI != nil {
		uiEvents = append(uiEvents, proto.UIEvent{
			Name:       result.UI.Name,
			Properties: result.UI.Properties,
		})
	}

	return completed(result.Text, appendMessage(snapshot, "assistant", result.Text), uiEvents), nil
}

// plan maps a request to the tool invocation the playbook calls for. Returns
// nil when the domain playbook has no move, plus a short description of the
// capability for the unsupported-tool response.
func (e *ScriptedExecutor) plan(domain proto.Domain, text string) (*proto.ActionRequest, string) {
	lower := strings.ToLower(text)

	switch domain {
	case "wifi":
		if strings.Contains(lower, "restart") || strings.Contains(lower, "reboot") {
			return &proto.ActionRequest{
				Name: tools.ToolRestartRouter,
				Args: map[string]any{"router_id": "primary"},
			}, "restart your router"
		}
		return &proto.ActionRequest{
			Name: tools.ToolWifiDiagnostic,
			Args: map[string]any{"network_name": extractNetworkName(text)},
		}, "run network diagnostics"

	case "video":
		if strings.Contains(lower, "rent") {
			entry, found := tools.LookupCatalog(text)
			if !found {
				return &proto.ActionRequest{
					Name: tools.ToolSearchContent,
					Args: map[string]any{"query": text},
				}, "search the catalog"
			}
			return &proto.ActionRequest{
				Name: tools.ToolRentMovie,
				Args: map[string]any{"title": entry.Title, "rental_price": entry.RentalPrice},
			}, "rent content"
		}
		if strings.Contains(lower, "play") || strings.Contains(lower, "watch") {
			title := text
			if entry, found := tools.LookupCatalog(text); found {
				title = entry.Title
			}
			return &proto.ActionRequest{
				Name: tools.ToolPlayVideo,
				Args: map[string]any{"video_id": slug(title), "title": title},
			}, "play video"
		}
		return &proto.ActionRequest{
			Name: tools.ToolSearchContent,
			Args: map[string]any{"query": text},
		}, "search the catalog"
	}

	return nil, ""
}

// extractNetworkName pulls a quoted network name out of the request, falling
// back to a generic label.
func extractNetworkName(text string) string {
	for _, quote := range []string{`"`, "'"} {
		if start := strings.Index(text, quote); start != -1 {
			rest := text[start+1:]
			if end := strings.Index(rest, quote); end > 0 {
				return rest[:end]
			}
		}
	}
	return "your network"
}

func slug(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func appendMessage(messages []proto.ContextMessage, role, content string) []proto.ContextMessage {
	result := make([]proto.ContextMessage, len(messages), len(messages)+1)
	copy(result, messages)
	return append(result, proto.ContextMessage{Role: role, Content: content})
}
