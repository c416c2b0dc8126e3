package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"concierge/pkg/capability"
	"concierge/pkg/config"
	"concierge/pkg/logx"
	"concierge/pkg/proto"
	"concierge/pkg/tools"
)

const defaultMaxReplyTokens = 1024

// AnthropicExecutor is an LLM-backed domain executor running a Claude tool
// loop. Gated tool calls suspend the loop; direct tool calls execute inline
// and feed their results back to the model.
type AnthropicExecutor struct {
	client        anthropic.Client
	model         anthropic.Model
	provider      tools.Provider
	maxIterations int
	logger        *logx.Logger
}

// NewAnthropicExecutor creates an LLM-backed executor from configuration.
func NewAnthropicExecutor(cfg config.ExecutorCfg, provider tools.Provider) (*AnthropicExecutor, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key: environment variable %s is not set", cfg.APIKeyEnv)
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 8
	}

	return &AnthropicExecutor{
		client:        anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:         anthropic.Model(cfg.Model),
		provider:      provider,
		maxIterations: maxIterations,
		logger:        logx.NewLogger("executor-anthropic"),
	}, nil
}

// Run implements DomainExecutor.
func (e *AnthropicExecutor) Run(ctx context.Context, req Request) (*Outcome, error) {
	transcript := appendMessage(req.Context, "user", req.Text)
	return e.loop(ctx, req.Domain, req.SessionID, req.Tools, transcript, nil)
}

// Resume implements DomainExecutor. On approve or edit the recorded action
// runs first (its suspension is its authorization), then the loop continues
// so the model can phrase the result or chain a further gated call.
func (e *AnthropicExecutor) Resume(ctx context.Context, req ResumeRequest) (*Outcome, error) {
	if req.Decision.Kind == proto.DecisionReject {
		reason := req.Decision.Reason
		if reason == "" {
			reason = "the user declined"
		}
		transcript := appendMessage(req.Context,
			"user", fmt.Sprintf("The %s action was not approved (%s). Acknowledge without taking the action.", req.Action.Name, reason))
		return e.loop(ctx, req.Domain, req.SessionID, req.Tools, transcript, nil)
	}

	tool, err := e.provider.Get(req.Action.Name)
	if err != nil {
		text := faultText(req.Action.Name, err)
		return completed(text, appendMessage(req.Context, "assistant", text), nil), nil
	}

	result, err := tool.Exec(ctx, req.Action.Args)
	if err != nil {
		e.logger.Warn("approved tool %s failed: %v", req.Action.Name, err)
		text := faultText(req.Action.Name, err)
		return completed(text, appendMessage(req.Context, "assistant", text), nil), nil
	}

	var uiEvents []proto.UIEvent
	if result.UI != nil {
		uiEvents = append(uiEvents, proto.UIEvent{Name: result.UI.Name, Properties: result.UI.Properties})
	}

	transcript := appendMessage(req.Context,
		"user", fmt.Sprintf("The approved %s action completed with result:\n%s\nRelay this to the user.", req.Action.Name, result.Text))
	return e.loop(ctx, req.Domain, req.SessionID, req.Tools, transcript, uiEvents)
}

// loop drives the model until it produces a plain text reply, requests a
// gated tool, or runs out of iterations.
func (e *AnthropicExecutor) loop(ctx context.Context, domain proto.Domain, sessionID string,
	toolSet *capability.EffectiveToolSet, transcript []proto.ContextMessage, uiEvents []proto.UIEvent) (*Outcome, error) {

	toolParams := buildToolParams(toolSet)

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		params := anthropic.MessageNewParams{
			Model:     e.model,
			Messages:  buildMessages(transcript),
			MaxTokens: defaultMaxReplyTokens,
			System: []anthropic.TextBlockParam{{
				Text: systemPrompt(domain, toolSet.Names()),
				Type: "text",
			}},
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}

		resp, err := e.client.Messages.New(ctx, params)
		if err != nil {
			e.logger.Error("model call failed for session %s: %v", sessionID, err)
			text := fmt.Sprintf("I ran into a problem handling that request: %v. Please try again.", err)
			return completed(text, appendMessage(transcript, "assistant", text), uiEvents), nil
		}
		if resp == nil || len(resp.Content) == 0 {
			text := "I didn't get a response. Please try again."
			return completed(text, appendMessage(transcript, "assistant", text), uiEvents), nil
		}

		var responseText string
		var toolCalls []proto.ActionRequest

		for i := range resp.Content {
			block := &resp.Content[i]
			switch block.Type {
			case "text":
				responseText += block.AsText().Text
			case "tool_use":
				toolUse := block.AsToolUse()
				var args map[string]any
				if err := json.Unmarshal(toolUse.Input, &args); err != nil {
					return nil, fmt.Errorf("failed to parse tool input for %s: %w", toolUse.Name, err)
				}
				toolCalls = append(toolCalls, proto.ActionRequest{Name: toolUse.Name, Args: args})
			}
		}

		if responseText != "" {
			transcript = appendMessage(transcript, "assistant", responseText)
		}

		if len(toolCalls) == 0 {
			return completed(responseText, transcript, uiEvents), nil
		}

		for _, call := range toolCalls {
			desc, ok := toolSet.Get(call.Name)
			if !ok {
				transcript = appendMessage(transcript, "user",
					fmt.Sprintf("Tool %s is not available on this device. Answer without it.", call.Name))
				continue
			}

			if desc.Gated() {
				e.logger.Info("session %s: gated tool %s, suspending", sessionID, call.Name)
				return suspended(call, transcript, uiEvents), nil
			}

			tool, err := e.provider.Get(call.Name)
			if err != nil {
				transcript = appendMessage(transcript, "user",
					fmt.Sprintf("Tool %s failed: %v.", call.Name, err))
				continue
			}
			result, err := tool.Exec(ctx, call.Args)
			if err != nil {
				e.logger.Warn("tool %s failed: %v", call.Name, err)
				transcript = appendMessage(transcript, "user",
					fmt.Sprintf("Tool %s failed: %v.", call.Name, err))
				continue
			}
			if result.UI != nil {
				uiEvents = append(uiEvents, proto.UIEvent{Name: result.UI.Name, Properties: result.UI.Properties})
			}
			transcript = appendMessage(transcript, "user",
				fmt.Sprintf("Tool %s returned:\n%s", call.Name, result.Text))
		}
	}

	text := "I wasn't able to finish handling that request. Please try again."
	return completed(text, appendMessage(transcript, "assistant", text), uiEvents), nil
}

func systemPrompt(domain proto.Domain, toolNames []string) string {
	return fmt.Sprintf(
		"You are a %s support assistant. Help the user with %s requests only. "+
			"Use the provided tools when they apply; available tools: %v. "+
			"Keep responses short and conversational.",
		domain, domain, toolNames)
}

func buildMessages(transcript []proto.ContextMessage) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(transcript))
	for _, msg := range transcript {
		role := anthropic.MessageParamRole(msg.Role)
		if role != anthropic.MessageParamRoleAssistant {
			role = anthropic.MessageParamRoleUser
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}
	return mergeConsecutive(messages)
}

// mergeConsecutive collapses same-role neighbors; the Messages API requires
// strict user/assistant alternation.
func mergeConsecutive(messages []anthropic.MessageParam) []anthropic.MessageParam {
	var merged []anthropic.MessageParam
	for _, msg := range messages {
		if len(merged) > 0 && merged[len(merged)-1].Role == msg.Role {
			last := &merged[len(merged)-1]
			last.Content = append(last.Content, msg.Content...)
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}

func buildToolParams(toolSet *capability.EffectiveToolSet) []anthropic.ToolUnionParam {
	var params []anthropic.ToolUnionParam
	for _, desc := range toolSet.Descriptors() {
		def := desc.Definition

		var properties any
		if len(def.InputSchema.Properties) > 0 {
			props := make(map[string]any, len(def.InputSchema.Properties))
			for propName, prop := range def.InputSchema.Properties {
				propMap := map[string]any{"type": prop.Type}
				if prop.Description != "" {
					propMap["description"] = prop.Description
				}
				if len(prop.Enum) > 0 {
					propMap["enum"] = prop.Enum
				}
				props[propName] = propMap
			}
			properties = props
		}

		toolParam := anthropic.ToolParam{
			Name: def.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: properties,
				Required:   def.InputSchema.Required,
			},
		}
		params = append(params, anthropic.ToolUnionParamOfTool(toolParam.InputSchema, toolParam.Name))
	}
	return params
}
