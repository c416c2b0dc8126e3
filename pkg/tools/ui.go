package tools

import (
	"context"
	"fmt"
	"strings"

	"concierge/pkg/proto"
	"concierge/pkg/utils"
)

// UI event names pushed over the event channel. The frontend maps each name
// to a component.
const (
	UIEventVideoPlayer   = "video_player"
	UIEventErrorDisplay  = "error_display"
	UIEventNetworkStatus = "network_status_card"
)

// PlayVideoTool renders a video player in the frontend. Direct: the player
// appears immediately, no approval.
type PlayVideoTool struct{}

// NewPlayVideoTool creates a play video tool instance.
func NewPlayVideoTool() *PlayVideoTool {
	return &PlayVideoTool{}
}

// Definition implements Tool.
func (t *PlayVideoTool) Definition() Definition {
	return Definition{
		Name:        ToolPlayVideo,
		Description: "Play a video directly in the frontend player. Renders immediately in the UI",
		Mode:        proto.ModeDirect,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"video_id": {Type: "string", Description: "Video ID or search term"},
				"title":    {Type: "string", Description: "Title of the video"},
			},
			Required: []string{"video_id", "title"},
		},
	}
}

// Exec implements Tool.
func (t *PlayVideoTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	title := utils.GetMapFieldOr(args, "title", "Untitled")
	videoID := utils.GetMapFieldOr(args, "video_id", "")

	return Result{
		Text: fmt.Sprintf("Now playing: %s", title),
		UI: &UIPayload{
			Name: UIEventVideoPlayer,
			Properties: map[string]any{
				"video_url": "https://www.youtube.com/embed/yVinK_ZIrt0",
				"video_id":  videoID,
				"title":     title,
			},
		},
	}, nil
}

// ConfirmationDialogTool asks the user to confirm an action. Gated: execution
// pauses until the user selects an option.
type ConfirmationDialogTool struct{}

// NewConfirmationDialogTool creates a confirmation dialog tool instance.
func NewConfirmationDialogTool() *ConfirmationDialogTool {
	return &ConfirmationDialogTool{}
}

// Definition implements Tool.
func (t *ConfirmationDialogTool) Definition() Definition {
	return Definition{
		Name:        ToolConfirmationDialog,
		Description: "Display a confirmation dialog in the frontend and pause until the user chooses",
		Mode:        proto.ModeGated,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"message":         {Type: "string", Description: "Message to display in the confirmation dialog"},
				"options":         {Type: "string", Description: "Comma-separated options for the user to choose from"},
				KeySelectedOption: {Type: "string", Description: "The option selected by the user"},
			},
			Required: []string{"message"},
		},
	}
}

// Exec implements Tool. Runs after the user's decision; the selected option
// arrives via edited args.
func (t *ConfirmationDialogTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	selected := utils.GetMapFieldOr(args, KeySelectedOption, "")
	if selected == "" {
		// Approval without an explicit choice means the first offered option.
		options := utils.GetMapFieldOr(args, "options", "")
		if options != "" {
			selected = strings.TrimSpace(strings.Split(options, ",")[0])
		} else {
			selected = "Confirm"
		}
	}
	return Result{Text: fmt.Sprintf("User confirmed: %s", selected)}, nil
}

// ErrorDisplayTool shows an error message in the frontend. Direct.
type ErrorDisplayTool struct{}

// NewErrorDisplayTool creates an error display tool instance.
func NewErrorDisplayTool() *ErrorDisplayTool {
	return &ErrorDisplayTool{}
}

// Definition implements Tool.
func (t *ErrorDisplayTool) Definition() Definition {
	return Definition{
		Name:        ToolErrorDisplay,
		Description: "Display an error message in the frontend",
		Mode:        proto.ModeDirect,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"error_message": {Type: "string", Description: "Error message to display"},
			},
			Required: []string{"error_message"},
		},
	}
}

// Exec implements Tool.
func (t *ErrorDisplayTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	message := utils.GetMapFieldOr(args, "error_message", "An error occurred")
	return Result{
		Text: fmt.Sprintf("Error displayed to user: %s", message),
		UI: &UIPayload{
			Name:       UIEventErrorDisplay,
			Properties: map[string]any{"error_message": message},
		},
	}, nil
}

// NetworkStatusDisplayTool shows a network status card in the frontend.
// Direct; wifi domain specific.
type NetworkStatusDisplayTool struct{}

// NewNetworkStatusDisplayTool creates a network status display tool instance.
func NewNetworkStatusDisplayTool() *NetworkStatusDisplayTool {
	return &NetworkStatusDisplayTool{}
}

// Definition implements Tool.
func (t *NetworkStatusDisplayTool) Definition() Definition {
	return Definition{
		Name:        ToolNetworkStatusDisplay,
		Description: "Display a detailed network status card in the frontend",
		Mode:        proto.ModeDirect,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"status_data": {Type: "object", Description: "Network status data to display"},
			},
			Required: []string{"status_data"},
		},
	}
}

// Exec implements Tool.
func (t *NetworkStatusDisplayTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	statusData, _ := utils.SafeAssert[map[string]any](args["status_data"])
	return Result{
		Text: "Network status card displayed.",
		UI: &UIPayload{
			Name:       UIEventNetworkStatus,
			Properties: statusData,
		},
	}, nil
}
