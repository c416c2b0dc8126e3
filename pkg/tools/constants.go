package tools

// Tool name constants. Names are the wire identity clients advertise and the
// capability registry filters on.
const (
	// Wifi domain backend tools.
	ToolWifiDiagnostic = "wifi_diagnostic"
	ToolRestartRouter  = "restart_router"

	// Video domain backend tools.
	ToolSearchContent = "search_content"
	ToolRentMovie     = "rent_movie"

	// Client UI tools, advertised by the frontend per app version.
	ToolPlayVideo            = "play_video"
	ToolConfirmationDialog   = "confirmation_dialog"
	ToolErrorDisplay         = "error_display"
	ToolNetworkStatusDisplay = "network_status_display"
)

// Argument keys shared across gated tools.
const (
	// KeySelectedOption carries the user's choice after an approval prompt.
	// Decisions with edited args typically override this key.
	KeySelectedOption = "selected_option"
)
