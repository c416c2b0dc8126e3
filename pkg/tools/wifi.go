package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"concierge/pkg/proto"
	"concierge/pkg/utils"
)

// WifiDiagnosticTool runs network diagnostics for a WiFi network. Direct
// execution: diagnostics are read-only, no approval needed.
type WifiDiagnosticTool struct{}

// NewWifiDiagnosticTool creates a wifi diagnostic tool instance.
func NewWifiDiagnosticTool() *WifiDiagnosticTool {
	return &WifiDiagnosticTool{}
}

// Definition implements Tool.
func (t *WifiDiagnosticTool) Definition() Definition {
	return Definition{
		Name:        ToolWifiDiagnostic,
		Description: "Run diagnostics on a WiFi network and report signal, speed, and device load",
		Mode:        proto.ModeDirect,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"network_name": {Type: "string", Description: "The WiFi network name (SSID) to diagnose"},
			},
			Required: []string{"network_name"},
		},
	}
}

// Exec implements Tool. In production this would query network monitoring
// systems; here it returns representative diagnostic results.
func (t *WifiDiagnosticTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	networkName := utils.GetMapFieldOr(args, "network_name", "your network")

	text := fmt.Sprintf(`WiFi Diagnostic Results for '%s':
- Signal Strength: -45 dBm (Excellent)
- Channel: 36 (5 GHz)
- Connected Devices: 23 (high usage may cause slowdowns)
- Internet Speed: 250 Mbps down / 35 Mbps up
Recommendation: consider restarting the router if speeds stay slow`, networkName)

	return Result{Text: text}, nil
}

// RestartRouterTool remotely restarts the customer's router. Gated: the
// restart command is only sent after an approval decision.
type RestartRouterTool struct {
	mu       sync.Mutex
	restarts int
}

// NewRestartRouterTool creates a restart router tool instance.
func NewRestartRouterTool() *RestartRouterTool {
	return &RestartRouterTool{}
}

// Definition implements Tool.
func (t *RestartRouterTool) Definition() Definition {
	return Definition{
		Name:        ToolRestartRouter,
		Description: "Remotely restart the customer's router. Sensitive operation requiring user confirmation",
		Mode:        proto.ModeGated,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"router_id":       {Type: "string", Description: "Router identifier (defaults to primary)"},
				KeySelectedOption: {Type: "string", Description: "The option selected by the user after the approval prompt"},
			},
		},
	}
}

// Exec implements Tool. Runs only after approval; a selected_option override
// containing "cancel" skips the restart command entirely.
func (t *RestartRouterTool) Exec(_ context.Context, args map[string]any) (Result, error) {
	selected := utils.GetMapFieldOr(args, KeySelectedOption, "")
	if selected != "" && strings.Contains(strings.ToLower(selected), "cancel") {
		return Result{Text: "Router restart cancelled by user."}, nil
	}

	routerID := utils.GetMapFieldOr(args, "router_id", "primary")

	t.mu.Lock()
	t.restarts++
	t.mu.Unlock()

	text := fmt.Sprintf("Router restart initiated for %s. Your router will be offline for about 2 minutes "+
		"and then automatically come back online. Your devices should reconnect automatically.", routerID)
	return Result{Text: text}, nil
}

// RestartCount reports how many restart commands were actually issued.
func (t *RestartRouterTool) RestartCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restarts
}
