package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/pkg/capability"
	"concierge/pkg/config"
	"concierge/pkg/executor"
	"concierge/pkg/ledger"
	"concierge/pkg/proto"
	"concierge/pkg/supervisor"
	"concierge/pkg/tools"
	"concierge/pkg/uievent"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	domainTools := make(map[string][]string, len(cfg.Domains))
	for name, domainCfg := range cfg.Domains {
		domainTools[name] = domainCfg.Tools
	}
	registry, err := capability.NewRegistry(domainTools, tools.List())
	require.NoError(t, err)

	provider := tools.NewStaticProvider(tools.DemoTools()...)
	exec := executor.NewScriptedExecutor(provider)
	events := uievent.NewChannel(8)
	sup := supervisor.New(cfg, store, registry, exec, events, nil, nil)

	server := NewServer(cfg, sup, events)
	ts := httptest.NewServer(server.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) proto.TurnResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var turnResp proto.TurnResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turnResp))
	return turnResp
}

func allToolNames() []string {
	return []string{
		tools.ToolWifiDiagnostic, tools.ToolRestartRouter,
		tools.ToolSearchContent, tools.ToolRentMovie, tools.ToolPlayVideo,
		tools.ToolConfirmationDialog, tools.ToolErrorDisplay, tools.ToolNetworkStatusDisplay,
	}
}

func TestTurnEndpointCompleted(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/turn", proto.TurnRequest{
		SessionID:           "sess-1",
		RequestText:         "my wifi is slow",
		AdvertisedToolNames: allToolNames(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	turnResp := decodeResponse(t, resp)
	assert.Equal(t, proto.ResponseCompleted, turnResp.Kind)
	assert.Contains(t, turnResp.Text, "Signal Strength")
}

func TestTurnEndpointSuspended(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/turn", proto.TurnRequest{
		SessionID:           "sess-1",
		RequestText:         "restart my router",
		AdvertisedToolNames: allToolNames(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	turnResp := decodeResponse(t, resp)
	assert.Equal(t, proto.ResponseSuspended, turnResp.Kind)
	assert.NotEmpty(t, turnResp.InterruptID)
	require.NotNil(t, turnResp.Action)
	assert.Equal(t, tools.ToolRestartRouter, turnResp.Action.Name)
}

func TestTurnEndpointRejectsEmptyText(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/turn", proto.TurnRequest{SessionID: "sess-1"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResumeLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	turnResp := decodeResponse(t, postJSON(t, ts.URL+"/api/turn", proto.TurnRequest{
		SessionID:           "sess-1",
		RequestText:         "restart my router",
		AdvertisedToolNames: allToolNames(),
	}))
	require.Equal(t, proto.ResponseSuspended, turnResp.Kind)

	resp := postJSON(t, ts.URL+"/api/resume", proto.ResumeRequest{
		InterruptID:         turnResp.InterruptID,
		Decision:            proto.Decision{Kind: proto.DecisionApprove},
		AdvertisedToolNames: allToolNames(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resumeResp := decodeResponse(t, resp)
	assert.Equal(t, proto.ResponseCompleted, resumeResp.Kind)
	assert.Contains(t, resumeResp.Text, "restart initiated")

	// Replaying the decision is a conflict.
	replay := postJSON(t, ts.URL+"/api/resume", proto.ResumeRequest{
		InterruptID:         turnResp.InterruptID,
		Decision:            proto.Decision{Kind: proto.DecisionApprove},
		AdvertisedToolNames: allToolNames(),
	})
	defer func() { _ = replay.Body.Close() }()
	assert.Equal(t, http.StatusConflict, replay.StatusCode)
}

func TestResumeUnknownInterruptConflict(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/resume", proto.ResumeRequest{
		InterruptID: "int-unknown",
		Decision:    proto.Decision{Kind: proto.DecisionApprove},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestResumeInvalidDecisionBadRequest(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/resume", proto.ResumeRequest{
		InterruptID: "int-1",
		Decision:    proto.Decision{Kind: "maybe"},
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelEndpoint(t *testing.T) {
	ts := newTestServer(t)

	turnResp := decodeResponse(t, postJSON(t, ts.URL+"/api/turn", proto.TurnRequest{
		SessionID:           "sess-1",
		RequestText:         "restart my router",
		AdvertisedToolNames: allToolNames(),
	}))
	require.Equal(t, proto.ResponseSuspended, turnResp.Kind)

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/interrupts/%s", ts.URL, turnResp.InterruptID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Cancelling twice is a conflict.
	second, err := http.DefaultClient.Do(req.Clone(req.Context()))
	require.NoError(t, err)
	defer func() { _ = second.Body.Close() }()
	assert.Equal(t, http.StatusConflict, second.StatusCode)
}

func TestEventsEndpointRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
