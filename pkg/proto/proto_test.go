package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeTokenRoundTrip(t *testing.T) {
	token := &ResumeToken{
		SessionID:   "sess-1",
		InterruptID: "int-1",
		Domain:      "video",
		Pending: ActionRequest{
			Name: "rent_movie",
			Args: map[string]any{"title": "The Matrix", "rental_price": 3.99},
		},
		Context: []ContextMessage{
			{Role: "user", Content: "rent the matrix"},
		},
	}

	data, err := token.Encode()
	require.NoError(t, err)

	decoded, err := DecodeResumeToken(data)
	require.NoError(t, err)

	assert.Equal(t, token.SessionID, decoded.SessionID)
	assert.Equal(t, token.InterruptID, decoded.InterruptID)
	assert.Equal(t, token.Domain, decoded.Domain)
	assert.Equal(t, token.Pending.Name, decoded.Pending.Name)
	assert.Equal(t, "The Matrix", decoded.Pending.Args["title"])
	require.Len(t, decoded.Context, 1)
	assert.Equal(t, "rent the matrix", decoded.Context[0].Content)
}

func TestDecodeResumeTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeResumeToken([]byte("not json"))
	assert.Error(t, err)
}

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  bool
	}{
		{"approve", Decision{Kind: DecisionApprove}, false},
		{"approve with overrides", Decision{Kind: DecisionApprove, OverriddenArgs: map[string]any{"a": 1}}, false},
		{"edit", Decision{Kind: DecisionEdit, OverriddenArgs: map[string]any{"a": 1}}, false},
		{"reject", Decision{Kind: DecisionReject, Reason: "changed my mind"}, false},
		{"reject with overrides", Decision{Kind: DecisionReject, OverriddenArgs: map[string]any{"a": 1}}, true},
		{"unknown kind", Decision{Kind: "maybe"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActionRequestWithOverrides(t *testing.T) {
	action := ActionRequest{
		Name: "rent_movie",
		Args: map[string]any{"title": "The Matrix", "rental_price": 3.99},
	}

	merged := action.WithOverrides(map[string]any{"selected_option": "Cancel", "rental_price": 4.99})

	assert.Equal(t, "rent_movie", merged.Name)
	assert.Equal(t, "The Matrix", merged.Args["title"])
	assert.Equal(t, 4.99, merged.Args["rental_price"])
	assert.Equal(t, "Cancel", merged.Args["selected_option"])

	// Original untouched.
	assert.Equal(t, 3.99, action.Args["rental_price"])
	_, hasOption := action.Args["selected_option"]
	assert.False(t, hasOption)
}

func TestActionRequestWithOverridesEmpty(t *testing.T) {
	action := ActionRequest{Name: "restart_router", Args: map[string]any{"router_id": "primary"}}
	merged := action.WithOverrides(nil)
	assert.Equal(t, action.Name, merged.Name)
	assert.Equal(t, "primary", merged.Args["router_id"])
}

func TestInterruptStatusTerminal(t *testing.T) {
	assert.False(t, InterruptPending.Terminal())
	assert.True(t, InterruptResolved.Terminal())
	assert.True(t, InterruptAbandoned.Terminal())
}

func TestResponseConstructors(t *testing.T) {
	completed := Completed("all done")
	assert.Equal(t, ResponseCompleted, completed.Kind)
	assert.Equal(t, "all done", completed.Text)
	assert.Nil(t, completed.Action)

	action := ActionRequest{Name: "restart_router"}
	suspendedResp := Suspended("int-42", action)
	assert.Equal(t, ResponseSuspended, suspendedResp.Kind)
	assert.Equal(t, "int-42", suspendedResp.InterruptID)
	require.NotNil(t, suspendedResp.Action)
	assert.Equal(t, "restart_router", suspendedResp.Action.Name)
}

func TestIDGenerators(t *testing.T) {
	sessionID := GenerateSessionID()
	interruptID := GenerateInterruptID()

	if sessionID == GenerateSessionID() {
		t.Error("expected unique session ids")
	}
	assert.Contains(t, sessionID, "sess-")
	assert.Contains(t, interruptID, "int-")
}

func TestRecordRoundTrip(t *testing.T) {
	record := NewRecord(RecordTurn, "sess-1")
	record.SetPayload("domain", "wifi")
	record.SetPayload("outcome", "suspended")

	data, err := record.ToJSON()
	require.NoError(t, err)

	parsed, err := RecordFromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, record.ID, parsed.ID)
	assert.Equal(t, RecordTurn, parsed.Type)
	domain, ok := parsed.GetPayload("domain")
	require.True(t, ok)
	assert.Equal(t, "wifi", domain)
}
