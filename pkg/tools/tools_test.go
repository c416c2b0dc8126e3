package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/pkg/proto"
)

func TestLookupCatalog(t *testing.T) {
	entry, found := LookupCatalog("I want to rent the matrix tonight")
	require.True(t, found)
	assert.Equal(t, "The Matrix", entry.Title)
	assert.Equal(t, 3.99, entry.RentalPrice)

	entry, found = LookupCatalog("something with nature")
	require.True(t, found)
	assert.Equal(t, "Planet Earth II", entry.Title)

	// Matching on the full title also works.
	_, found = LookupCatalog("play Cute Dogs Compilation")
	assert.True(t, found)

	_, found = LookupCatalog("obscure arthouse cinema")
	assert.False(t, found)
}

func TestSearchContent(t *testing.T) {
	tool := NewSearchContentTool()

	result, err := tool.Exec(context.Background(), map[string]any{"query": "matrix"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "The Matrix")
	assert.Contains(t, result.Text, "$3.99")
	assert.Nil(t, result.UI)

	result, err = tool.Exec(context.Background(), map[string]any{"query": "nothing here"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "No exact matches")
}

func TestRentMovieChargesOnExec(t *testing.T) {
	tool := NewRentMovieTool()
	assert.Equal(t, 0, tool.ChargeCount())

	result, err := tool.Exec(context.Background(), map[string]any{"title": "The Matrix"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "rented successfully")
	assert.Contains(t, result.Text, "Rental ID")
	assert.Equal(t, 1, tool.ChargeCount())
}

func TestRentMovieHonorsCancel(t *testing.T) {
	tool := NewRentMovieTool()

	result, err := tool.Exec(context.Background(), map[string]any{
		"title":           "The Matrix",
		KeySelectedOption: "Cancel",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "cancelled")
	assert.Equal(t, 0, tool.ChargeCount())
}

func TestRentMovieRequiresTitle(t *testing.T) {
	tool := NewRentMovieTool()
	_, err := tool.Exec(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, 0, tool.ChargeCount())
}

func TestRentMovieStableRentalID(t *testing.T) {
	tool := NewRentMovieTool()

	first, err := tool.Exec(context.Background(), map[string]any{"title": "The Matrix"})
	require.NoError(t, err)
	second, err := tool.Exec(context.Background(), map[string]any{"title": "The Matrix"})
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestRestartRouterHonorsCancel(t *testing.T) {
	tool := NewRestartRouterTool()

	result, err := tool.Exec(context.Background(), map[string]any{
		KeySelectedOption: "No, Cancel",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "cancelled")
	assert.Equal(t, 0, tool.RestartCount())

	result, err = tool.Exec(context.Background(), map[string]any{"router_id": "rtr-7"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "rtr-7")
	assert.Equal(t, 1, tool.RestartCount())
}

func TestWifiDiagnostic(t *testing.T) {
	tool := NewWifiDiagnosticTool()

	result, err := tool.Exec(context.Background(), map[string]any{"network_name": "HomeNet"})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "HomeNet")
	assert.Contains(t, result.Text, "Signal Strength")
}

func TestPlayVideoReturnsUIPayload(t *testing.T) {
	tool := NewPlayVideoTool()

	result, err := tool.Exec(context.Background(), map[string]any{
		"video_id": "dog-1",
		"title":    "Cute Dogs Compilation",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Now playing")
	require.NotNil(t, result.UI)
	assert.Equal(t, UIEventVideoPlayer, result.UI.Name)
	assert.Equal(t, "Cute Dogs Compilation", result.UI.Properties["title"])
}

func TestConfirmationDialogSelection(t *testing.T) {
	tool := NewConfirmationDialogTool()

	result, err := tool.Exec(context.Background(), map[string]any{
		"message":         "Proceed?",
		KeySelectedOption: "Yes, Rent",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Yes, Rent")

	// No explicit selection: first offered option wins.
	result, err = tool.Exec(context.Background(), map[string]any{
		"message": "Proceed?",
		"options": "Yes, restart now,Cancel",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "Yes")
}

func TestErrorDisplayUIPayload(t *testing.T) {
	tool := NewErrorDisplayTool()

	result, err := tool.Exec(context.Background(), map[string]any{"error_message": "service unavailable"})
	require.NoError(t, err)
	require.NotNil(t, result.UI)
	assert.Equal(t, UIEventErrorDisplay, result.UI.Name)
	assert.Equal(t, "service unavailable", result.UI.Properties["error_message"])
}

func TestToolModes(t *testing.T) {
	gated := map[string]bool{
		ToolRestartRouter:      true,
		ToolRentMovie:          true,
		ToolConfirmationDialog: true,
	}
	for _, tool := range DemoTools() {
		def := tool.Definition()
		want := proto.ModeDirect
		if gated[def.Name] {
			want = proto.ModeGated
		}
		if def.Mode != want {
			t.Errorf("tool %s: mode %s, want %s", def.Name, def.Mode, want)
		}
	}
}

func TestGlobalRegistryList(t *testing.T) {
	defs := List()
	require.Len(t, defs, 8)
	// Sorted by name.
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Errorf("definitions not sorted: %s before %s", defs[i-1].Name, defs[i].Name)
		}
	}
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider(NewWifiDiagnosticTool())

	tool, err := provider.Get(ToolWifiDiagnostic)
	require.NoError(t, err)
	assert.Equal(t, ToolWifiDiagnostic, tool.Definition().Name)

	_, err = provider.Get(ToolRentMovie)
	assert.Error(t, err)
}

func TestRegistryProviderGet(t *testing.T) {
	provider := NewRegistryProvider()

	tool, err := provider.Get(ToolSearchContent)
	require.NoError(t, err)
	assert.Equal(t, ToolSearchContent, tool.Definition().Name)

	_, err = provider.Get("not_a_tool")
	assert.Error(t, err)
}
