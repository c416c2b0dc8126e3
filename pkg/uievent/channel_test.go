package uievent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/pkg/proto"
)

func TestEmitDeliversToSubscriber(t *testing.T) {
	channel := NewChannel(4)
	ch := channel.Subscribe("sess-1")

	channel.Emit(proto.UIEvent{
		SessionID:  "sess-1",
		Name:       "video_player",
		Properties: map[string]any{"title": "The Matrix"},
	})

	event := <-ch
	assert.Equal(t, "video_player", event.Name)
	assert.Equal(t, "The Matrix", event.Properties["title"])
}

func TestEmitPreservesOrder(t *testing.T) {
	channel := NewChannel(8)
	ch := channel.Subscribe("sess-1")

	for _, name := range []string{"first", "second", "third"} {
		channel.Emit(proto.UIEvent{SessionID: "sess-1", Name: name})
	}

	assert.Equal(t, "first", (<-ch).Name)
	assert.Equal(t, "second", (<-ch).Name)
	assert.Equal(t, "third", (<-ch).Name)
}

func TestEmitWithoutSubscriberDrops(t *testing.T) {
	channel := NewChannel(4)

	channel.Emit(proto.UIEvent{SessionID: "sess-ghost", Name: "error_display"})

	assert.Equal(t, int64(1), channel.Dropped())
}

func TestEmitNeverBlocksOnFullBuffer(t *testing.T) {
	channel := NewChannel(1)
	ch := channel.Subscribe("sess-1")

	// Nothing reads from ch; second emit must drop, not block.
	channel.Emit(proto.UIEvent{SessionID: "sess-1", Name: "kept"})
	channel.Emit(proto.UIEvent{SessionID: "sess-1", Name: "dropped"})

	assert.Equal(t, int64(1), channel.Dropped())
	assert.Equal(t, "kept", (<-ch).Name)
	select {
	case event := <-ch:
		t.Errorf("expected no further events, got %s", event.Name)
	default:
	}
}

func TestSessionIsolation(t *testing.T) {
	channel := NewChannel(4)
	ch1 := channel.Subscribe("sess-1")
	ch2 := channel.Subscribe("sess-2")

	channel.Emit(proto.UIEvent{SessionID: "sess-1", Name: "for-one"})

	assert.Equal(t, "for-one", (<-ch1).Name)
	select {
	case event := <-ch2:
		t.Errorf("event leaked across sessions: %s", event.Name)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	channel := NewChannel(4)
	ch := channel.Subscribe("sess-1")
	require.Equal(t, 1, channel.SubscriberCount("sess-1"))

	channel.Unsubscribe("sess-1", ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, channel.SubscriberCount("sess-1"))
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	channel := NewChannel(4)
	ch1 := channel.Subscribe("sess-1")
	ch2 := channel.Subscribe("sess-1")

	channel.Emit(proto.UIEvent{SessionID: "sess-1", Name: "broadcast"})

	assert.Equal(t, "broadcast", (<-ch1).Name)
	assert.Equal(t, "broadcast", (<-ch2).Name)
}
