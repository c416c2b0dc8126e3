// Package uievent implements the fire-and-forget UI event channel. Direct
// tools emit rendering hints (video player, status cards, error banners) that
// are delivered at most once to connected subscribers and never persisted or
// retried.
package uievent

import (
	"sync"

	"concierge/pkg/logx"
	"concierge/pkg/proto"
)

// Channel fans UI events out to per-session subscribers. Delivery is
// best-effort: a slow or absent subscriber drops events rather than blocking
// the turn that produced them.
type Channel struct {
	mu          sync.Mutex
	subscribers map[string][]chan proto.UIEvent
	bufferSize  int
	dropped     int64
	logger      *logx.Logger
}

// NewChannel creates a UI event channel with the given per-subscriber buffer.
func NewChannel(bufferSize int) *Channel {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Channel{
		subscribers: make(map[string][]chan proto.UIEvent),
		bufferSize:  bufferSize,
		logger:      logx.NewLogger("uievent"),
	}
}

// Subscribe registers a listener for a session's UI events. The returned
// channel is closed by Unsubscribe.
func (c *Channel) Subscribe(sessionID string) <-chan proto.UIEvent {
	ch := make(chan proto.UIEvent, c.bufferSize)

	c.mu.Lock()
	c.subscribers[sessionID] = append(c.subscribers[sessionID], ch)
	c.mu.Unlock()

	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (c *Channel) Unsubscribe(sessionID string, ch <-chan proto.UIEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			c.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(c.subscribers[sessionID]) == 0 {
		delete(c.subscribers, sessionID)
	}
}

// Emit delivers an event to the session's subscribers. Never blocks: a full
// buffer drops the event, and turn processing is unaffected either way.
func (c *Channel) Emit(event proto.UIEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.subscribers[event.SessionID]
	if len(subs) == 0 {
		c.dropped++
		c.logger.Debug("no subscriber for session %s, dropping UI event %s",
			event.SessionID, event.Name)
		return
	}

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			c.dropped++
			c.logger.Warn("subscriber buffer full for session %s, dropping UI event %s",
				event.SessionID, event.Name)
		}
	}
}

// Dropped returns the number of events dropped so far.
func (c *Channel) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// SubscriberCount returns the number of active subscribers for a session.
func (c *Channel) SubscriberCount(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers[sessionID])
}
