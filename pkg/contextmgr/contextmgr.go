// Package contextmgr manages the conversation context handed to a domain
// executor: accumulation of turn messages and token-budget compaction so a
// long session never overflows the executor's context window.
package contextmgr

import (
	"fmt"
	"strings"

	"concierge/pkg/proto"
	"concierge/pkg/utils"
)

// ContextManager holds one session's working context. Not safe for concurrent
// use; the supervisor's per-session lock guarantees a single writer.
type ContextManager struct {
	messages  []proto.ContextMessage
	counter   *utils.TokenCounter
	maxTokens int
}

// NewContextManager creates a context manager with the given token budget.
// A budget of zero or less disables compaction.
func NewContextManager(maxTokens int) *ContextManager {
	// A nil counter falls back to character-based estimation.
	counter, _ := utils.NewTokenCounter()
	return &ContextManager{
		messages:  make([]proto.ContextMessage, 0),
		counter:   counter,
		maxTokens: maxTokens,
	}
}

// Load replaces the working context with persisted history.
func (cm *ContextManager) Load(messages []proto.ContextMessage) {
	cm.messages = append(cm.messages[:0], messages...)
}

// AddMessage appends a role/content pair to the context.
func (cm *ContextManager) AddMessage(role, content string) {
	cm.messages = append(cm.messages, proto.ContextMessage{Role: role, Content: content})
}

// CountTokens returns the token count across all messages.
func (cm *ContextManager) CountTokens() int {
	total := 0
	for _, msg := range cm.messages {
		total += cm.counter.CountTokens(msg.Role) + cm.counter.CountTokens(msg.Content)
	}
	return total
}

// ShouldCompact reports whether the context exceeds its budget.
func (cm *ContextManager) ShouldCompact() bool {
	return cm.maxTokens > 0 && cm.CountTokens() > cm.maxTokens
}

// CompactIfNeeded drops the oldest messages until the context fits the
// budget. The first message survives compaction: it anchors the session's
// opening request so the executor keeps the original intent.
func (cm *ContextManager) CompactIfNeeded() {
	if !cm.ShouldCompact() {
		return
	}
	for cm.CountTokens() > cm.maxTokens && len(cm.messages) > 2 {
		cm.messages = append(cm.messages[:1], cm.messages[2:]...)
	}
}

// Messages returns a copy of the working context.
func (cm *ContextManager) Messages() []proto.ContextMessage {
	result := make([]proto.ContextMessage, len(cm.messages))
	copy(result, cm.messages)
	return result
}

// MessageCount returns the number of messages in the context.
func (cm *ContextManager) MessageCount() int {
	return len(cm.messages)
}

// Clear removes all messages from the context.
func (cm *ContextManager) Clear() {
	cm.messages = cm.messages[:0]
}

// Summary returns a brief description of the context state for logging.
func (cm *ContextManager) Summary() string {
	if len(cm.messages) == 0 {
		return "empty context"
	}

	roleCounts := make(map[string]int)
	for _, msg := range cm.messages {
		roleCounts[msg.Role]++
	}
	var breakdown []string
	for role, count := range roleCounts {
		breakdown = append(breakdown, fmt.Sprintf("%s: %d", role, count))
	}

	return fmt.Sprintf("%d messages (%d tokens) - %s",
		len(cm.messages), cm.CountTokens(), strings.Join(breakdown, ", "))
}
