package contextmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"concierge/pkg/proto"
)

func TestAddMessageAndCount(t *testing.T) {
	cm := NewContextManager(0)
	assert.Equal(t, 0, cm.MessageCount())

	cm.AddMessage("user", "my wifi is slow")
	cm.AddMessage("assistant", "running diagnostics now")

	assert.Equal(t, 2, cm.MessageCount())
	if cm.CountTokens() <= 0 {
		t.Error("expected positive token count")
	}
}

func TestLoadReplacesContext(t *testing.T) {
	cm := NewContextManager(0)
	cm.AddMessage("user", "old")

	cm.Load([]proto.ContextMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
	})

	messages := cm.Messages()
	assert.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
}

func TestNoCompactionUnderBudget(t *testing.T) {
	cm := NewContextManager(100000)
	cm.AddMessage("user", "short message")
	cm.AddMessage("assistant", "short reply")

	assert.False(t, cm.ShouldCompact())
	cm.CompactIfNeeded()
	assert.Equal(t, 2, cm.MessageCount())
}

func TestCompactionKeepsFirstMessage(t *testing.T) {
	cm := NewContextManager(50)

	filler := strings.Repeat("network troubleshooting details ", 20)
	cm.AddMessage("user", "my wifi is slow, please help")
	for i := 0; i < 10; i++ {
		cm.AddMessage("assistant", filler)
		cm.AddMessage("user", filler)
	}

	assert.True(t, cm.ShouldCompact())
	cm.CompactIfNeeded()

	messages := cm.Messages()
	if len(messages) == 0 {
		t.Fatal("compaction removed everything")
	}
	assert.Equal(t, "my wifi is slow, please help", messages[0].Content)
	assert.Less(t, len(messages), 21)
}

func TestZeroBudgetDisablesCompaction(t *testing.T) {
	cm := NewContextManager(0)
	for i := 0; i < 50; i++ {
		cm.AddMessage("user", strings.Repeat("word ", 100))
	}
	assert.False(t, cm.ShouldCompact())
	cm.CompactIfNeeded()
	assert.Equal(t, 50, cm.MessageCount())
}

func TestMessagesReturnsCopy(t *testing.T) {
	cm := NewContextManager(0)
	cm.AddMessage("user", "original")

	messages := cm.Messages()
	messages[0].Content = "mutated"

	assert.Equal(t, "original", cm.Messages()[0].Content)
}

func TestSummary(t *testing.T) {
	cm := NewContextManager(0)
	assert.Equal(t, "empty context", cm.Summary())

	cm.AddMessage("user", "hello")
	summary := cm.Summary()
	assert.Contains(t, summary, "1 messages")
	assert.Contains(t, summary, "user: 1")
}
