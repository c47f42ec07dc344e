// internal/notify/telegram_test.go
package notify

import (
	"strings"
	"testing"
)

func TestSplitMessage_Short(t *testing.T) {
	parts := splitMessage("hello")
	if len(parts) != 1 || parts[0] != "hello" {
		t.Errorf("expected single part, got %v", parts)
	}
}

func TestSplitMessage_Long(t *testing.T) {
	text := strings.Repeat("a", maxTelegramMessage+100)
	parts := splitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != maxTelegramMessage {
		t.Errorf("expected first part at the limit, got %d", len(parts[0]))
	}
	if len(parts[1]) != 100 {
		t.Errorf("expected 100-char remainder, got %d", len(parts[1]))
	}
}
