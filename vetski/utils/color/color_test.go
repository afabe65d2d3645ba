package color

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestUploadSummaryColoursByOutcome(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	ok := UploadSummary("2 chunk(s) submitted, 0 failed", false)
	failed := UploadSummary("2 chunk(s) submitted, 1 failed", true)
	if !strings.Contains(ok, "0 failed") || !strings.Contains(failed, "1 failed") {
		t.Fatalf("summary text lost: %q / %q", ok, failed)
	}
	if !strings.Contains(ok, "\x1b[32") || !strings.Contains(failed, "\x1b[35") {
		t.Errorf("expected green for success and magenta for failure, got %q / %q", ok, failed)
	}
}

func TestAssistantReplyKeepsText(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := AssistantReply("Keep her hydrated."); got != "Keep her hydrated." {
		t.Errorf("plain output changed: %q", got)
	}
}
