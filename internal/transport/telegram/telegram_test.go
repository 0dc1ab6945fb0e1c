package telegram

import (
	"strings"
	"testing"

	logx "pandorum/pkg/logx"
)

func TestSplitTextShortPassthrough(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 4000)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("splitText = %q", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("0123456789\n", 20) // 220 runes
	got := splitText(text, 100)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if len([]rune(chunk)) > 100 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len([]rune(chunk)))
		}
		// Newline-preferring split keeps lines whole.
		for _, line := range strings.Split(chunk, "\n") {
			if line != "0123456789" {
				t.Fatalf("chunk %d broke a line: %q", i, line)
			}
		}
	}
}

func TestSplitTextNoNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 250)
	got := splitText(text, 100)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if total := len(got[0]) + len(got[1]) + len(got[2]); total != 250 {
		t.Fatalf("content lost: %d runes", total)
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
