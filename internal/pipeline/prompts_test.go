package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/Keyring-Network/keyring-scout/internal/upstream"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "EU climate policy", want: "EU climate policy"},
		{in: `She said: "climate <policy>" {draft}`, want: "She said: climate policy draft"},
		{in: "  'quoted' `tick` [list]  ", want: "quoted tick list"},
		{in: `"<>{}[]'` + "`", want: ""},
		{in: "café & co", want: "café & co"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareQuery(t *testing.T) {
	query, err := PrepareQuery(" <EU climate policy> ")
	if err != nil || query != "EU climate policy" {
		t.Fatalf("unexpected result %q, %v", query, err)
	}
	if _, err := PrepareQuery(`""`); !errors.Is(err, upstream.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestDistillMessagesCarrySourceInstruction(t *testing.T) {
	messages := distillMessages("climate policy in the EU", sourceLine)
	if len(messages) != 2 || messages[0].Role != "system" || messages[1].Role != "user" {
		t.Fatalf("unexpected messages %+v", messages)
	}
	if !strings.Contains(messages[0].Content, "source title and URL") {
		t.Fatal("expected instruction to retain source attribution")
	}
	if !strings.Contains(messages[1].Content, sourceLine) {
		t.Fatal("expected raw results in user message")
	}
}
