package docs

import (
	"slices"
	"testing"
)

func TestTopics(t *testing.T) {
	got := Topics()
	for _, want := range []string{"auth", "chat", "config", "overview", "views"} {
		if !slices.Contains(got, want) {
			t.Fatalf("expected topic %q in %v", want, got)
		}
	}
	if !slices.IsSorted(got) {
		t.Fatalf("topics not sorted: %v", got)
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get(" AUTH "); !ok {
		t.Fatalf("expected auth topic")
	}
	if _, ok := Get("../docs"); ok {
		t.Fatalf("path-like topics must not resolve")
	}
	if got := Title("chat"); got != "Chatting with the assistant" {
		t.Fatalf("unexpected title %q", got)
	}
}
