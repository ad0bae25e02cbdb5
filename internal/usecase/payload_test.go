package usecase

import (
	"codedoc/internal/domain"
	"errors"
	"testing"
)

func TestFileInputs(t *testing.T) {
	files := []any{
		"a.go",
		map[string]any{"full_path": "/src/b.go", "path": "b.go"},
		map[string]any{"path": "c.go"},
		map[string]any{"size": 3},
		42,
	}

	got := fileInputs(files, 0)
	want := []string{"a.go", "/src/b.go", "c.go"}
	if len(got) != len(want) {
		t.Fatalf("expected %d inputs, got %v", len(want), got)
	}
	for i, in := range got {
		if in["file_path"] != want[i] {
			t.Fatalf("input %d: expected %s, got %v", i, want[i], in["file_path"])
		}
	}

	if limited := fileInputs([]string{"a", "b", "c"}, 2); len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
	if none := fileInputs("not a list", 0); len(none) != 0 {
		t.Fatalf("expected no inputs, got %v", none)
	}
}

func TestRequireString(t *testing.T) {
	if _, err := requireString(domain.Payload{"q": "  "}, "q"); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected invalid payload, got %v", err)
	}
	got, err := requireString(domain.Payload{"q": " hi "}, "q")
	if err != nil || got != "hi" {
		t.Fatalf("expected hi, got %q %v", got, err)
	}
}

func TestBoolFieldOr(t *testing.T) {
	p := map[string]any{"a": false, "b": "true", "c": "nope"}
	if boolFieldOr(p, "a", true) {
		t.Fatal("expected false")
	}
	if !boolFieldOr(p, "b", false) {
		t.Fatal("expected true from string")
	}
	if !boolFieldOr(p, "c", true) || !boolFieldOr(p, "missing", true) {
		t.Fatal("expected fallback")
	}
}

func TestVoiceKeywordHelpers(t *testing.T) {
	cases := []struct {
		text   string
		ingest bool
	}{
		{"Index the repo please", true},
		{"ingest github.com/a/b", true},
		{"add, https://x.y/z", true},
		{"please start indexing github.com/acme/app", true},
		{"ingesting https://github.com/acme/app now", true},
		{"Indexed it yesterday?", true},
		{"I added a repo", true},
		{"adding github.com/a/b", true},
		{"what is the address of the server", false},
		{"where are the addons loaded", false},
		{"what does main do", false},
	}
	for _, c := range cases {
		if got := hasIngestKeyword(c.text); got != c.ingest {
			t.Fatalf("%q: expected %v, got %v", c.text, c.ingest, got)
		}
	}

	if got := extractRepoURL("please add (https://github.com/a/b)."); got != "https://github.com/a/b" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := extractRepoURL("index GitHub.com/a/b"); got != "https://GitHub.com/a/b" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := extractRepoURL("index it"); got != "" {
		t.Fatalf("expected no url, got %q", got)
	}
}
