package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpen_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Get(); got != Defaults() {
		t.Fatalf("Get = %+v, want defaults", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Open should not create the file, stat err = %v", err)
	}
}

func TestOpen_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Open(path, zerolog.Nop()); err == nil {
		t.Fatalf("expected parse error for corrupt settings file")
	}
}

func TestUpdate_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	doc := Document{
		InitialPrompt: "Jawab singkat.",
		ModelName:     "gpt-4o",
		Temperature:   0.2,
		MaxTokens:     800,
	}
	if err := s.Update(doc); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.Get(); got != doc {
		t.Fatalf("Get = %+v, want %+v", got, doc)
	}

	// A fresh store sees the persisted document.
	s2, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s2.Get(); got != doc {
		t.Fatalf("reloaded = %+v, want %+v", got, doc)
	}
}

func TestUpdate_RejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cases := []Document{
		{ModelName: "gpt-4o", Temperature: 2.5, MaxTokens: 100},
		{ModelName: "gpt-4o", Temperature: 0.5, MaxTokens: 0},
		{ModelName: "", Temperature: 0.5, MaxTokens: 100},
	}
	for _, doc := range cases {
		if err := s.Update(doc); err == nil {
			t.Fatalf("Update(%+v) should fail validation", doc)
		}
	}

	// The rejected update leaves both memory and disk untouched.
	if got := s.Get(); got != Defaults() {
		t.Fatalf("Get after rejected update = %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("rejected update should not write the file")
	}
}
