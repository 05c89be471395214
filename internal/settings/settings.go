// Package settings holds the operator-editable chatbot settings document.
// The document is a small JSON file on disk; updates replace it atomically so
// a crash mid-write never leaves a truncated file behind.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rsh-ai/assistant-backend/internal/sysutil"
)

// Document is the chatbot tuning surface exposed to operators.
type Document struct {
	InitialPrompt string  `json:"initialPrompt"`
	ModelName     string  `json:"modelName"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"maxTokens"`
}

// Defaults returns the document used when no settings file exists yet.
func Defaults() Document {
	return Document{
		InitialPrompt: "Anda adalah asisten AI yang membantu menjawab pertanyaan pelanggan. Jawab dengan sopan dan informatif.",
		ModelName:     "gpt-4o-mini",
		Temperature:   0.7,
		MaxTokens:     500,
	}
}

// Validate rejects values the assistant API would refuse anyway.
func (d Document) Validate() error {
	if d.Temperature < 0 || d.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if d.MaxTokens < 1 {
		return errors.New("maxTokens must be positive")
	}
	if d.ModelName == "" {
		return errors.New("modelName is required")
	}
	return nil
}

// Store is the file-backed settings holder. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  Document
	log  zerolog.Logger
}

// Open loads the settings file at path, falling back to defaults when the
// file does not exist. An unreadable or corrupt file is an error; silently
// reverting an operator's tuning to defaults would be worse than failing.
func Open(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		path: path,
		doc:  Defaults(),
		log:  log.With().Str("component", "settings").Logger(),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Info().Str("path", path).Msg("settings file not found, using defaults")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Get returns the current document.
func (s *Store) Get() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Update validates and persists doc, then makes it current. The in-memory
// document only changes after the file write succeeds.
func (s *Store) Update(doc Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}
	if err := sysutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}

	s.doc = doc
	s.log.Info().Str("model", doc.ModelName).Float64("temperature", doc.Temperature).
		Msg("settings updated")
	return nil
}
