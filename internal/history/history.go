// Package history persists the assistant conversation log between runs,
// mirroring what the dashboard widget keeps in browser local storage: an
// ordered, append-only JSON array of {type, content, timestamp} entries.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"officehub-backend/internal/models"
)

const (
	EntryUser = "user"
	EntryBot  = "bot"
)

type Store struct {
	mu      sync.Mutex
	path    string
	entries []models.HistoryEntry
}

// NewStore loads the history file at path, starting empty when the file is
// missing or unreadable.
func NewStore(path string) *Store {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		s.entries = nil
	}
	return s
}

// Append records one entry and persists the full log.
func (s *Store) Append(entryType, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, models.HistoryEntry{
		Type:      entryType,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return s.persist()
}

// Entries returns a copy of the log in append order.
func (s *Store) Entries() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear wipes the log. Only an explicit user action should call this.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.persist()
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if s.entries == nil {
		data = []byte("[]")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
