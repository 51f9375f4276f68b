package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one completed verification, persisted after a session resolves.
// Persistence is a caller concern: the stream core never writes history.
type Record struct {
	ID          string          `json:"id"`
	InputType   string          `json:"input_type"`            // "text" or "image"
	Input       string          `json:"input"`                 // Claim text or file name
	Result      json.RawMessage `json:"result"`                // Opaque service result, stored verbatim
	Synthesized bool            `json:"synthesized,omitempty"` // Result was built from a degraded stream
	Account     string          `json:"account,omitempty"`     // Optional account label
	CreatedAt   time.Time       `json:"created_at"`
}

// Store keeps verification records as one JSON file per record under a
// directory (default ~/.verihub/history).
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the standard history location.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".verihub", "history"), nil
}

// Add persists a new record, assigning it an id and timestamp.
func (s *Store) Add(rec Record) (*Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	if err := os.WriteFile(s.path(rec.ID), data, 0600); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}

	return &rec, nil
}

// Get loads one record by id. Abbreviated ids are accepted when unambiguous.
func (s *Store) Get(id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return s.getByPrefix(id)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history dir: %w", err)
	}

	var records []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			// Skip corrupt records; one bad file should not hide the rest.
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes one record by id.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Clear removes all records.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Store) getByPrefix(prefix string) (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}

	var match *Record
	for i := range records {
		if strings.HasPrefix(records[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous record id %q", prefix)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("record %q not found", prefix)
	}
	return match, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
