// Package jsonfile persists the outreach registry as flat, human-readable
// JSON documents, one per collection, loaded wholesale into memory before
// a cycle and rewritten wholesale after it. The only durability guarantee
// is that each file reflects the last completed write (temp file + rename).
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/index"
)

const (
	contactsFile      = "contacts.json"
	organizationsFile = "organizations.json"
	recordsFile       = "outreach_log.json"
	optOutsFile       = "opt_outs.json"
)

// Store reads and writes the flat JSON documents under a data directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// optOutsDoc wraps the opt-out list with bookkeeping metadata so the file
// stays auditable by hand.
type optOutsDoc struct {
	OptOuts     []domain.OptOutEntry `json:"opt_outs"`
	LastUpdated time.Time            `json:"last_updated"`
	Total       int                  `json:"total_opt_outs"`
}

// Load reads every collection. Missing files mean empty collections, so a
// fresh data directory is valid.
func (s *Store) Load() (index.Collections, error) {
	var cols index.Collections

	if err := s.readJSON(contactsFile, &cols.Contacts); err != nil {
		return cols, fmt.Errorf("failed to load contacts: %w", err)
	}
	if err := s.readJSON(organizationsFile, &cols.Organizations); err != nil {
		return cols, fmt.Errorf("failed to load organizations: %w", err)
	}
	if err := s.readJSON(recordsFile, &cols.Records); err != nil {
		return cols, fmt.Errorf("failed to load outreach log: %w", err)
	}

	var doc optOutsDoc
	if err := s.readJSON(optOutsFile, &doc); err != nil {
		return cols, fmt.Errorf("failed to load opt-outs: %w", err)
	}
	cols.OptOuts = doc.OptOuts

	return cols, nil
}

// Save rewrites every collection document.
func (s *Store) Save(cols index.Collections) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := s.writeJSON(contactsFile, cols.Contacts); err != nil {
		return fmt.Errorf("failed to save contacts: %w", err)
	}
	if err := s.writeJSON(organizationsFile, cols.Organizations); err != nil {
		return fmt.Errorf("failed to save organizations: %w", err)
	}
	if err := s.writeJSON(recordsFile, cols.Records); err != nil {
		return fmt.Errorf("failed to save outreach log: %w", err)
	}
	return s.SaveOptOuts(cols.OptOuts)
}

// SaveOptOuts rewrites only the opt-out document. The opt-out intake
// persists immediately on each request instead of waiting for the next
// cycle.
func (s *Store) SaveOptOuts(entries []domain.OptOutEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	doc := optOutsDoc{
		OptOuts:     entries,
		LastUpdated: time.Now().UTC(),
		Total:       len(entries),
	}
	if err := s.writeJSON(optOutsFile, doc); err != nil {
		return fmt.Errorf("failed to save opt-outs: %w", err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// writeJSON writes to a temp file in the same directory and renames it
// over the target, so readers never observe a half-written document.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
