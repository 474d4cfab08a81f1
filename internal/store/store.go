package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edmondoalex/buspro-core/internal/device"
)

// Document is the persisted JSON state file.
type Document struct {
	Devices device.Devices `json:"devices"`

	// States holds the last published payload per device, keyed
	// "<kind>:<address>" (cover groups use "<kind>:<id>").
	States map[string]json.RawMessage `json:"states"`

	UI UIConfig `json:"ui"`
}

// UIConfig is persisted for the web surface but not interpreted by the core.
type UIConfig struct {
	GroupOrder  []string            `json:"group_order"`
	CoverGroups []device.CoverGroup `json:"cover_groups"`
	HubLinks    []json.RawMessage   `json:"hub_links"`
}

// Logger is the narrow logging interface used by the store.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store persists the device/state/ui document as JSON on disk.
//
// Reads quarantine corrupt files instead of failing: the file is renamed
// to "<name>.corrupt.<unix-ts>" and the system starts empty. Writes are
// atomic (temp file + fsync + rename).
//
// Thread Safety: all methods are safe for concurrent use.
type Store struct {
	path   string
	logger Logger

	mu  sync.Mutex
	doc Document
}

// Open reads the document at path, quarantining a corrupt file.
//
// Parameters:
//   - path: JSON file location (parent directories are created on write)
//   - logger: Optional logger (nil discards)
//
// Returns:
//   - *Store: Store with the document loaded (empty if absent/corrupt)
//   - error: Only on unexpected I/O failure (not on missing/corrupt files)
func Open(path string, logger Logger) (*Store, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Store{path: path, logger: logger}

	doc, err := s.readRaw()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// readRaw loads the document from disk.
// A JSON decode failure renames the file to "<name>.corrupt.<ts>" and
// returns an empty document, so a damaged store never blocks startup.
func (s *Store) readRaw() (Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return emptyDocument(), nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: reading %s: %w", ErrPersistence, s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		quarantine := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().Unix())
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			s.logger.Error("quarantine rename failed", "path", s.path, "error", renameErr)
		} else {
			s.logger.Warn("corrupt state file quarantined",
				"path", s.path,
				"quarantine", quarantine,
				"error", err,
			)
		}
		return emptyDocument(), nil
	}

	if doc.States == nil {
		doc.States = make(map[string]json.RawMessage)
	}
	return doc, nil
}

func emptyDocument() Document {
	return Document{
		States: make(map[string]json.RawMessage),
	}
}

// Flush writes the document to disk atomically (temp + fsync + rename).
//
// Returns:
//   - error: ErrPersistence wrapping the underlying failure
func (s *Store) Flush() error {
	s.mu.Lock()
	data, err := json.Marshal(s.doc)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: temp file: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing: %w", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: fsync: %w", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing: %w", ErrPersistence, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: renaming: %w", ErrPersistence, err)
	}
	return nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Devices returns the persisted device records.
func (s *Store) Devices() device.Devices {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Devices
}

// SetDevices replaces the persisted device records.
func (s *Store) SetDevices(d device.Devices) {
	s.mu.Lock()
	s.doc.Devices = d
	s.mu.Unlock()
}

// UI returns the persisted UI configuration.
func (s *Store) UI() UIConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.UI
}

// SetUI replaces the persisted UI configuration.
func (s *Store) SetUI(ui UIConfig) {
	s.mu.Lock()
	s.doc.UI = ui
	s.mu.Unlock()
}

// SetCoverGroups replaces the persisted cover groups.
func (s *Store) SetCoverGroups(groups []device.CoverGroup) {
	s.mu.Lock()
	s.doc.UI.CoverGroups = groups
	s.mu.Unlock()
}

// State returns the persisted payload for a state key.
func (s *Store) State(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.doc.States[key]
	return v, ok
}

// SetState stores the last published payload for a state key.
func (s *Store) SetState(key string, payload json.RawMessage) {
	s.mu.Lock()
	s.doc.States[key] = payload
	s.mu.Unlock()
}

// DeleteState removes a state entry (device removal).
func (s *Store) DeleteState(key string) {
	s.mu.Lock()
	delete(s.doc.States, key)
	s.mu.Unlock()
}

// MigrateState moves a state entry to a new key (address edit).
func (s *Store) MigrateState(oldKey, newKey string) {
	s.mu.Lock()
	if v, ok := s.doc.States[oldKey]; ok {
		delete(s.doc.States, oldKey)
		s.doc.States[newKey] = v
	}
	s.mu.Unlock()
}

// States returns a copy of all persisted state entries.
func (s *Store) States() map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(s.doc.States))
	for k, v := range s.doc.States {
		out[k] = v
	}
	return out
}

// Export returns the full document for backup.
func (s *Store) Export() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc
	doc.States = make(map[string]json.RawMessage, len(s.doc.States))
	for k, v := range s.doc.States {
		doc.States[k] = v
	}
	return doc
}

// Import replaces the full document (restore from backup).
func (s *Store) Import(doc Document) {
	if doc.States == nil {
		doc.States = make(map[string]json.RawMessage)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
