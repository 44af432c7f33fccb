// store.go owns the persisted annotation map: load with migration, save,
// clear, and the edit entry point that ties the reducer to persistence
package annotation

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/obistack/occurrence-go/internal/logging"
)

// StorageKey is the single key under which the annotation blob lives in the
// state store. The store uses no other keys.
const StorageKey = "annotations"

// StateStore is the persistent storage boundary: a string-keyed byte-valued
// store. Implemented by internal/datastore.
type StateStore interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Store holds the in-memory annotation map and writes it through to the
// state store after every mutation. In-memory state stays authoritative when
// storage fails; all storage errors are logged and degrade to "annotations
// not saved" rather than blocking the workflow.
type Store struct {
	mu      sync.Mutex
	entries Map
	state   StateStore
	log     *slog.Logger
}

// NewStore creates a store backed by the given state store and loads the
// persisted annotations, migrating legacy entries.
func NewStore(state StateStore) *Store {
	s := &Store{
		state: state,
		log:   logging.ForService("annotation"),
	}
	s.entries = s.load()
	return s
}

// load reads and migrates the persisted blob. Any failure is logged and
// yields an empty map; a missing or broken blob never blocks the session.
func (s *Store) load() Map {
	value, found, err := s.state.Get(StorageKey)
	if err != nil {
		s.log.Error("Failed to read persisted annotations, starting empty", "error", err)
		return Map{}
	}
	if !found {
		return Map{}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(value, &raw); err != nil {
		s.log.Error("Persisted annotations are not a valid JSON object, starting empty", "error", err)
		return Map{}
	}

	migrated, entryErrs := Migrate(raw)
	for _, entryErr := range entryErrs {
		s.log.Warn("Skipping undecodable annotation entry", "error", entryErr)
	}
	return migrated
}

// Reload discards the in-memory map and reloads it from persistent storage.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.load()
}

// All returns a copy of the current annotation map.
func (s *Store) All() Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Clone()
}

// Get returns the annotation for a derived key, if present.
func (s *Store) Get(key string) (Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[key]
	return a, ok
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Edit applies a single field edit through the reducer and persists the
// result. It returns the resulting annotation and whether the entry still
// exists after pruning. A reducer rejection (unknown field) is returned to
// the caller; a persistence failure is only logged.
func (s *Store) Edit(key string, field Field, value string) (Annotation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := ApplyEdit(s.entries, key, field, value)
	if err != nil {
		return Annotation{}, false, err
	}
	s.entries = next

	s.save()

	a, ok := s.entries[key]
	return a, ok, nil
}

// save serializes the full map and overwrites the persisted blob. Failure is
// non-fatal; the in-memory map remains the source of truth for the session.
// Caller must hold s.mu.
func (s *Store) save() {
	value, err := json.Marshal(s.entries)
	if err != nil {
		s.log.Error("Failed to serialize annotations", "error", err)
		return
	}
	if err := s.state.Put(StorageKey, value); err != nil {
		s.log.Error("Failed to persist annotations, in-memory state kept", "error", err)
	}
}

// Save persists the current in-memory map. Exposed for callers that mutate
// state out of band; Edit already saves.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.save()
}

// Clear empties both the in-memory map and persistent storage. A storage
// failure is logged but does not prevent the in-memory clear.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = Map{}
	if err := s.state.Delete(StorageKey); err != nil {
		s.log.Error("Failed to clear persisted annotations", "error", err)
	}
}
