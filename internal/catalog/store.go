package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"curator/internal/config"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/services"
)

// Store owns the on-disk catalog. Every mutation persists the full catalog
// with a write-temp-then-rename so a crash leaves either the old file or the
// new file, never a torn one. The in-memory view rolls back to the last
// persisted snapshot if a persist fails, keeping memory and disk aligned.
type Store struct {
	path      string
	indexPath string
	logger    *slog.Logger
	validator *Validator

	mu            sync.RWMutex
	items         map[string]*Item
	lastPersisted map[string]*Item
}

// Open loads the catalog from cfg's data directory, migrating legacy record
// shapes. Callers that act on phase flags should run Reconcile first so the
// flags are validated against the evidence on disk.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:      cfg.CatalogPath(),
		indexPath: cfg.UnprocessedIndexPath(),
		logger:    logger.With(logging.String(logging.FieldComponent, "catalog")),
		validator: NewValidator(logger),
		items:     map[string]*Item{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.lastPersisted = map[string]*Item{}
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrStorage, "catalog", "load", s.path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return services.Wrap(services.ErrStorage, "catalog", "load", "catalog is not valid JSON", err)
	}
	for id, rec := range raw {
		item, err := normalizeRecord(id, rec)
		if err != nil {
			return services.Wrap(services.ErrStorage, "catalog", "load", fmt.Sprintf("record %s", id), err)
		}
		s.items[item.ID] = item
	}
	s.lastPersisted = snapshot(s.items)
	return nil
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of catalog records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of the item, if present.
func (s *Store) Get(id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// All returns copies of every item ordered by ID.
func (s *Store) All() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Unprocessed returns the IDs of items with at least one phase outstanding,
// ordered by ID.
func (s *Store) Unprocessed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unprocessedLocked()
}

func (s *Store) unprocessedLocked() []string {
	ids := make([]string, 0, len(s.items))
	for id, item := range s.items {
		if !item.Processed() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Processed returns the IDs of fully processed items, ordered by ID.
func (s *Store) Processed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.items))
	for id, item := range s.items {
		if item.Processed() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Eligible returns the IDs of items due for the given phase, ordered by ID.
func (s *Store) Eligible(phase Phase) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.items))
	for id, item := range s.items {
		if item.Eligible(phase) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// EnsureItem creates a blank record for id if none exists and returns a copy
// of the stored item. Existing records are untouched.
func (s *Store) EnsureItem(id string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		return item.Clone(), nil
	}
	now := time.Now().UTC()
	item := &Item{ID: id, CreatedAt: now, UpdatedAt: now}
	s.items[id] = item
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Upsert merges the supplied data fields into the stored record, creating it
// if needed. Phase flags on src are ignored.
func (s *Store) Upsert(src *Item) (*Item, error) {
	if src == nil || src.ID == "" {
		return nil, fmt.Errorf("catalog: upsert requires an item with an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	item, ok := s.items[src.ID]
	if !ok {
		item = &Item{ID: src.ID, CreatedAt: now}
		s.items[src.ID] = item
	}
	item.merge(src)
	item.UpdatedAt = now
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// CompletePhase applies a phase's result to the item and sets the phase's
// flag. It is the only path that sets flags, and it refuses to set a flag
// whose prerequisites are not complete, preserving the dependency chain.
// apply may be nil when the phase produced no new data.
func (s *Store) CompletePhase(id string, phase Phase, apply func(*Item)) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown item %s", id)
	}
	for _, earlier := range Phases() {
		if earlier == phase {
			break
		}
		if !item.PhaseComplete(earlier) {
			return nil, fmt.Errorf("catalog: cannot complete %s for %s: %s incomplete", phase, id, earlier)
		}
	}
	if apply != nil {
		apply(item)
	}
	switch phase {
	case PhaseCache:
		item.CacheComplete = true
	case PhaseMediaFetch:
		item.MediaProcessed = true
	case PhaseMediaDescribe:
		// No flag of its own; completion is derived from description coverage.
	case PhaseCategorize:
		item.CategoriesProcessed = true
	case PhaseArtifact:
		item.KBItemCreated = true
	default:
		return nil, fmt.Errorf("catalog: unknown phase %q", phase)
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Demote clears the given phase's flag and every later flag so the item is
// re-run from that phase on the next pipeline pass.
func (s *Store) Demote(id string, phase Phase) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown item %s", id)
	}
	demoteFrom(item, phase)
	item.UpdatedAt = time.Now().UTC()
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Reconcile validates every record's flags against the evidence backing them,
// demoting unsupported flags, and persists when anything changed. It returns
// the IDs of repaired items.
func (s *Store) Reconcile() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var repaired []string
	for id, item := range s.items {
		if s.validator.Reconcile(item) {
			item.UpdatedAt = time.Now().UTC()
			repaired = append(repaired, id)
		}
	}
	sort.Strings(repaired)
	if len(repaired) == 0 {
		// Refresh the index even when nothing changed; it is a rebuildable
		// cache and may be stale or missing.
		s.writeIndexLocked()
		return nil, nil
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return repaired, nil
}

// UnprocessedIndex returns the cached unprocessed-ID list, recomputing from
// the catalog when the index file is missing or unreadable. Flags remain the
// sole source of truth; the file is only a fast path.
func (s *Store) UnprocessedIndex() []string {
	data, err := os.ReadFile(s.indexPath)
	if err == nil {
		var idx struct {
			Unprocessed []string `json:"unprocessed"`
		}
		if json.Unmarshal(data, &idx) == nil && idx.Unprocessed != nil {
			return idx.Unprocessed
		}
	}
	return s.Unprocessed()
}

// persistLocked writes the catalog atomically. On failure the in-memory map
// is restored from the last persisted snapshot so memory never drifts ahead
// of disk, and the error carries the storage fault marker.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err == nil {
		err = fileutil.WriteFileAtomic(s.path, data, 0o644)
	}
	if err != nil {
		s.items = snapshot(s.lastPersisted)
		return services.Wrap(services.ErrStorage, "catalog", "persist", s.path, err)
	}
	s.lastPersisted = snapshot(s.items)
	s.writeIndexLocked()
	return nil
}

// writeIndexLocked refreshes the unprocessed index. Failures are logged and
// swallowed; the index is derivable from the catalog at any time.
func (s *Store) writeIndexLocked() {
	idx := struct {
		GeneratedAt time.Time `json:"generated_at"`
		Unprocessed []string  `json:"unprocessed"`
	}{
		GeneratedAt: time.Now().UTC(),
		Unprocessed: s.unprocessedLocked(),
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err == nil {
		err = fileutil.WriteFileAtomic(s.indexPath, data, 0o644)
	}
	if err != nil {
		s.logger.Warn("failed to write unprocessed index",
			logging.String("path", s.indexPath), logging.Error(err))
	}
}

func snapshot(items map[string]*Item) map[string]*Item {
	out := make(map[string]*Item, len(items))
	for id, item := range items {
		out[id] = item.Clone()
	}
	return out
}
