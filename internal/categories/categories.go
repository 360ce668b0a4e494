// Package categories maintains the known category hierarchy backing the
// knowledge base layout.
package categories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"curator/internal/fileutil"
)

// Manager tracks main categories and their subcategories in a JSON file so
// the hierarchy survives between runs and classifier prompts can list the
// existing names.
type Manager struct {
	path string

	mu   sync.Mutex
	cats map[string][]string
}

// Load reads the hierarchy at path, starting empty when the file does not
// exist yet.
func Load(path string) (*Manager, error) {
	m := &Manager{path: path, cats: map[string][]string{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("categories: load %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &m.cats); err != nil {
		return nil, fmt.Errorf("categories: parse %s: %w", path, err)
	}
	return m, nil
}

// Ensure records the main/sub pair, persisting only when the hierarchy grew.
func (m *Manager) Ensure(main, sub string) error {
	if main == "" || sub == "" {
		return fmt.Errorf("categories: main and sub are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	subs, ok := m.cats[main]
	if ok {
		for _, existing := range subs {
			if existing == sub {
				return nil
			}
		}
	}
	m.cats[main] = append(subs, sub)
	sort.Strings(m.cats[main])
	return m.persistLocked()
}

// Mains returns the main category names, sorted.
func (m *Manager) Mains() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	mains := make([]string, 0, len(m.cats))
	for main := range m.cats {
		mains = append(mains, main)
	}
	sort.Strings(mains)
	return mains
}

// Subs returns the subcategories recorded under main, sorted.
func (m *Manager) Subs(main string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.cats[main]...)
}

// All returns the full hierarchy as a copy.
func (m *Manager) All() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.cats))
	for main, subs := range m.cats {
		out[main] = append([]string{}, subs...)
	}
	return out
}

func (m *Manager) persistLocked() error {
	data, err := json.MarshalIndent(m.cats, "", "  ")
	if err != nil {
		return fmt.Errorf("categories: encode: %w", err)
	}
	if err := fileutil.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("categories: persist %s: %w", m.path, err)
	}
	return nil
}
