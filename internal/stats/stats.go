// Package stats summarizes catalog state and records run outcomes.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"curator/internal/catalog"
	"curator/internal/fileutil"
)

// Snapshot describes catalog state at one point in time.
type Snapshot struct {
	TotalItems       int            `json:"total_items"`
	ProcessedItems   int            `json:"processed_items"`
	UnprocessedItems int            `json:"unprocessed_items"`
	PendingByPhase   map[string]int `json:"pending_by_phase"`
	MediaFiles       int            `json:"media_files"`
	Categories       map[string]int `json:"categories"`
}

// BuildSnapshot computes a snapshot from catalog items.
func BuildSnapshot(items []*catalog.Item) Snapshot {
	snap := Snapshot{
		PendingByPhase: map[string]int{},
		Categories:     map[string]int{},
	}
	for _, phase := range catalog.Phases() {
		snap.PendingByPhase[string(phase)] = 0
	}
	for _, item := range items {
		snap.TotalItems++
		if item.Processed() {
			snap.ProcessedItems++
		} else {
			snap.UnprocessedItems++
		}
		snap.MediaFiles += len(item.DownloadedMedia)
		for _, phase := range catalog.Phases() {
			if item.Eligible(phase) {
				snap.PendingByPhase[string(phase)]++
				break
			}
		}
		if item.Category != nil && item.Category.Main != "" {
			snap.Categories[item.Category.Main]++
		}
	}
	return snap
}

// PhaseStat summarizes one phase batch within a run.
type PhaseStat struct {
	Phase     string `json:"phase"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// ItemFailure records one per-item fault from a run.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Phase  string `json:"phase"`
	Error  string `json:"error"`
}

// Report is the full outcome of one pipeline run.
type Report struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	DurationSeconds float64       `json:"duration_seconds"`
	Imported        int           `json:"imported"`
	Repaired        int           `json:"repaired"`
	Phases          []PhaseStat   `json:"phases"`
	Failures        []ItemFailure `json:"failures,omitempty"`
	Degraded        bool          `json:"degraded"`
	SyncError       string        `json:"sync_error,omitempty"`
	Catalog         Snapshot      `json:"catalog"`
}

// FailedItems returns how many distinct items failed during the run.
func (r *Report) FailedItems() int {
	ids := map[string]struct{}{}
	for _, f := range r.Failures {
		ids[f.ItemID] = struct{}{}
	}
	return len(ids)
}

// SucceededItems returns how many phase executions succeeded in total.
func (r *Report) SucceededItems() int {
	total := 0
	for _, p := range r.Phases {
		total += p.Succeeded
	}
	return total
}

// SaveReport writes the report atomically to path.
func SaveReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("stats: encode report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("stats: write report: %w", err)
	}
	return nil
}

// LoadReport reads a previously saved report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stats: read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("stats: parse report: %w", err)
	}
	return &report, nil
}
