package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/services"
	"curator/internal/testsupport"
)

func TestOpenCreatesEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d items", store.Len())
	}
	if _, err := os.Stat(cfg.CatalogPath()); !os.IsNotExist(err) {
		t.Fatalf("catalog file should not exist before the first write")
	}
}

func TestUpsertMergesWithoutDroppingFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "100", FullText: "hello", MediaRefs: []string{"https://example.com/a.jpg"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// A later partial update must not erase previously stored fields.
	if _, err := store.Upsert(&Item{ID: "100", SourceURL: "https://x.com/i/status/100"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	item, ok := store.Get("100")
	if !ok {
		t.Fatalf("item missing")
	}
	if item.FullText != "hello" {
		t.Fatalf("full text dropped: %q", item.FullText)
	}
	if item.SourceURL != "https://x.com/i/status/100" {
		t.Fatalf("source url not merged: %q", item.SourceURL)
	}
	if len(item.MediaRefs) != 1 {
		t.Fatalf("media refs dropped: %v", item.MediaRefs)
	}
}

func TestUpsertIgnoresFlagsOnInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stored, err := store.Upsert(&Item{ID: "1", FullText: "t", CacheComplete: true, KBItemCreated: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stored.CacheComplete || stored.KBItemCreated {
		t.Fatalf("upsert must not set phase flags: %+v", stored)
	}
}

func TestCompletePhaseEnforcesChain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "1", FullText: "t"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.CompletePhase("1", PhaseCategorize, nil); err == nil {
		t.Fatalf("expected chain violation error")
	}
	if _, err := store.CompletePhase("1", PhaseCache, func(it *Item) {
		it.MediaRefs = []string{}
	}); err != nil {
		t.Fatalf("complete cache: %v", err)
	}
	if _, err := store.CompletePhase("1", PhaseMediaFetch, nil); err != nil {
		t.Fatalf("complete media fetch: %v", err)
	}
	if _, err := store.CompletePhase("1", PhaseCategorize, func(it *Item) {
		it.Category = &Category{Main: "software", Sub: "tooling", ItemName: "thing"}
	}); err != nil {
		t.Fatalf("complete categorize: %v", err)
	}
	item, _ := store.Get("1")
	if !item.CategoriesProcessed || item.KBItemCreated {
		t.Fatalf("unexpected flags: %+v", item)
	}
}

func TestPersistSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "42", FullText: "body", MediaRefs: []string{}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.CompletePhase("42", PhaseCache, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	reopened, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	item, ok := reopened.Get("42")
	if !ok {
		t.Fatalf("item missing after reopen")
	}
	if !item.CacheComplete || item.FullText != "body" {
		t.Fatalf("state lost across reopen: %+v", item)
	}
	if item.MediaRefs == nil || len(item.MediaRefs) != 0 {
		t.Fatalf("captured empty media list must round-trip as empty, got %v", item.MediaRefs)
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := store.Upsert(&Item{ID: "1", FullText: "t"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	entries, err := os.ReadDir(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != filepath.Base(cfg.CatalogPath()) && name != filepath.Base(cfg.UnprocessedIndexPath()) {
			t.Fatalf("unexpected file in data dir: %s", name)
		}
	}
}

// A process killed mid-persist leaves a truncated temp file behind but never
// touches the current catalog. The next open must load the previous version
// and ignore the leftover.
func TestCrashMidPersistKeepsPreviousCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "42", FullText: "survives", MediaRefs: []string{}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.CompletePhase("42", PhaseCache, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	before, err := os.ReadFile(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}

	// A write interrupted before the rename leaves a partial temp file next
	// to the catalog.
	stray := cfg.CatalogPath() + ".tmp-1234"
	if err := os.WriteFile(stray, []byte(`{"42":{"id":"42","full_te`), 0o600); err != nil {
		t.Fatalf("write stray temp file: %v", err)
	}

	reopened, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("reopen after simulated crash: %v", err)
	}
	item, ok := reopened.Get("42")
	if !ok {
		t.Fatalf("item missing after simulated crash")
	}
	if !item.CacheComplete || item.FullText != "survives" {
		t.Fatalf("previous catalog state lost: %+v", item)
	}
	after, err := os.ReadFile(cfg.CatalogPath())
	if err != nil {
		t.Fatalf("read catalog after reopen: %v", err)
	}
	if string(after) != string(before) {
		t.Fatalf("catalog file changed by a crashed write\nbefore: %s\nafter: %s", before, after)
	}
}

func TestPersistFailureRollsBackMemory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "1", FullText: "before"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Replacing the data directory with a file makes the atomic write fail.
	if err := os.RemoveAll(cfg.Paths.DataDir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.DataDir, []byte("x"), 0o644); err != nil {
		t.Fatalf("block dir: %v", err)
	}
	_, err = store.Upsert(&Item{ID: "1", FullText: "after"})
	if err == nil {
		t.Fatalf("expected persist failure")
	}
	if !services.IsStorageFault(err) {
		t.Fatalf("persist failure should carry the storage marker: %v", err)
	}
	item, _ := store.Get("1")
	if item.FullText != "before" {
		t.Fatalf("memory not rolled back, got %q", item.FullText)
	}
}

func TestUnprocessedAndProcessedSets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	done := t.TempDir()
	artifact := filepath.Join(done, "done.md")
	testsupport.WriteFile(t, artifact, "# done")
	if _, err := store.Upsert(&Item{ID: "a", FullText: "t", MediaRefs: []string{}, Category: &Category{Main: "m", Sub: "s", ItemName: "n"}, ArtifactPath: artifact}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for _, phase := range []Phase{PhaseCache, PhaseMediaFetch, PhaseCategorize, PhaseArtifact} {
		if _, err := store.CompletePhase("a", phase, nil); err != nil {
			t.Fatalf("complete %s: %v", phase, err)
		}
	}
	if _, err := store.Upsert(&Item{ID: "b", FullText: "t"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := store.Processed(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("processed = %v", got)
	}
	if got := store.Unprocessed(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unprocessed = %v", got)
	}
}

func TestUnprocessedIndexRebuiltWhenMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "7", FullText: "t"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := os.Remove(cfg.UnprocessedIndexPath()); err != nil {
		t.Fatalf("remove index: %v", err)
	}
	got := store.UnprocessedIndex()
	if len(got) != 1 || got[0] != "7" {
		t.Fatalf("index fallback = %v", got)
	}
}

func TestOpenMigratesLegacyRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	legacy := map[string]any{
		"99": map[string]any{
			"text":      "old shape",
			"tweet_url": "https://x.com/i/status/99",
			"media": []map[string]string{
				{"url": "https://example.com/a.jpg", "type": "photo"},
			},
			"image_descriptions": []string{"a dog"},
			"categories": map[string]string{
				"main_category": "animals",
				"sub_category":  "dogs",
				"item_name":     "dog-photo",
			},
			"kb_item_path":   "/nonexistent/dog.md",
			"cache_complete": true,
		},
	}
	data, err := json.Marshal(legacy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	testsupport.WriteFile(t, cfg.CatalogPath(), string(data))
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	item, ok := store.Get("99")
	if !ok {
		t.Fatalf("migrated item missing")
	}
	if item.FullText != "old shape" {
		t.Fatalf("text not migrated: %q", item.FullText)
	}
	if item.SourceURL != "https://x.com/i/status/99" {
		t.Fatalf("url not migrated: %q", item.SourceURL)
	}
	if len(item.MediaRefs) != 1 || item.MediaRefs[0] != "https://example.com/a.jpg" {
		t.Fatalf("media not migrated: %v", item.MediaRefs)
	}
	if len(item.MediaDescriptions) != 1 {
		t.Fatalf("descriptions not migrated: %v", item.MediaDescriptions)
	}
	if item.Category == nil || item.Category.Main != "animals" {
		t.Fatalf("category not migrated: %+v", item.Category)
	}
	if !strings.HasSuffix(item.ArtifactPath, "dog.md") {
		t.Fatalf("artifact path not migrated: %q", item.ArtifactPath)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg, testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Upsert(&Item{ID: "1", MediaRefs: []string{"a"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	first, _ := store.Get("1")
	first.MediaRefs[0] = "mutated"
	first.FullText = "mutated"
	second, _ := store.Get("1")
	if second.MediaRefs[0] != "a" || second.FullText != "" {
		t.Fatalf("store state leaked through Get: %+v", second)
	}
}
