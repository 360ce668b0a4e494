package phase

import (
	"context"
	"errors"
	"testing"

	"curator/internal/catalog"
	"curator/internal/services"
	"curator/internal/testsupport"
)

type funcHandler struct {
	phase catalog.Phase
	fn    func(ctx context.Context, itemID string) error
}

func (h funcHandler) Phase() catalog.Phase { return h.phase }

func (h funcHandler) Execute(ctx context.Context, itemID string) error {
	return h.fn(ctx, itemID)
}

func newStore(t *testing.T, ids ...string) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(testsupport.NewConfig(t), testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	for _, id := range ids {
		if _, err := store.Upsert(&catalog.Item{ID: id, FullText: "t"}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	return store
}

func TestRunPhaseIsolatesItemFailures(t *testing.T) {
	store := newStore(t, "1", "2", "3")
	runner := NewRunner(store, testsupport.NewLogger(t), 2)
	handler := funcHandler{phase: catalog.PhaseCache, fn: func(ctx context.Context, itemID string) error {
		if itemID == "2" {
			return services.Wrap(services.ErrFetch, "cache", "fetch", "boom", nil)
		}
		_, err := store.CompletePhase(itemID, catalog.PhaseCache, func(it *catalog.Item) {
			it.MediaRefs = []string{}
		})
		return err
	}}
	result, err := runner.RunPhase(context.Background(), handler)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Attempted != 3 || result.Succeeded != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].ItemID != "2" {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if item, _ := store.Get("1"); !item.CacheComplete {
		t.Fatalf("healthy item should complete despite a sibling failure")
	}
	if item, _ := store.Get("2"); item.CacheComplete {
		t.Fatalf("failed item must stay incomplete")
	}
}

func TestRunPhaseAbortsOnStorageFault(t *testing.T) {
	store := newStore(t, "1", "2")
	runner := NewRunner(store, testsupport.NewLogger(t), 1)
	fault := services.Wrap(services.ErrStorage, "catalog", "persist", "disk gone", errors.New("io"))
	handler := funcHandler{phase: catalog.PhaseCache, fn: func(ctx context.Context, itemID string) error {
		return fault
	}}
	_, err := runner.RunPhase(context.Background(), handler)
	if !services.IsStorageFault(err) {
		t.Fatalf("storage fault must abort the batch, got %v", err)
	}
}

func TestRunPhaseSkipsIneligibleItems(t *testing.T) {
	store := newStore(t, "1")
	runner := NewRunner(store, testsupport.NewLogger(t), 1)
	executed := 0
	handler := funcHandler{phase: catalog.PhaseMediaFetch, fn: func(ctx context.Context, itemID string) error {
		executed++
		return nil
	}}
	result, err := runner.RunPhase(context.Background(), handler)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if executed != 0 || result.Attempted != 0 {
		t.Fatalf("uncached item must not enter media fetch")
	}
}

func TestRunPhaseAnnotatesContext(t *testing.T) {
	store := newStore(t, "1")
	runner := NewRunner(store, testsupport.NewLogger(t), 1)
	handler := funcHandler{phase: catalog.PhaseCache, fn: func(ctx context.Context, itemID string) error {
		if id, ok := services.ItemIDFromContext(ctx); !ok || id != "1" {
			t.Errorf("item id missing from context")
		}
		if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "cache" {
			t.Errorf("phase missing from context")
		}
		return nil
	}}
	if _, err := runner.RunPhase(context.Background(), handler); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunPhaseHonorsCancellation(t *testing.T) {
	store := newStore(t, "1", "2")
	runner := NewRunner(store, testsupport.NewLogger(t), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := funcHandler{phase: catalog.PhaseCache, fn: func(ctx context.Context, itemID string) error {
		t.Errorf("handler must not run after cancellation")
		return nil
	}}
	if _, err := runner.RunPhase(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
