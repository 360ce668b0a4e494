package cachefill

import (
	"context"
	"errors"
	"testing"

	"curator/internal/catalog"
	"curator/internal/services"
	"curator/internal/testsupport"
	"curator/internal/twitterfetch"
)

type fakeFetcher struct {
	calls  int
	tweets map[string]*twitterfetch.Tweet
	err    error
}

func (f *fakeFetcher) FetchTweet(ctx context.Context, id string) (*twitterfetch.Tweet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tweet, ok := f.tweets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return tweet, nil
}

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(testsupport.NewConfig(t), testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestExecuteCachesTextAndMediaTogether(t *testing.T) {
	store := newStore(t)
	if _, err := store.EnsureItem("100"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	fetcher := &fakeFetcher{tweets: map[string]*twitterfetch.Tweet{
		"100": {
			ID:        "100",
			FullText:  "a tweet with one photo",
			URL:       "https://x.com/a/status/100",
			MediaURLs: []string{"https://pbs.example.com/a.jpg"},
		},
	}}
	h := NewHandler(store, fetcher, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "100"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	item, _ := store.Get("100")
	if !item.CacheComplete || item.FullText == "" || len(item.MediaRefs) != 1 {
		t.Fatalf("cache incomplete: %+v", item)
	}
}

func TestExecuteStoresEmptyMediaListForTextOnly(t *testing.T) {
	store := newStore(t)
	if _, err := store.EnsureItem("1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	fetcher := &fakeFetcher{tweets: map[string]*twitterfetch.Tweet{
		"1": {ID: "1", FullText: "just text", URL: "https://x.com/a/status/1"},
	}}
	h := NewHandler(store, fetcher, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	item, _ := store.Get("1")
	if item.MediaRefs == nil || len(item.MediaRefs) != 0 {
		t.Fatalf("text-only item must record a captured empty list: %v", item.MediaRefs)
	}
	if !item.CacheComplete {
		t.Fatalf("cache flag missing")
	}
}

func TestExecuteSkipsAlreadyCachedItems(t *testing.T) {
	store := newStore(t)
	if _, err := store.Upsert(&catalog.Item{ID: "1", FullText: "cached", MediaRefs: []string{}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.CompletePhase("1", catalog.PhaseCache, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	fetcher := &fakeFetcher{}
	h := NewHandler(store, fetcher, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("cached item must not be refetched")
	}
}

func TestExecuteWrapsFetchFailures(t *testing.T) {
	store := newStore(t)
	if _, err := store.EnsureItem("1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	h := NewHandler(store, &fakeFetcher{err: errors.New("network down")}, testsupport.NewLogger(t))
	err := h.Execute(context.Background(), "1")
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch fault, got %v", err)
	}
	item, _ := store.Get("1")
	if item.CacheComplete {
		t.Fatalf("failed fetch must not complete the phase")
	}
}
