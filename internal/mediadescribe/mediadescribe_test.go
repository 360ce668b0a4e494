package mediadescribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"curator/internal/catalog"
	"curator/internal/services"
	"curator/internal/testsupport"
)

type fakeInterpreter struct {
	calls    []string
	failPath string
}

func (f *fakeInterpreter) Describe(ctx context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if path == f.failPath {
		return "", errors.New("model timeout")
	}
	return "description of " + filepath.Base(path), nil
}

func itemWithMedia(t *testing.T, files ...string) (*catalog.Store, []string) {
	t.Helper()
	store, err := catalog.Open(testsupport.NewConfig(t), testsupport.NewLogger(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	dir := t.TempDir()
	paths := make([]string, 0, len(files))
	refs := make([]string, 0, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		testsupport.WriteFile(t, path, "bytes")
		paths = append(paths, path)
		refs = append(refs, "https://m.example.com/"+name)
	}
	if _, err := store.Upsert(&catalog.Item{ID: "100", FullText: "t", MediaRefs: refs}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.CompletePhase("100", catalog.PhaseCache, nil); err != nil {
		t.Fatalf("complete cache: %v", err)
	}
	if _, err := store.CompletePhase("100", catalog.PhaseMediaFetch, func(it *catalog.Item) {
		it.DownloadedMedia = paths
	}); err != nil {
		t.Fatalf("complete media fetch: %v", err)
	}
	return store, paths
}

func TestExecuteDescribesEveryImage(t *testing.T) {
	store, _ := itemWithMedia(t, "media_0.jpg", "media_1.png")
	interp := &fakeInterpreter{}
	h := NewHandler(store, interp, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "100"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	item, _ := store.Get("100")
	if len(item.MediaDescriptions) != 2 {
		t.Fatalf("descriptions = %v", item.MediaDescriptions)
	}
	if !item.PhaseComplete(catalog.PhaseMediaDescribe) {
		t.Fatalf("describe phase should be complete")
	}
	if len(interp.calls) != 2 {
		t.Fatalf("model calls = %v", interp.calls)
	}
}

func TestExecuteUsesPlaceholderForVideos(t *testing.T) {
	store, _ := itemWithMedia(t, "media_0.mp4")
	interp := &fakeInterpreter{}
	h := NewHandler(store, interp, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "100"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(interp.calls) != 0 {
		t.Fatalf("videos must not hit the vision model")
	}
	item, _ := store.Get("100")
	if len(item.MediaDescriptions) != 1 || item.MediaDescriptions[0] == "" {
		t.Fatalf("placeholder missing: %v", item.MediaDescriptions)
	}
}

func TestExecuteResumesAfterFailure(t *testing.T) {
	store, paths := itemWithMedia(t, "media_0.jpg", "media_1.jpg", "media_2.jpg")
	interp := &fakeInterpreter{failPath: paths[1]}
	h := NewHandler(store, interp, testsupport.NewLogger(t))
	err := h.Execute(context.Background(), "100")
	if !errors.Is(err, services.ErrMedia) {
		t.Fatalf("expected media fault, got %v", err)
	}
	item, _ := store.Get("100")
	if len(item.MediaDescriptions) != 1 {
		t.Fatalf("first description should be persisted: %v", item.MediaDescriptions)
	}

	interp.failPath = ""
	interp.calls = nil
	if err := h.Execute(context.Background(), "100"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(interp.calls) != 2 {
		t.Fatalf("retry must only describe outstanding files, got %v", interp.calls)
	}
	item, _ = store.Get("100")
	if !item.PhaseComplete(catalog.PhaseMediaDescribe) {
		t.Fatalf("describe still incomplete: %+v", item)
	}
}

func TestExecuteFailsWhenCachedMediaMissing(t *testing.T) {
	store, paths := itemWithMedia(t, "media_0.jpg")
	if err := os.Remove(paths[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	h := NewHandler(store, &fakeInterpreter{}, testsupport.NewLogger(t))
	if err := h.Execute(context.Background(), "100"); !errors.Is(err, services.ErrMedia) {
		t.Fatalf("expected media fault, got %v", err)
	}
}
