// Package cachefill implements the caching phase: fetching source text and
// media references for tracked items.
package cachefill

import (
	"context"
	"log/slog"

	"curator/internal/catalog"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/twitterfetch"
)

// SourceFetcher retrieves the original content for an item.
type SourceFetcher interface {
	FetchTweet(ctx context.Context, id string) (*twitterfetch.Tweet, error)
}

// Handler caches item text and media references. Completion requires both the
// text and the media reference list, captured together, so a crash between
// the two can never produce a half-cached item.
type Handler struct {
	store   *catalog.Store
	fetcher SourceFetcher
	logger  *slog.Logger
}

// NewHandler returns the caching phase handler.
func NewHandler(store *catalog.Store, fetcher SourceFetcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:   store,
		fetcher: fetcher,
		logger:  logger.With(logging.String(logging.FieldComponent, "cachefill")),
	}
}

// Phase identifies the pipeline phase this handler serves.
func (h *Handler) Phase() catalog.Phase {
	return catalog.PhaseCache
}

// Execute fetches and persists the item's source content.
func (h *Handler) Execute(ctx context.Context, itemID string) error {
	item, ok := h.store.Get(itemID)
	if !ok {
		return services.Wrap(services.ErrFetch, "cache", "load", "unknown item "+itemID, nil)
	}
	if item.PhaseComplete(catalog.PhaseCache) {
		return nil
	}
	tweet, err := h.fetcher.FetchTweet(ctx, itemID)
	if err != nil {
		return services.Wrap(services.ErrFetch, "cache", "fetch", "fetch source content", err)
	}
	refs := tweet.MediaURLs
	if refs == nil {
		refs = []string{}
	}
	_, err = h.store.CompletePhase(itemID, catalog.PhaseCache, func(it *catalog.Item) {
		it.FullText = tweet.FullText
		it.SourceURL = tweet.URL
		it.MediaRefs = refs
	})
	if err != nil {
		return err
	}
	h.logger.Info("cached item",
		logging.String(logging.FieldItemID, itemID),
		logging.Int("media_refs", len(refs)))
	return nil
}
