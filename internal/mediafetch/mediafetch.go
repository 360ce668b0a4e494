// Package mediafetch implements the media download phase.
package mediafetch

import (
	"context"
	"fmt"
	"log/slog"

	"curator/internal/catalog"
	"curator/internal/logging"
	"curator/internal/services"
)

// Downloader caches one remote media file locally and returns its path.
type Downloader interface {
	Fetch(ctx context.Context, itemID string, index int, url string) (string, error)
}

// Handler downloads every referenced media file for an item. Downloaded paths
// stay index-aligned with the reference list; partial progress is persisted
// so an interrupted batch resumes where it stopped. Items with zero
// references complete immediately.
type Handler struct {
	store      *catalog.Store
	downloader Downloader
	logger     *slog.Logger
}

// NewHandler returns the media download phase handler.
func NewHandler(store *catalog.Store, downloader Downloader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:      store,
		downloader: downloader,
		logger:     logger.With(logging.String(logging.FieldComponent, "mediafetch")),
	}
}

// Phase identifies the pipeline phase this handler serves.
func (h *Handler) Phase() catalog.Phase {
	return catalog.PhaseMediaFetch
}

// Execute downloads the item's outstanding media files.
func (h *Handler) Execute(ctx context.Context, itemID string) error {
	item, ok := h.store.Get(itemID)
	if !ok {
		return services.Wrap(services.ErrMedia, "media_fetch", "load", "unknown item "+itemID, nil)
	}
	if item.PhaseComplete(catalog.PhaseMediaFetch) {
		return nil
	}
	if item.MediaRefs == nil {
		return services.Wrap(services.ErrMedia, "media_fetch", "refs", "media references never captured for "+itemID, nil)
	}

	downloaded := append([]string{}, item.DownloadedMedia...)
	if len(downloaded) > len(item.MediaRefs) {
		downloaded = downloaded[:len(item.MediaRefs)]
	}
	for i := len(downloaded); i < len(item.MediaRefs); i++ {
		path, err := h.downloader.Fetch(ctx, itemID, i, item.MediaRefs[i])
		if err != nil {
			if len(downloaded) > len(item.DownloadedMedia) {
				if _, upErr := h.store.Upsert(&catalog.Item{ID: itemID, DownloadedMedia: downloaded}); upErr != nil {
					return upErr
				}
			}
			return services.Wrap(services.ErrMedia, "media_fetch", "download",
				fmt.Sprintf("media %d of %d", i+1, len(item.MediaRefs)), err)
		}
		downloaded = append(downloaded, path)
	}

	_, err := h.store.CompletePhase(itemID, catalog.PhaseMediaFetch, func(it *catalog.Item) {
		it.DownloadedMedia = downloaded
	})
	if err != nil {
		return err
	}
	h.logger.Info("downloaded media",
		logging.String(logging.FieldItemID, itemID),
		logging.Int("files", len(downloaded)))
	return nil
}
