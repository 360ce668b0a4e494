package kbwriter

import (
	"context"
	"log/slog"

	"curator/internal/catalog"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/services"
)

// Renderer produces the artifact for one item and returns its path.
type Renderer interface {
	Render(item *catalog.Item) (string, error)
}

// Handler runs the artifact creation phase. The artifact's existence on disk
// is verified before the flag is set, since the flag's evidence is the file
// itself.
type Handler struct {
	store    *catalog.Store
	renderer Renderer
	logger   *slog.Logger
}

// NewHandler returns the artifact creation phase handler.
func NewHandler(store *catalog.Store, renderer Renderer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:    store,
		renderer: renderer,
		logger:   logger.With(logging.String(logging.FieldComponent, "kbwriter")),
	}
}

// Phase identifies the pipeline phase this handler serves.
func (h *Handler) Phase() catalog.Phase {
	return catalog.PhaseArtifact
}

// Execute renders the item's artifact and records its path.
func (h *Handler) Execute(ctx context.Context, itemID string) error {
	item, ok := h.store.Get(itemID)
	if !ok {
		return services.Wrap(services.ErrRender, "artifact", "load", "unknown item "+itemID, nil)
	}
	if item.PhaseComplete(catalog.PhaseArtifact) {
		return nil
	}
	path, err := h.renderer.Render(item)
	if err != nil {
		return services.Wrap(services.ErrRender, "artifact", "render", "render artifact", err)
	}
	if !fileutil.PathExists(path) {
		return services.Wrap(services.ErrRender, "artifact", "verify", "rendered artifact missing: "+path, nil)
	}
	if _, err := h.store.CompletePhase(itemID, catalog.PhaseArtifact, func(it *catalog.Item) {
		it.ArtifactPath = path
	}); err != nil {
		return err
	}
	h.logger.Info("created artifact",
		logging.String(logging.FieldItemID, itemID),
		logging.String("path", path))
	return nil
}
