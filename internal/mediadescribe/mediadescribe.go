// Package mediadescribe implements the media interpretation phase, producing
// a textual description for every downloaded media file.
package mediadescribe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"curator/internal/catalog"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/services"
	"curator/internal/services/ollama"
)

// Interpreter produces a description for one local media file.
type Interpreter interface {
	Describe(ctx context.Context, path string) (string, error)
}

const describePrompt = "Describe this image in two or three sentences. " +
	"Focus on the subject, any visible text, and anything a reader searching notes later would look for."

// OllamaInterpreter describes images through an Ollama vision model.
type OllamaInterpreter struct {
	Client *ollama.Client
	Model  string
}

// Describe sends the image to the vision model.
func (o OllamaInterpreter) Describe(ctx context.Context, path string) (string, error) {
	return o.Client.Describe(ctx, o.Model, describePrompt, path)
}

// Handler describes downloaded media. Descriptions stay index-aligned with
// the downloaded file list, and each one is persisted as soon as it is
// produced so an interrupted batch resumes at the first undescribed file.
// Non-image files get a fixed placeholder instead of a model call.
type Handler struct {
	store       *catalog.Store
	interpreter Interpreter
	logger      *slog.Logger
}

// NewHandler returns the media interpretation phase handler.
func NewHandler(store *catalog.Store, interpreter Interpreter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:       store,
		interpreter: interpreter,
		logger:      logger.With(logging.String(logging.FieldComponent, "mediadescribe")),
	}
}

// Phase identifies the pipeline phase this handler serves.
func (h *Handler) Phase() catalog.Phase {
	return catalog.PhaseMediaDescribe
}

// Execute describes the item's outstanding media files.
func (h *Handler) Execute(ctx context.Context, itemID string) error {
	item, ok := h.store.Get(itemID)
	if !ok {
		return services.Wrap(services.ErrMedia, "media_describe", "load", "unknown item "+itemID, nil)
	}
	if item.PhaseComplete(catalog.PhaseMediaDescribe) {
		return nil
	}

	descriptions := append([]string{}, item.MediaDescriptions...)
	if len(descriptions) > len(item.DownloadedMedia) {
		descriptions = descriptions[:len(item.DownloadedMedia)]
	}
	for i := len(descriptions); i < len(item.DownloadedMedia); i++ {
		path := item.DownloadedMedia[i]
		if !fileutil.PathExists(path) {
			return services.Wrap(services.ErrMedia, "media_describe", "verify",
				fmt.Sprintf("cached media missing: %s", path), nil)
		}
		description, err := h.describeFile(ctx, path)
		if err != nil {
			return services.Wrap(services.ErrMedia, "media_describe", "describe",
				fmt.Sprintf("media %d of %d", i+1, len(item.DownloadedMedia)), err)
		}
		descriptions = append(descriptions, description)
		if _, err := h.store.Upsert(&catalog.Item{ID: itemID, MediaDescriptions: descriptions}); err != nil {
			return err
		}
	}
	h.logger.Info("described media",
		logging.String(logging.FieldItemID, itemID),
		logging.Int("files", len(descriptions)))
	return nil
}

func (h *Handler) describeFile(ctx context.Context, path string) (string, error) {
	if !isImage(path) {
		return "Video or other media file, stored locally.", nil
	}
	description, err := h.interpreter.Describe(ctx, path)
	if err != nil {
		return "", err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("model returned an empty description")
	}
	return description, nil
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}
