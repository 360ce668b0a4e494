// Package categorize implements the categorization phase, assigning each item
// a main category, subcategory and item name.
package categorize

import (
	"context"
	"log/slog"
	"time"

	"curator/internal/catalog"
	"curator/internal/categories"
	"curator/internal/logging"
	"curator/internal/services"
)

// Request carries everything the classifier may use for its decision.
type Request struct {
	Text              string
	MediaDescriptions []string
	Existing          map[string][]string
}

// Result is a raw classification before normalization.
type Result struct {
	Main     string
	Sub      string
	ItemName string
	Model    string
}

// Classifier assigns a category to one item.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// Handler categorizes items whose media descriptions are complete. Names are
// normalized to slugs and recorded in the category hierarchy before the flag
// is set.
type Handler struct {
	store      *catalog.Store
	classifier Classifier
	cats       *categories.Manager
	logger     *slog.Logger
}

// NewHandler returns the categorization phase handler.
func NewHandler(store *catalog.Store, classifier Classifier, cats *categories.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		store:      store,
		classifier: classifier,
		cats:       cats,
		logger:     logger.With(logging.String(logging.FieldComponent, "categorize")),
	}
}

// Phase identifies the pipeline phase this handler serves.
func (h *Handler) Phase() catalog.Phase {
	return catalog.PhaseCategorize
}

// Execute classifies the item and records the category.
func (h *Handler) Execute(ctx context.Context, itemID string) error {
	item, ok := h.store.Get(itemID)
	if !ok {
		return services.Wrap(services.ErrCategorization, "categorize", "load", "unknown item "+itemID, nil)
	}
	if item.PhaseComplete(catalog.PhaseCategorize) {
		return nil
	}

	result, err := h.classifier.Classify(ctx, Request{
		Text:              item.FullText,
		MediaDescriptions: append([]string{}, item.MediaDescriptions...),
		Existing:          h.cats.All(),
	})
	if err != nil {
		return services.Wrap(services.ErrCategorization, "categorize", "classify", "classify item", err)
	}
	category := &catalog.Category{
		Main:        Slug(result.Main),
		Sub:         Slug(result.Sub),
		ItemName:    Slug(result.ItemName),
		ModelUsed:   result.Model,
		GeneratedAt: time.Now().UTC(),
	}
	if category.Main == "" || category.Sub == "" || category.ItemName == "" {
		return services.Wrap(services.ErrCategorization, "categorize", "normalize",
			"classifier returned an unusable category", nil)
	}
	if err := h.cats.Ensure(category.Main, category.Sub); err != nil {
		return services.Wrap(services.ErrStorage, "categorize", "hierarchy", "record category", err)
	}
	if _, err := h.store.CompletePhase(itemID, catalog.PhaseCategorize, func(it *catalog.Item) {
		it.Category = category
	}); err != nil {
		return err
	}
	h.logger.Info("categorized item",
		logging.String(logging.FieldItemID, itemID),
		logging.String("category", category.Main+"/"+category.Sub))
	return nil
}
