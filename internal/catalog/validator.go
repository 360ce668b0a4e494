package catalog

import (
	"log/slog"
	"os"

	"curator/internal/logging"
)

// Validator checks each phase flag against the evidence that should back it
// and demotes flags the evidence no longer supports. Demotion cascades: once
// a flag falls, every later flag falls with it, so the item re-enters the
// pipeline at the earliest broken phase.
type Validator struct {
	logger *slog.Logger
	exists func(string) bool
}

// NewValidator returns a validator that checks file evidence on the local
// filesystem.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{
		logger: logger.With(logging.String(logging.FieldComponent, "validator")),
		exists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
}

// Reconcile repairs the item's flags in place and reports whether anything
// changed.
func (v *Validator) Reconcile(item *Item) bool {
	type check struct {
		phase     Phase
		flag      bool
		supported func() bool
	}
	checks := []check{
		{PhaseCache, item.CacheComplete, func() bool { return v.cacheSupported(item) }},
		{PhaseMediaFetch, item.MediaProcessed, func() bool { return v.mediaSupported(item) }},
		{PhaseCategorize, item.CategoriesProcessed, func() bool { return v.categorySupported(item) }},
		{PhaseArtifact, item.KBItemCreated, func() bool { return v.artifactSupported(item) }},
	}
	brokenBefore := false
	for _, c := range checks {
		if !c.flag {
			brokenBefore = true
			continue
		}
		// A true flag needs both its own evidence and every earlier flag;
		// an unset predecessor breaks the chain regardless of evidence.
		if !brokenBefore && c.supported() {
			continue
		}
		demoteFrom(item, c.phase)
		v.logger.Warn("demoted unsupported phase flag",
			logging.String(logging.FieldEventType, "validation_repair"),
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldPhase, string(c.phase)))
		return true
	}
	return false
}

// cacheSupported requires cached text plus a captured media-reference list.
// An empty list is valid evidence; a nil list means capture never happened.
func (v *Validator) cacheSupported(item *Item) bool {
	return item.FullText != "" && item.MediaRefs != nil
}

// mediaSupported requires one downloaded file per media reference, each
// present on disk. With zero references the phase is vacuously supported.
func (v *Validator) mediaSupported(item *Item) bool {
	if item.MediaRefs == nil || len(item.DownloadedMedia) != len(item.MediaRefs) {
		return false
	}
	for _, path := range item.DownloadedMedia {
		if !v.exists(path) {
			return false
		}
	}
	return true
}

// categorySupported requires a complete category and a description for every
// downloaded media file.
func (v *Validator) categorySupported(item *Item) bool {
	return item.Category.complete() && len(item.MediaDescriptions) == len(item.DownloadedMedia)
}

// artifactSupported requires the rendered artifact to exist on disk.
func (v *Validator) artifactSupported(item *Item) bool {
	return item.ArtifactPath != "" && v.exists(item.ArtifactPath)
}

// demoteFrom clears the flag for the given phase and every later phase.
func demoteFrom(item *Item, phase Phase) {
	clearing := false
	for _, p := range Phases() {
		if p == phase {
			clearing = true
		}
		if !clearing {
			continue
		}
		switch p {
		case PhaseCache:
			item.CacheComplete = false
		case PhaseMediaFetch:
			item.MediaProcessed = false
		case PhaseCategorize:
			item.CategoriesProcessed = false
		case PhaseArtifact:
			item.KBItemCreated = false
		}
	}
}
