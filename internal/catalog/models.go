package catalog

import "time"

// Phase identifies one ordered pipeline stage.
type Phase string

const (
	PhaseCache         Phase = "cache"
	PhaseMediaFetch    Phase = "media_fetch"
	PhaseMediaDescribe Phase = "media_describe"
	PhaseCategorize    Phase = "categorize"
	PhaseArtifact      Phase = "artifact"
)

// Phases returns all pipeline phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseCache, PhaseMediaFetch, PhaseMediaDescribe, PhaseCategorize, PhaseArtifact}
}

// Category holds the structured categorization result for an item.
type Category struct {
	Main        string    `json:"main_category"`
	Sub         string    `json:"sub_category"`
	ItemName    string    `json:"item_name"`
	ModelUsed   string    `json:"model_used,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
}

func (c *Category) complete() bool {
	return c != nil && c.Main != "" && c.Sub != "" && c.ItemName != ""
}

// Item is one catalog record tracked through the pipeline. Phase flags are
// monotonic: set only by the store's CompletePhase and demoted only by
// validator repair. MediaRefs distinguishes "never captured" (nil) from
// "captured, no media" (empty), so it is serialized even when empty.
type Item struct {
	ID                string   `json:"id"`
	FullText          string   `json:"full_text,omitempty"`
	SourceURL         string   `json:"source_url,omitempty"`
	MediaRefs         []string `json:"media_refs"`
	DownloadedMedia   []string `json:"downloaded_media,omitempty"`
	MediaDescriptions []string `json:"media_descriptions,omitempty"`

	Category     *Category `json:"category,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`

	CacheComplete       bool `json:"cache_complete"`
	MediaProcessed      bool `json:"media_processed"`
	CategoriesProcessed bool `json:"categories_processed"`
	KBItemCreated       bool `json:"kb_item_created"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PhaseComplete reports whether the given phase has nothing left to do for
// this item. The describe phase has no flag of its own: it is complete once
// descriptions cover every downloaded media file.
func (i *Item) PhaseComplete(phase Phase) bool {
	switch phase {
	case PhaseCache:
		return i.CacheComplete
	case PhaseMediaFetch:
		return i.MediaProcessed
	case PhaseMediaDescribe:
		return i.MediaProcessed && len(i.MediaDescriptions) == len(i.DownloadedMedia)
	case PhaseCategorize:
		return i.CategoriesProcessed
	case PhaseArtifact:
		return i.KBItemCreated
	default:
		return false
	}
}

// Eligible reports whether the item should enter the given phase batch: the
// phase's own work is outstanding and every earlier phase is complete.
func (i *Item) Eligible(phase Phase) bool {
	if i.PhaseComplete(phase) {
		return false
	}
	for _, earlier := range Phases() {
		if earlier == phase {
			return true
		}
		if !i.PhaseComplete(earlier) {
			return false
		}
	}
	return false
}

// Processed reports whether every phase flag is set.
func (i *Item) Processed() bool {
	return i.CacheComplete && i.MediaProcessed && i.CategoriesProcessed && i.KBItemCreated
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	if i.MediaRefs != nil {
		cp.MediaRefs = append([]string{}, i.MediaRefs...)
	}
	if i.DownloadedMedia != nil {
		cp.DownloadedMedia = append([]string{}, i.DownloadedMedia...)
	}
	if i.MediaDescriptions != nil {
		cp.MediaDescriptions = append([]string{}, i.MediaDescriptions...)
	}
	if i.Category != nil {
		cat := *i.Category
		cp.Category = &cat
	}
	return &cp
}

// merge copies every supplied (non-zero) data field of src into i without
// touching phase flags, so callers can never silently drop fields they did
// not set. Flag transitions go through CompletePhase and validator repair.
func (i *Item) merge(src *Item) {
	if src.FullText != "" {
		i.FullText = src.FullText
	}
	if src.SourceURL != "" {
		i.SourceURL = src.SourceURL
	}
	if src.MediaRefs != nil {
		i.MediaRefs = append([]string{}, src.MediaRefs...)
	}
	if src.DownloadedMedia != nil {
		i.DownloadedMedia = append([]string{}, src.DownloadedMedia...)
	}
	if src.MediaDescriptions != nil {
		i.MediaDescriptions = append([]string{}, src.MediaDescriptions...)
	}
	if src.Category != nil {
		cat := *src.Category
		i.Category = &cat
	}
	if src.ArtifactPath != "" {
		i.ArtifactPath = src.ArtifactPath
	}
}
