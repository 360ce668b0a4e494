package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// legacyRecord accepts both the current record shape and the field names and
// media encodings used by earlier catalog versions.
type legacyRecord struct {
	ID        string `json:"id"`
	FullText  string `json:"full_text"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	TweetURL  string `json:"tweet_url"`
	URL       string `json:"url"`

	MediaRefs json.RawMessage `json:"media_refs"`
	Media     json.RawMessage `json:"media"`

	DownloadedMedia   []string `json:"downloaded_media"`
	MediaDescriptions []string `json:"media_descriptions"`
	ImageDescriptions []string `json:"image_descriptions"`

	Category   *Category       `json:"category"`
	Categories *legacyCategory `json:"categories"`

	ArtifactPath string `json:"artifact_path"`
	KBItemPath   string `json:"kb_item_path"`

	CacheComplete       bool `json:"cache_complete"`
	MediaProcessed      bool `json:"media_processed"`
	CategoriesProcessed bool `json:"categories_processed"`
	KBItemCreated       bool `json:"kb_item_created"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type legacyCategory struct {
	Main          string    `json:"main_category"`
	Sub           string    `json:"sub_category"`
	ItemName      string    `json:"item_name"`
	ModelUsed     string    `json:"model_used"`
	CategorizedAt time.Time `json:"categorized_at"`
}

// normalizeRecord decodes one catalog record, accepting legacy field names
// so older catalogs load without a separate migration step. The map key wins
// over any embedded ID.
func normalizeRecord(id string, raw json.RawMessage) (*Item, error) {
	var rec legacyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	item := &Item{
		ID:                  id,
		FullText:            firstNonEmpty(rec.FullText, rec.Text),
		SourceURL:           firstNonEmpty(rec.SourceURL, rec.TweetURL, rec.URL),
		DownloadedMedia:     rec.DownloadedMedia,
		MediaDescriptions:   rec.MediaDescriptions,
		Category:            rec.Category,
		ArtifactPath:        firstNonEmpty(rec.ArtifactPath, rec.KBItemPath),
		CacheComplete:       rec.CacheComplete,
		MediaProcessed:      rec.MediaProcessed,
		CategoriesProcessed: rec.CategoriesProcessed,
		KBItemCreated:       rec.KBItemCreated,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
	if item.ID == "" {
		item.ID = rec.ID
	}
	if item.MediaDescriptions == nil {
		item.MediaDescriptions = rec.ImageDescriptions
	}
	if item.Category == nil && rec.Categories != nil {
		item.Category = &Category{
			Main:        rec.Categories.Main,
			Sub:         rec.Categories.Sub,
			ItemName:    rec.Categories.ItemName,
			ModelUsed:   rec.Categories.ModelUsed,
			GeneratedAt: rec.Categories.CategorizedAt,
		}
	}
	refs, err := decodeMediaRefs(rec.MediaRefs)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		if refs, err = decodeMediaRefs(rec.Media); err != nil {
			return nil, err
		}
	}
	item.MediaRefs = refs
	return item, nil
}

// decodeMediaRefs accepts either a plain URL list or the older list of
// {url, type} objects. A JSON null or absent field stays nil.
func decodeMediaRefs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return urls, nil
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil, fmt.Errorf("unrecognized media list: %w", err)
	}
	urls = make([]string, 0, len(objs))
	for _, o := range objs {
		urls = append(urls, o.URL)
	}
	return urls, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
