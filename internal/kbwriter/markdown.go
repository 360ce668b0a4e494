// Package kbwriter renders catalog items into the markdown knowledge base.
package kbwriter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"curator/internal/catalog"
	"curator/internal/fileutil"
)

// Writer renders one markdown artifact per item under
// <root>/<main>/<sub>/<item_name>/, copying the item's media alongside it so
// the knowledge base is self-contained.
type Writer struct {
	root string
}

// NewWriter returns a writer rooted at the knowledge base directory.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Render writes the item's artifact and returns its path. Re-rendering an
// item overwrites the previous artifact in place.
func (w *Writer) Render(item *catalog.Item) (string, error) {
	if item.Category == nil {
		return "", fmt.Errorf("kbwriter: item %s has no category", item.ID)
	}
	itemDir := filepath.Join(w.root, item.Category.Main, item.Category.Sub, item.Category.ItemName)
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		return "", fmt.Errorf("kbwriter: create item dir: %w", err)
	}

	mediaNames := make([]string, len(item.DownloadedMedia))
	for i, src := range item.DownloadedMedia {
		name := fmt.Sprintf("media_%d%s", i, filepath.Ext(src))
		if err := fileutil.CopyFile(src, filepath.Join(itemDir, name)); err != nil {
			return "", fmt.Errorf("kbwriter: copy media: %w", err)
		}
		mediaNames[i] = name
	}

	artifact := filepath.Join(itemDir, "README.md")
	content := renderMarkdown(item, mediaNames)
	if err := fileutil.WriteFileAtomic(artifact, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("kbwriter: write artifact: %w", err)
	}
	return artifact, nil
}

func renderMarkdown(item *catalog.Item, mediaNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", titleFor(item))
	if item.SourceURL != "" {
		fmt.Fprintf(&b, "**Source:** [%s](%s)\n\n", item.SourceURL, item.SourceURL)
	}
	b.WriteString(item.FullText)
	b.WriteString("\n")
	if len(mediaNames) > 0 {
		b.WriteString("\n## Media\n")
		for i, name := range mediaNames {
			fmt.Fprintf(&b, "\n### Media %d\n\n", i+1)
			if isImageName(name) {
				fmt.Fprintf(&b, "![media %d](./%s)\n", i+1, name)
			} else {
				fmt.Fprintf(&b, "[media %d](./%s)\n", i+1, name)
			}
			if i < len(item.MediaDescriptions) && item.MediaDescriptions[i] != "" {
				fmt.Fprintf(&b, "\n%s\n", item.MediaDescriptions[i])
			}
		}
	}
	if item.Category != nil && !item.Category.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\n---\n\n*Categorized %s*\n", item.Category.GeneratedAt.Format("2006-01-02"))
	}
	return b.String()
}

var titleCaser = cases.Title(language.English)

func titleFor(item *catalog.Item) string {
	return titleCaser.String(strings.ReplaceAll(item.Category.ItemName, "_", " "))
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}
