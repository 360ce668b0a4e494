package kbwriter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"curator/internal/catalog"
	"curator/internal/fileutil"
)

// WriteRootReadme regenerates the knowledge base's top-level README.md from
// the catalog: a category tree linking every rendered item. The file is fully
// derived, so it is rewritten from scratch on every call.
func WriteRootReadme(root string, items []*catalog.Item) error {
	type entry struct {
		name string
		rel  string
	}
	tree := map[string]map[string][]entry{}
	total := 0
	for _, item := range items {
		if !item.KBItemCreated || item.Category == nil {
			continue
		}
		rel, err := filepath.Rel(root, item.ArtifactPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Join(item.Category.Main, item.Category.Sub, item.Category.ItemName, "README.md")
		}
		main := item.Category.Main
		sub := item.Category.Sub
		if tree[main] == nil {
			tree[main] = map[string][]entry{}
		}
		tree[main][sub] = append(tree[main][sub], entry{name: item.Category.ItemName, rel: rel})
		total++
	}

	var b strings.Builder
	b.WriteString("# Knowledge Base\n\n")
	fmt.Fprintf(&b, "%d items across %d categories.\n", total, len(tree))

	mains := make([]string, 0, len(tree))
	for main := range tree {
		mains = append(mains, main)
	}
	sort.Strings(mains)
	for _, main := range mains {
		fmt.Fprintf(&b, "\n## %s\n", titleize(main))
		subs := make([]string, 0, len(tree[main]))
		for sub := range tree[main] {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		for _, sub := range subs {
			fmt.Fprintf(&b, "\n### %s\n\n", titleize(sub))
			entries := tree[main][sub]
			sort.Slice(entries, func(a, b int) bool { return entries[a].name < entries[b].name })
			for _, e := range entries {
				fmt.Fprintf(&b, "- [%s](%s)\n", titleize(e.name), filepath.ToSlash(e.rel))
			}
		}
	}

	path := filepath.Join(root, "README.md")
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("kbwriter: write root readme: %w", err)
	}
	return nil
}

func titleize(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}
