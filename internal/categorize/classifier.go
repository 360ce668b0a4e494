package categorize

import (
	"context"
	"fmt"
	"strings"

	"curator/internal/services/ollama"
)

// OllamaClassifier categorizes items through an Ollama text model using JSON
// mode.
type OllamaClassifier struct {
	Client *ollama.Client
	Model  string
}

type classification struct {
	Main     string `json:"main_category"`
	Sub      string `json:"sub_category"`
	ItemName string `json:"item_name"`
}

// Classify builds a prompt with the existing hierarchy and decodes the
// model's JSON answer.
func (c OllamaClassifier) Classify(ctx context.Context, req Request) (*Result, error) {
	var out classification
	if err := c.Client.GenerateJSON(ctx, c.Model, buildPrompt(req), &out); err != nil {
		return nil, err
	}
	return &Result{
		Main:     out.Main,
		Sub:      out.Sub,
		ItemName: out.ItemName,
		Model:    c.Model,
	}, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are organizing a technical knowledge base. ")
	b.WriteString("Assign the content below to a main category and sub category, and invent a short descriptive item name.\n\n")
	if len(req.Existing) > 0 {
		b.WriteString("Prefer these existing categories when they fit:\n")
		for main, subs := range req.Existing {
			fmt.Fprintf(&b, "- %s: %s\n", main, strings.Join(subs, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("Content:\n")
	b.WriteString(req.Text)
	b.WriteString("\n")
	for i, desc := range req.MediaDescriptions {
		fmt.Fprintf(&b, "\nMedia %d: %s", i+1, desc)
	}
	b.WriteString("\n\nAnswer with a JSON object holding main_category, sub_category and item_name. ")
	b.WriteString("Use lowercase names with underscores instead of spaces.")
	return b.String()
}
