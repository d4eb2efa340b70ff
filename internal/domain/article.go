package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// fieldFallback is the literal used in rendered text for any article field
// missing from the source JSON.
const fieldFallback = "N/A"

// Article holds the known fields extracted from a scraped article JSON
// document. Missing fields render as "N/A".
type Article struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// ParseArticle decodes an article JSON document, tolerating missing fields.
func ParseArticle(data []byte) (*Article, error) {
	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse article JSON: %w", err)
	}
	return &a, nil
}

// RenderText emits the fixed plain-text template for an article.
func (a *Article) RenderText() string {
	return fmt.Sprintf("Title: %s\nAuthor: %s\nDate: %s\n\nContent:\n%s\n",
		orFallback(a.Title),
		orFallback(a.Author),
		orFallback(a.Date),
		orFallback(a.Content),
	)
}

func orFallback(s string) string {
	if s == "" {
		return fieldFallback
	}
	return s
}

// bodyFields is the prioritized list of fields checked when extracting
// summarizable body text from an arbitrary JSON document.
var bodyFields = []string{"text", "content", "article", "body", "document", "data"}

// ExtractBody pulls the best body text out of an arbitrary JSON document:
// the first non-empty string field in priority order; the root itself when it
// is a string; otherwise a stringified form of the whole structure as a last
// resort. Returns "" when nothing usable is present.
func ExtractBody(data []byte) (string, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	switch v := root.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case map[string]any:
		for _, field := range bodyFields {
			if s, ok := v[field].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}

	return strings.TrimSpace(fmt.Sprint(root)), nil
}
