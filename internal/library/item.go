// Package library maintains a catalog of known meals and exercise blocks,
// ingested from web pages. Item names feed the generation prompts as
// variety hints; embeddings keep the catalog free of near-duplicates.
package library

import (
	"strings"
	"time"
)

// Item is one catalog entry: a meal or an exercise block with whatever
// structured detail could be extracted from its source page.
type Item struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"` // "meal" or "workout"
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Calories int `json:"calories,omitempty"`
	ProteinG int `json:"protein_g,omitempty"`

	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Equipment       string `json:"equipment,omitempty"`

	SourceURL string    `json:"source_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToEmbeddingText flattens the item into the text its embedding is
// computed from.
func (i Item) ToEmbeddingText() string {
	parts := []string{i.Kind, i.Name, i.Description}
	parts = append(parts, i.Tags...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
