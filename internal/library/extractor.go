package library

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// Pages are truncated before prompting to keep token usage bounded.
const maxPageBytes = 24_000

// Near-duplicate threshold for cosine similarity between item embeddings.
const duplicateThreshold = 0.95

// Extractor turns web pages into library items: fetch, strip HTML noise,
// extract structured items via the model, embed, and store — skipping items
// the catalog already has a near-duplicate of.
type Extractor struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
	embGen     llm.EmbeddingGenerator
	repo       *Repository
}

func NewExtractor(textGen llm.TextGenerator, embGen llm.EmbeddingGenerator, repo *Repository) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
		embGen:     embGen,
		repo:       repo,
	}
}

// IngestResult reports what one URL produced.
type IngestResult struct {
	Saved   int
	Skipped int
	Meta    shared.GenerationMeta
}

// IngestURL fetches one page and stores the items extracted from it.
// kind is "meal" or "workout" and controls the extraction schema.
func (e *Extractor) IngestURL(ctx context.Context, url, kind string) (IngestResult, error) {
	content, err := e.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	items, meta, err := e.extractItems(ctx, content, kind)
	if err != nil {
		return IngestResult{Meta: meta}, err
	}

	result := IngestResult{Meta: meta}
	for _, item := range items {
		item.Kind = kind
		item.SourceURL = url
		item.ID = itemID(kind, item.Name)
		item.UpdatedAt = time.Now().UTC()

		embedding, err := e.embGen.GenerateEmbedding(ctx, item.ToEmbeddingText())
		if err != nil {
			return result, fmt.Errorf("failed to generate embedding for %q: %w", item.Name, err)
		}

		dup, err := e.repo.HasNearDuplicate(ctx, kind, embedding, duplicateThreshold)
		if err != nil {
			return result, err
		}
		if dup {
			result.Skipped++
			continue
		}

		if err := e.repo.Save(ctx, item, embedding); err != nil {
			return result, err
		}
		result.Saved++
	}

	return result, nil
}

// extractItems runs the extraction prompt over cleaned page text.
func (e *Extractor) extractItems(ctx context.Context, content, kind string) ([]Item, shared.GenerationMeta, error) {
	start := time.Now()

	prompt, err := buildExtractorPrompt(content, kind)
	if err != nil {
		return nil, shared.GenerationMeta{}, err
	}

	resp, err := e.textGen.GenerateContent(ctx, prompt)
	meta := shared.GenerationMeta{
		Strategy: "library-extract",
		Usage:    resp.Usage,
		Latency:  time.Since(start),
	}
	if err != nil {
		return nil, meta, fmt.Errorf("extraction failed: %w", err)
	}

	var parsed struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, meta, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	items := parsed.Items[:0]
	for _, item := range parsed.Items {
		if strings.TrimSpace(item.Name) != "" {
			items = append(items, item)
		}
	}
	return items, meta, nil
}

func (e *Extractor) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save tokens.
	doc.Find("script, style, nav, footer, header, iframe, form, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > maxPageBytes {
		text = text[:maxPageBytes]
	}
	return text, nil
}

func buildExtractorPrompt(content, kind string) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	unitNoun := "exercise block"
	if kind == "meal" {
		unitNoun = "meal"
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		UnitNoun string
		Meal     bool
		Content  string
	}{UnitNoun: unitNoun, Meal: kind == "meal", Content: content})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// itemID derives a stable ID so re-ingesting the same page updates items
// instead of duplicating them.
func itemID(kind, name string) string {
	sum := sha256.Sum256([]byte(kind + ":" + strings.ToLower(strings.TrimSpace(name))))
	return hex.EncodeToString(sum[:8])
}
