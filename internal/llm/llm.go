package llm

import (
	"context"
	"fmt"

	"ai-fitness-planner/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// StructuredGenerator is an interface for generating JSON constrained by an
// output schema. The returned content is the raw JSON text; callers are
// expected to validate it again locally.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, schema *Schema) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// APIError is a non-2xx response from a model provider. The status code is
// kept so callers can classify quota rejections.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error: status=%d body=%s", e.StatusCode, e.Body)
}
