// Package ai defines the enrichment client boundary. The pipeline only
// depends on the Client interface; the OpenAI-compatible implementation and
// the test mock live behind it.
package ai

import (
	"context"

	"github.com/rkovacs/bookworm/internal/domain"
)

// Request describes one enrichment run over a document's current text.
type Request struct {
	Text        string
	ContentType string
	Tasks       []domain.EnrichmentTask
	Context     string
}

// Result carries the outputs of the requested tasks. Fields for tasks that
// were not requested stay at their zero values.
type Result struct {
	Summary    string
	Concepts   domain.ConceptList
	Questions  domain.QuestionList
	Difficulty string
}

// Client runs AI enrichment tasks against an inference backend.
type Client interface {
	// Enrich executes the requested tasks in order and returns their
	// combined outputs.
	Enrich(ctx context.Context, req *Request) (*Result, error)

	// Model returns the model identifier for audit fields.
	Model() string
}
