// Package mock provides a test double for the ai.Client interface.
package mock

import (
	"context"
	"sync"

	"github.com/rkovacs/bookworm/internal/ai"
	"github.com/rkovacs/bookworm/internal/domain"
)

// Client is a configurable in-memory ai.Client. The zero value returns
// deterministic canned outputs for every requested task.
type Client struct {
	mu sync.Mutex

	// Err, when set, is returned by every Enrich call.
	Err error

	// FailFirst makes the first N calls fail with Err before succeeding,
	// for retry-path tests.
	FailFirst int

	// Requests records every request received, in order.
	Requests []*ai.Request

	calls int
}

// NewClient creates a mock with default canned outputs.
func NewClient() *Client {
	return &Client{}
}

// Model returns a stable fake model identifier.
func (c *Client) Model() string {
	return "mock-enrichment-model"
}

// Calls returns how many Enrich calls the mock has received.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Enrich returns canned outputs for each requested task, or the configured
// error.
func (c *Client) Enrich(ctx context.Context, req *ai.Request) (*ai.Result, error) {
	c.mu.Lock()
	c.calls++
	calls := c.calls
	c.Requests = append(c.Requests, req)
	err := c.Err
	failFirst := c.FailFirst
	c.mu.Unlock()

	if err != nil && (failFirst == 0 || calls <= failFirst) {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	res := &ai.Result{}
	for _, task := range req.Tasks {
		switch task {
		case domain.TaskSummary:
			res.Summary = "A concise study summary of the document."
		case domain.TaskConcepts:
			res.Concepts = domain.ConceptList{
				{Name: "Core Concept", Description: "The document's central idea."},
				{Name: "Supporting Concept", Description: "A secondary idea the text develops."},
			}
		case domain.TaskQuiz:
			res.Questions = domain.QuestionList{
				{
					Question:   "What is the document mainly about?",
					Options:    []string{"The core concept", "An unrelated topic", "Nothing", "Everything"},
					Answer:     "The core concept",
					Difficulty: "easy",
				},
			}
		case domain.TaskDifficulty:
			res.Difficulty = "intermediate"
		}
	}
	return res, nil
}
