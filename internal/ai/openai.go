package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rkovacs/bookworm/internal/domain"
)

// Input text is truncated before prompting; long documents blow past model
// context windows and the tail rarely changes the outputs.
const maxPromptRunes = 24000

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	client   *resty.Client
	model    string
	endpoint string
}

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewOpenAIClient creates a client for an OpenAI-compatible API.
func NewOpenAIClient(cfg *OpenAIConfig) *OpenAIClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIClient{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Model returns the model identifier being used.
func (c *OpenAIClient) Model() string {
	return c.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Enrich runs each requested task as its own completion call. Task order is
// preserved; the first failing task aborts the run so the queue's retry
// policy re-attempts the whole job.
func (c *OpenAIClient) Enrich(ctx context.Context, req *Request) (*Result, error) {
	text := truncateRunes(req.Text, maxPromptRunes)
	res := &Result{}

	for _, task := range req.Tasks {
		switch task {
		case domain.TaskSummary:
			var out struct {
				Summary string `json:"summary"`
			}
			if err := c.complete(ctx, fmt.Sprintf(summaryPrompt, req.ContentType, text), &out); err != nil {
				return nil, fmt.Errorf("summary task: %w", err)
			}
			res.Summary = out.Summary
		case domain.TaskConcepts:
			var out struct {
				Concepts domain.ConceptList `json:"concepts"`
			}
			if err := c.complete(ctx, fmt.Sprintf(conceptsPrompt, req.ContentType, text), &out); err != nil {
				return nil, fmt.Errorf("concept-extraction task: %w", err)
			}
			res.Concepts = out.Concepts
		case domain.TaskQuiz:
			var out struct {
				Questions domain.QuestionList `json:"questions"`
			}
			if err := c.complete(ctx, fmt.Sprintf(quizPrompt, req.ContentType, text), &out); err != nil {
				return nil, fmt.Errorf("quiz-generation task: %w", err)
			}
			res.Questions = out.Questions
		case domain.TaskDifficulty:
			var out struct {
				Difficulty string `json:"difficulty"`
			}
			if err := c.complete(ctx, fmt.Sprintf(difficultyPrompt, req.ContentType, text), &out); err != nil {
				return nil, fmt.Errorf("difficulty-assessment task: %w", err)
			}
			res.Difficulty = out.Difficulty
		default:
			return nil, fmt.Errorf("unknown enrichment task: %q", task)
		}
	}

	return res, nil
}

// complete sends one chat completion and decodes the JSON body of the reply
// into out.
func (c *OpenAIClient) complete(ctx context.Context, prompt string, out interface{}) error {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 2048,
	}

	var respBody chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("inference API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if respBody.Error != nil {
		return fmt.Errorf("inference API error: %s", respBody.Error.Message)
	}
	if len(respBody.Choices) == 0 {
		return fmt.Errorf("inference API returned no choices")
	}

	content := stripCodeFences(respBody.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to decode task response: %w", err)
	}
	return nil
}

// stripCodeFences removes markdown code fences models sometimes wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
