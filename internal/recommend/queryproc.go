package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/sanitize"
)

// queryUnderstandingPrompt instructs the model to decompose a user query
// into embedding text, keywords, and hard constraints. The JSON shape is
// parsed by parseHardConstraints; every field must be present.
const queryUnderstandingPrompt = `You are a query analyzer for an anime and manga recommendation system.
Decompose the user's request into a semantic part and structured constraints.

Respond with ONLY a JSON object, no prose and no code fences, in this exact shape:
{
  "embedding_text": "<a short description of the themes, mood and content the user wants>",
  "keywords": ["<theme or genre keywords extracted from the query>"],
  "hard_constraints": {
    "score_range": {"min": null, "max": null},
    "type": {"include": [], "exclude": []},
    "date_range": {"start": null, "end": null},
    "status": {"include": [], "exclude": []}
  }
}

Rules:
- score_range bounds are numbers in [0, 10] or null when the user expressed no score preference.
- type values are from: TV, MOVIE, OVA, ONA, SPECIAL, MANGA, NOVEL, ARTBOOK, DOUJINSHI, MANHWA, OTHER.
- status values are from: UPCOMING, ONGOING, FINISHED, SUSPENDED, CANCELLED, UNKNOWN.
- date_range bounds are "YYYY-MM" strings or null.
- Only set a constraint the user actually asked for. Leave everything else null or empty.

User query: `

// LLMConfig configures the query-understanding model.
type LLMConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

// QueryProcessor turns raw user text into a ProcessedQuery via an LLM.
type QueryProcessor struct {
	model  llms.Model
	logger *logging.Logger
}

// NewQueryProcessor creates a processor backed by an OpenAI-compatible chat
// model.
func NewQueryProcessor(config LLMConfig, logger *logging.Logger) (*QueryProcessor, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	return &QueryProcessor{model: llm, logger: logger}, nil
}

// NewQueryProcessorWithModel creates a processor around an existing model.
// Used by tests to substitute a canned model.
func NewQueryProcessorWithModel(model llms.Model, logger *logging.Logger) *QueryProcessor {
	return &QueryProcessor{model: model, logger: logger}
}

// Process sanitizes the user text, asks the model to decompose it, and
// parses the structured result.
//
// Sanitization failures are validation errors and surface as-is. A non-JSON
// or schema-mismatched model response returns ErrMalformedResponse and is
// never retried.
func (p *QueryProcessor) Process(ctx context.Context, userQuery string) (*ProcessedQuery, error) {
	cleaned, err := sanitize.Query(userQuery)
	if err != nil {
		return nil, fmt.Errorf("sanitizing query: %w", err)
	}

	p.logger.Debug(ctx, "processing user query", zap.Int("query_length", len(cleaned)))

	output, err := llms.GenerateFromSinglePrompt(ctx, p.model,
		queryUnderstandingPrompt+cleaned,
		llms.WithTemperature(0),
	)
	if err != nil {
		return nil, fmt.Errorf("query understanding call: %w", err)
	}

	var raw rawProcessedQuery
	if err := json.Unmarshal([]byte(stripCodeFences(output)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.EmbeddingText == "" {
		return nil, fmt.Errorf("%w: missing embedding_text", ErrMalformedResponse)
	}

	constraints, err := parseHardConstraints(raw.HardConstraints)
	if err != nil {
		return nil, err
	}

	return &ProcessedQuery{
		EmbeddingText:   raw.EmbeddingText,
		Keywords:        raw.Keywords,
		HardConstraints: constraints,
	}, nil
}

// stripCodeFences removes a markdown fence wrapper some models emit despite
// instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
