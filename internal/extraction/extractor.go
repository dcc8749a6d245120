package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/domain"
)

// DefaultModelName is the default Gemini model used for extraction.
const DefaultModelName = "gemini-2.5-flash"

// GeminiExtractor implements pipeline.Extractor on top of a ModelClient.
type GeminiExtractor struct {
	client     ModelClient
	model      string
	categories []string
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a GeminiExtractor.
type Option func(*GeminiExtractor)

// WithModel selects the model name. Empty names are ignored.
func WithModel(model string) Option {
	return func(e *GeminiExtractor) {
		if model != "" {
			e.model = model
		}
	}
}

// WithCategories replaces the category hints given to the model.
func WithCategories(categories []string) Option {
	return func(e *GeminiExtractor) {
		e.categories = categories
	}
}

// WithClock overrides the clock used to tell the model what day it is.
func WithClock(now func() time.Time) Option {
	return func(e *GeminiExtractor) {
		e.now = now
	}
}

// WithLogger attaches a logger for raw model output at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(e *GeminiExtractor) {
		e.log = log
	}
}

// NewGeminiExtractor creates an extractor that prompts client.
func NewGeminiExtractor(client ModelClient, opts ...Option) *GeminiExtractor {
	e := &GeminiExtractor{
		client:     client,
		model:      DefaultModelName,
		categories: DefaultCategories,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseMessage asks the model for every movement in text and validates each
// one. Transport failures are returned as-is; output that does not describe
// valid movements wraps domain.ErrInvalidInput. An empty slice means the
// model understood nothing.
func (e *GeminiExtractor) ParseMessage(ctx context.Context, text string) ([]domain.ExtractionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("ParseMessage: %w: empty message", domain.ErrInvalidInput)
	}

	today := civil.DateOf(e.now())
	prompt := buildPrompt(text, today, e.categories)

	rawText, err := e.client.Generate(ctx, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: %w", err)
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("ParseMessage: empty response from model")
	}

	e.log.Debug().Str("model", e.model).Str("raw", rawText).Msg("Model output received")

	// Clean up Markdown fences / extra text if the model ignored instructions.
	clean := cleanModelJSON(rawText)

	var parsed interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ParseMessage: %w: unmarshal JSON: %v", domain.ErrInvalidInput, err)
	}

	results, err := TransformModelOutput(parsed, text, today)
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: %w", err)
	}
	return results, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost array or object if there is still junk around it.
	open, closing := "[", "]"
	if strings.HasPrefix(s, "{") || (strings.Contains(s, "{") && !strings.Contains(s, "[")) {
		open, closing = "{", "}"
	}
	if start := strings.Index(s, open); start != -1 {
		if end := strings.LastIndex(s, closing); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
