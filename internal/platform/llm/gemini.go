package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type geminiClient struct {
	log    *logger.Logger
	cfg    Config
	model  string
	client *genai.Client
}

func NewGemini(ctx context.Context, log *logger.Logger, cfg Config, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing GEMINI_API_KEY", ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &geminiClient{log: log.With("client", "Gemini"), cfg: cfg, model: model, client: client}, nil
}

func (c *geminiClient) Provider() string { return ProviderGemini }
func (c *geminiClient) Model() string    { return c.model }

func (c *geminiClient) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	system := req.System + "\n\nThe response must match this JSON Schema:\n" + string(schemaJSON)
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(c.cfg.Temperature)),
		MaxOutputTokens:   int32(c.cfg.MaxTokens),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	start := time.Now()
	var resp *genai.GenerateContentResponse
	backoff := time.Second
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		resp, err = c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
			genai.NewContentFromText(req.User, genai.RoleUser),
		}, config)
		if err == nil || attempt == c.cfg.MaxRetries {
			break
		}
		c.log.Warn("Gemini request retrying", "attempt", attempt+1, "error", err.Error())
		select {
		case <-ctx.Done():
			return finish(ProviderGemini, c.model, start, "", Usage{}, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return finish(ProviderGemini, c.model, start, "", Usage{}, fmt.Errorf("gemini generate: %w", err))
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	text := resp.Text()
	if text == "" {
		err = fmt.Errorf("no text in gemini response")
	}
	return finish(ProviderGemini, c.model, start, text, usage, err)
}
