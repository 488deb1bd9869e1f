package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type anthropicClient struct {
	log    *logger.Logger
	cfg    Config
	model  string
	client anthropic.Client
}

func NewAnthropic(log *logger.Logger, cfg Config, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing ANTHROPIC_API_KEY", ErrNotConfigured)
	}
	return &anthropicClient{
		log:   log.With("client", "Anthropic"),
		cfg:   cfg,
		model: model,
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(cfg.MaxRetries),
			option.WithRequestTimeout(cfg.Timeout),
		),
	}, nil
}

func (c *anthropicClient) Provider() string { return ProviderAnthropic }
func (c *anthropicClient) Model() string    { return c.model }

// GenerateJSON has no native schema mode here, so the schema is appended to
// the system prompt and the caller validates the result.
func (c *anthropicClient) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	schemaJSON, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	system := req.System + "\n\nRespond with a single JSON object matching this JSON Schema and nothing else:\n" + string(schemaJSON)

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Temperature: anthropic.Float(c.cfg.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		return finish(ProviderAnthropic, c.model, start, "", Usage{}, fmt.Errorf("anthropic messages: %w", err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	usage := Usage{InputTokens: int(resp.Usage.InputTokens), OutputTokens: int(resp.Usage.OutputTokens)}
	if text.Len() == 0 {
		err = fmt.Errorf("no text content in anthropic response")
	}
	return finish(ProviderAnthropic, c.model, start, text.String(), usage, err)
}
