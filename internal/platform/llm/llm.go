// Package llm hides the JSON-generation call of the supported model
// providers behind one interface.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

var ErrNotConfigured = errors.New("llm provider not configured")

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Response struct {
	Provider string
	Model    string
	// Object is the decoded top-level JSON object. Raw keeps the model text
	// for diagnostics when validation fails later on.
	Object  map[string]any
	Raw     string
	Usage   Usage
	CostUSD float64
}

type Client interface {
	GenerateJSON(ctx context.Context, req Request) (*Response, error)
	Provider() string
	Model() string
}

type Config struct {
	Provider    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

func ConfigFromEnv() Config {
	return Config{
		Provider:    strings.ToLower(envutil.String("LLM_PROVIDER", ProviderOpenAI)),
		Temperature: envutil.Float("LLM_TEMPERATURE", 0.1),
		MaxTokens:   envutil.Int("LLM_MAX_TOKENS", 4096),
		Timeout:     envutil.Seconds("LLM_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries:  envutil.Int("LLM_MAX_RETRIES", 2),
	}
}

// NewFromEnv builds the provider named by LLM_PROVIDER. It returns
// ErrNotConfigured when that provider's API key is absent.
func NewFromEnv(ctx context.Context, log *logger.Logger) (Client, error) {
	cfg := ConfigFromEnv()
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAI(log, cfg, OpenAIConfigFromEnv())
	case ProviderAnthropic, "claude":
		return NewAnthropic(log, cfg, envutil.String("ANTHROPIC_API_KEY", ""), envutil.String("ANTHROPIC_MODEL", "claude-sonnet-4-5"))
	case ProviderGemini, "google":
		return NewGemini(ctx, log, cfg, envutil.String("GEMINI_API_KEY", envutil.String("GOOGLE_API_KEY", "")), envutil.String("GEMINI_MODEL", "gemini-2.5-flash"))
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}

// EstimateCost applies LLM_COST_INPUT_PER_1K / LLM_COST_OUTPUT_PER_1K.
func EstimateCost(u Usage) float64 {
	in := envutil.Float("LLM_COST_INPUT_PER_1K", 0)
	out := envutil.Float("LLM_COST_OUTPUT_PER_1K", 0)
	return float64(u.InputTokens)/1000*in + float64(u.OutputTokens)/1000*out
}

// DecodeObject parses model text into a JSON object. Providers without a
// strict JSON mode sometimes wrap the payload in markdown fences or prose.
func DecodeObject(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, errors.New("empty model output")
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, nil
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func finish(provider, model string, start time.Time, raw string, usage Usage, err error) (*Response, error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cost := EstimateCost(usage)
	observability.Current().ObserveLLMRequest(provider, model, status, time.Since(start), usage.InputTokens, usage.OutputTokens, cost)
	if err != nil {
		return nil, err
	}
	obj, err := DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	return &Response{Provider: provider, Model: model, Object: obj, Raw: raw, Usage: usage, CostUSD: cost}, nil
}
