package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/biomarker-backend/internal/pkg/httpx"
	"github.com/yungbote/biomarker-backend/internal/platform/envutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func OpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  envutil.String("OPENAI_API_KEY", ""),
		BaseURL: strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Model:   envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
	}
}

type openAIClient struct {
	log        *logger.Logger
	cfg        Config
	oc         OpenAIConfig
	httpClient *http.Client
}

func NewOpenAI(log *logger.Logger, cfg Config, oc OpenAIConfig) (Client, error) {
	if oc.APIKey == "" {
		return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", ErrNotConfigured)
	}
	timeout := envutil.Seconds("OPENAI_TIMEOUT_SECONDS", cfg.Timeout)
	cfg.MaxRetries = envutil.Int("OPENAI_MAX_RETRIES", cfg.MaxRetries)
	return &openAIClient{
		log:        log.With("client", "OpenAI"),
		cfg:        cfg,
		oc:         oc,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *openAIClient) Provider() string { return ProviderOpenAI }
func (c *openAIClient) Model() string    { return c.oc.Model }

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	Text        *responsesText   `json:"text,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type responsesText struct {
	Format map[string]any `json:"format"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r responsesResponse) outputText() (string, string) {
	var out, refusal strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal.WriteString(c.Refusal)
			}
		}
	}
	return out.String(), refusal.String()
}

func (c *openAIClient) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	if req.SchemaName == "" || req.Schema == nil {
		return nil, fmt.Errorf("schema name and schema required")
	}
	temp := c.cfg.Temperature
	body := responsesRequest{
		Model: c.oc.Model,
		Input: []responsesInput{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Text: &responsesText{Format: map[string]any{
			"type":   "json_schema",
			"name":   req.SchemaName,
			"schema": req.Schema,
			"strict": true,
		}},
		Temperature: &temp,
	}

	start := time.Now()
	var resp responsesResponse
	err := c.doWithRetry(ctx, "/v1/responses", body, &resp)
	usage := Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	text, refusal := resp.outputText()
	if err == nil && refusal != "" {
		err = fmt.Errorf("model refused: %s", refusal)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("no output_text found in response")
	}
	return finish(ProviderOpenAI, c.oc.Model, start, text, usage, err)
}

func (c *openAIClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oc.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.oc.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *openAIClient) doWithRetry(ctx context.Context, path string, body any, out any) error {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying", "path", path, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if sErr := httpx.SleepCtx(ctx, sleepFor); sErr != nil {
			return sErr
		}
		backoff *= 2
	}
}
