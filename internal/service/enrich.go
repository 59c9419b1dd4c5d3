package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/newshub/internal/prompts"
)

// EnrichmentService generates AI text for articles via an OpenAI-compatible
// chat completion endpoint. Summary and social post are two independent
// calls; each failure is handled by the caller with a templated fallback, so
// enrichment never blocks ingestion.
type EnrichmentService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// EnrichmentConfig holds configuration for the enrichment service.
type EnrichmentConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewEnrichmentService creates a new enrichment service.
func NewEnrichmentService(cfg *EnrichmentConfig) *EnrichmentService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Bounded wait so a hung endpoint cannot stall the pipeline loop
	client.SetTimeout(timeout)

	return &EnrichmentService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// GetModel returns the model name being used.
func (s *EnrichmentService) GetModel() string {
	return s.model
}

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

// Summarize generates a short summary for an article.
func (s *EnrichmentService) Summarize(ctx context.Context, title, description string) (string, error) {
	return s.complete(ctx, prompts.SummarySystemPrompt, prompts.SummaryUserPrompt(title, description))
}

// SocialPost generates a short promotional post for an article. The link is
// not part of the generated text; the publishing step appends it.
func (s *EnrichmentService) SocialPost(ctx context.Context, title, description string) (string, error) {
	return s.complete(ctx, prompts.SocialSystemPrompt, prompts.SocialUserPrompt(title, description))
}

func (s *EnrichmentService) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: 300,
	}

	var resp chatResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", fmt.Errorf("chat API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("chat API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat API response (status: %d)", httpResp.StatusCode())
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// FallbackSummary is the deterministic summary used when generation fails.
func FallbackSummary(title string) string {
	return fmt.Sprintf("AI-generated summary for: %s", title)
}

// FallbackSocialPost is the deterministic post used when generation fails.
func FallbackSocialPost(title string) string {
	return fmt.Sprintf("Check out this news: %s #News #Breaking", title)
}
