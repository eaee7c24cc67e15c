package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const anthropicVersion = "2023-06-01"

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Anthropic serves the Messages API.
type Anthropic struct {
	client   *resty.Client
	settings Settings
}

func NewAnthropic(settings Settings) *Anthropic {
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 3000
	}
	client := newRestyClient(settings.BaseURL, settings.Timeout).
		SetHeader("x-api-key", settings.APIKey).
		SetHeader("anthropic-version", anthropicVersion)
	return &Anthropic{client: client, settings: settings}
}

func (p *Anthropic) Service() Service { return ServiceAnthropic }
func (p *Anthropic) Model() string { return p.settings.Model }
func (p *Anthropic) MaxTokens() int { return p.settings.MaxTokens }

// Prompt implements ProviderInterface.
func (p *Anthropic) Prompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var result anthropicResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(anthropicRequest{
			Model:       p.settings.Model,
			System:      systemPrompt,
			Messages:    []chatMessage{{Role: "user", Content: userPrompt}},
			MaxTokens:   p.settings.MaxTokens,
			Temperature: p.settings.Temperature,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/messages")
	if err != nil {
		log.Error().Err(err).Msg("anthropic request failed")
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil {
			msg = result.Error.Message
		}
		log.Error().Int("status", resp.StatusCode()).Str("model", p.settings.Model).Msg("anthropic non-2xx")
		return "", fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode(), msg)
	}
	if result.StopReason != "" && result.StopReason != "end_turn" && result.StopReason != "stop_sequence" {
		log.Warn().Str("stop_reason", result.StopReason).Msg("model did not finish answer")
		return "", fmt.Errorf("anthropic stop reason %q: %w", result.StopReason, ErrRefused)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyCompletion)
	}
	return answer, nil
}
