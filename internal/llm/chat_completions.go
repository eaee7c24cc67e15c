package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		FinishReason string      `json:"finish_reason"`
		Message      chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletions serves every vendor exposing the OpenAI chat completions
// dialect.
type ChatCompletions struct {
	client   *resty.Client
	service  Service
	settings Settings
}

func NewChatCompletions(service Service, settings Settings) *ChatCompletions {
	client := newRestyClient(settings.BaseURL, settings.Timeout).
		SetAuthToken(settings.APIKey)
	return &ChatCompletions{client: client, service: service, settings: settings}
}

func (p *ChatCompletions) Service() Service { return p.service }
func (p *ChatCompletions) Model() string { return p.settings.Model }
func (p *ChatCompletions) MaxTokens() int { return p.settings.MaxTokens }

// Prompt implements ProviderInterface. Answers cut short by anything but a
// natural stop are reported as ErrRefused.
func (p *ChatCompletions) Prompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	var result chatCompletionResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model:       p.settings.Model,
			Messages:    messages,
			MaxTokens:   p.settings.MaxTokens,
			Temperature: p.settings.Temperature,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		log.Error().Err(err).Str("service", string(p.service)).Msg("chat completion request failed")
		return "", fmt.Errorf("%s chat completion: %w", p.service, err)
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil {
			msg = result.Error.Message
		}
		log.Error().
			Int("status", resp.StatusCode()).
			Str("service", string(p.service)).
			Str("model", p.settings.Model).
			Msg("chat completion non-2xx")
		return "", fmt.Errorf("%s returned status %d: %s", p.service, resp.StatusCode(), msg)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.service, ErrEmptyCompletion)
	}

	choice := result.Choices[0]
	if choice.FinishReason != "" && choice.FinishReason != "stop" {
		log.Warn().
			Str("service", string(p.service)).
			Str("finish_reason", choice.FinishReason).
			Msg("model did not finish answer")
		return "", fmt.Errorf("%s finish reason %q: %w", p.service, choice.FinishReason, ErrRefused)
	}

	answer := strings.TrimSpace(choice.Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%s: %w", p.service, ErrEmptyCompletion)
	}
	return answer, nil
}
