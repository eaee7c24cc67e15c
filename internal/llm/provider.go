package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/tensorplex-labs/comchat/internal/config"
)

type ProviderInterface interface {
	// Prompt returns the model's answer to userPrompt under systemPrompt.
	Prompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Service() Service
	Model() string
	MaxTokens() int
}

// Settings configures a single provider instance.
type Settings struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
}

// apiKey picks the credential of service from cfg.
func apiKey(service Service, cfg *config.LLMEnvConfig) string {
	switch service {
	case ServiceOpenAI:
		return cfg.OpenAIAPIKey
	case ServiceAnthropic:
		return cfg.AnthropicAPIKey
	case ServiceOpenrouter:
		return cfg.OpenrouterAPIKey
	case ServicePerplexity:
		return cfg.PerplexityAPIKey
	case ServiceMistral:
		return cfg.MistralAPIKey
	case ServiceTogetherAI:
		return cfg.TogetherAIAPIKey
	case ServiceGroq:
		return cfg.GroqAPIKey
	case ServiceGemini:
		return cfg.GeminiAPIKey
	}
	return ""
}

// NewProvider builds the provider for service. An empty model selects the
// service default.
func NewProvider(service Service, model string, cfg *config.LLMEnvConfig) (ProviderInterface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm configuration cannot be nil")
	}
	service, err := ParseService(string(service))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel[service]
	}

	settings := Settings{
		APIKey:      apiKey(service, cfg),
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.LLMTimeout,
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, service)
	}

	if service == ServiceAnthropic {
		settings.BaseURL = anthropicURL
		return NewAnthropic(settings), nil
	}
	settings.BaseURL = chatCompletionsURL[service]
	return NewChatCompletions(service, settings), nil
}
