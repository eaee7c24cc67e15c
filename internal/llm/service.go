// Package llm talks to hosted language model vendors through a single
// prompt-in, text-out interface.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Service is a supported model vendor.
type Service string

const (
	ServiceOpenAI     Service = "openai"
	ServiceAnthropic  Service = "anthropic"
	ServiceOpenrouter Service = "openrouter"
	ServicePerplexity Service = "perplexity"
	ServiceMistral    Service = "mistral"
	ServiceTogetherAI Service = "togetherai"
	ServiceGroq       Service = "groq"
	ServiceGemini     Service = "gemini"
)

var (
	ErrUnsupportedService = errors.New("unsupported service")
	ErrMissingAPIKey      = errors.New("missing api key")
	ErrRefused            = errors.New("model did not complete the answer")
	ErrEmptyCompletion    = errors.New("empty completion")
)

// Services lists every supported vendor.
func Services() []Service {
	return []Service{
		ServiceOpenAI,
		ServiceAnthropic,
		ServiceOpenrouter,
		ServicePerplexity,
		ServiceMistral,
		ServiceTogetherAI,
		ServiceGroq,
		ServiceGemini,
	}
}

// ParseService maps a vendor name onto the closed Service set.
func ParseService(name string) (Service, error) {
	candidate := Service(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range Services() {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedService, name)
}

// chatCompletionsURL is the OpenAI-compatible base URL of each vendor that
// speaks that dialect.
var chatCompletionsURL = map[Service]string{
	ServiceOpenAI:     "https://api.openai.com/v1",
	ServiceOpenrouter: "https://openrouter.ai/api/v1",
	ServicePerplexity: "https://api.perplexity.ai",
	ServiceMistral:    "https://api.mistral.ai/v1",
	ServiceTogetherAI: "https://api.together.xyz/v1",
	ServiceGroq:       "https://api.groq.com/openai/v1",
	ServiceGemini:     "https://generativelanguage.googleapis.com/v1beta/openai",
}

const anthropicURL = "https://api.anthropic.com/v1"

// DefaultModel is the model used when none is configured.
var DefaultModel = map[Service]string{
	ServiceOpenAI:     "gpt-4-0613",
	ServiceAnthropic:  "claude-3-opus-20240229",
	ServiceOpenrouter: "openai/gpt-4-32k",
	ServicePerplexity: "llama-3-sonar-large-32k-online",
	ServiceMistral:    "mistral-large-2402",
	ServiceTogetherAI: "Snowflake/snowflake-arctic-instruct",
	ServiceGroq:       "llama3-70b-8192",
	ServiceGemini:     "gemini-1.5-pro-latest",
}
