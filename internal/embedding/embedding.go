// Package embedding turns text into vectors for similarity scoring.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/config"
)

var ErrEmptyEmbedding = errors.New("embedding response contained no vector")

type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client *resty.Client
	model  string
}

func NewOpenAIEmbedder(cfg *config.EmbeddingEnvConfig) (*OpenAIEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}

	timeout := cfg.EmbeddingTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.EmbeddingURL, "/")).
		SetAuthToken(cfg.OpenAIAPIKey).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(timeout)

	return &OpenAIEmbedder{client: client, model: cfg.EmbeddingModel}, nil
}

// Embed implements EmbedderInterface.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var result embeddingResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Input: text, Model: e.model}).
		SetResult(&result).
		SetError(&result).
		Post("/embeddings")
	if err != nil {
		log.Error().Err(err).Str("model", e.model).Msg("embedding request failed")
		return nil, fmt.Errorf("embed: %w", err)
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil {
			msg = result.Error.Message
		}
		log.Error().Int("status", resp.StatusCode()).Str("model", e.model).Msg("embedding non-2xx")
		return nil, fmt.Errorf("embedding returned status %d: %s", resp.StatusCode(), msg)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return result.Data[0].Embedding, nil
}
