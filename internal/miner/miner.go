package miner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/llm"
	"github.com/tensorplex-labs/comchat/pkg/schnitz"
)

// LLMProviderFactory builds providers from the vendor credentials in cfg.
func LLMProviderFactory(cfg *config.LLMEnvConfig) ProviderFactory {
	return func(service llm.Service, model string) (llm.ProviderInterface, error) {
		return llm.NewProvider(service, model, cfg)
	}
}

func NewMiner(cfg *config.MinerEnvConfig, server *schnitz.Server, factory ProviderFactory) *Miner {
	// lru.New only fails on a non-positive size.
	providers, _ := lru.New[providerKey, llm.ProviderInterface](providerCacheSize)
	m := &Miner{
		server:    server,
		config:    cfg,
		factory:   factory,
		providers: providers,
	}

	schnitz.ServeRoute(server, schnitz.MethodGenerate, m.handleGenerate)
	schnitz.ServeRoute(server, schnitz.MethodGetModel, m.handleGetModel)
	return m
}

// Run serves until ctx is cancelled, then shuts the server down.
func (m *Miner) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.server.Start()
	}()
	log.Info().Str("address", m.server.Addr()).Msg("miner server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown miner server: %w", err)
	}
	log.Info().Msg("miner stopped")
	return nil
}

func (m *Miner) provider(service llm.Service, model string) (llm.ProviderInterface, error) {
	key := providerKey{service: service, model: model}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers.Get(key); ok {
		return p, nil
	}
	p, err := m.factory(service, model)
	if err != nil {
		return nil, err
	}
	m.providers.Add(key, p)
	return p, nil
}

func (m *Miner) handleGenerate(c *fiber.Ctx, req schnitz.GenerateRequest) (schnitz.GenerateResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return schnitz.GenerateResponse{}, fiber.NewError(fiber.StatusBadRequest, "prompt cannot be empty")
	}
	service, err := llm.ParseService(req.Service)
	if err != nil {
		return schnitz.GenerateResponse{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	provider, err := m.provider(service, req.Model)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return schnitz.GenerateResponse{}, fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return schnitz.GenerateResponse{}, err
	}

	caller := "unknown"
	if auth, ok := schnitz.GetAuth(c); ok {
		caller = auth.Hotkey
	}
	log.Info().
		Str("caller", caller).
		Str("service", string(service)).
		Str("model", provider.Model()).
		Int("prompt_len", len(req.Prompt)).
		Msg("Generating answer")

	answer, err := provider.Prompt(c.UserContext(), minerSystemPrompt, req.Prompt)
	if err != nil {
		if errors.Is(err, llm.ErrRefused) {
			return schnitz.GenerateResponse{}, fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return schnitz.GenerateResponse{}, fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return schnitz.GenerateResponse{Answer: answer}, nil
}

func (m *Miner) handleGetModel(_ *fiber.Ctx, _ schnitz.ModelRequest) (schnitz.ModelResponse, error) {
	service, err := llm.ParseService(m.config.Service)
	if err != nil {
		return schnitz.ModelResponse{}, err
	}
	model := m.config.Model
	if model == "" {
		model = llm.DefaultModel[service]
	}
	return schnitz.ModelResponse{Service: string(service), Model: model}, nil
}
