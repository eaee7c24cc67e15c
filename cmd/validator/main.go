package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/chain"
	"github.com/tensorplex-labs/comchat/internal/challenge"
	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/dispatch"
	"github.com/tensorplex-labs/comchat/internal/embedding"
	"github.com/tensorplex-labs/comchat/internal/llm"
	"github.com/tensorplex-labs/comchat/internal/metrics"
	"github.com/tensorplex-labs/comchat/internal/utils/logger"
	"github.com/tensorplex-labs/comchat/internal/validator"
	"github.com/tensorplex-labs/comchat/pkg/schnitz"
	"github.com/tensorplex-labs/comchat/pkg/signature"
)

func main() {
	logger.Init()
	defer logger.Sync()
	log.Info().Msg("Starting validator...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}
	if err := cfg.ValidatorEnvConfig.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid validator configuration")
	}
	if err := cfg.WalletEnvConfig.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid wallet configuration")
	}

	keypair, err := signature.LoadKeypairByName(cfg.KeyDir, cfg.KeyName)
	if err != nil {
		log.Fatal().Err(err).Str("key", cfg.KeyName).Msg("failed to load validator key")
	}
	signer, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init signature provider")
	}

	c, err := chain.NewChain(&cfg.ChainEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init chain client")
	}

	netuid := cfg.Netuid
	if !cfg.HasNetuid() {
		netuid, err = chain.ResolveNetuid(ctx, c, cfg.SubnetName)
		if err != nil {
			log.Fatal().Err(err).Str("subnet", cfg.SubnetName).Msg("failed to resolve subnet netuid")
		}
	}
	log.Info().Int("netuid", netuid).Str("node", cfg.NodeURL()).Msg("Using subnet")

	challengeLLM := cfg.LLMEnvConfig
	challengeLLM.MaxTokens = cfg.ChallengeMaxTokens
	challengeLLM.Temperature = cfg.ChallengeTemperature
	provider, err := llm.NewProvider(llm.Service(cfg.Provider()), cfg.ChallengeModel, &challengeLLM)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider()).Msg("failed to init challenge provider")
	}

	openai, err := embedding.NewOpenAIEmbedder(&cfg.EmbeddingEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init embedder")
	}
	embedder, err := embedding.NewCachedEmbedder(openai, cfg.EmbeddingCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init embedding cache")
	}

	client, err := schnitz.NewClient(&schnitz.ClientConfig{
		Timeout:         cfg.CallTimeout,
		ZstdCompression: true,
	}, signer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init schnitz client")
	}
	defer client.Close()

	m := metrics.NewManager()
	m.TrackCacheSize(embedder.Len)

	engine := dispatch.NewEngine(
		dispatch.SchnitzCaller{Client: client},
		dispatch.WithConcurrency(cfg.DispatchConcurrency),
		dispatch.WithCallTimeout(cfg.CallTimeout),
		dispatch.WithObserver(validator.PeerCallObserver(m)),
	)

	v := validator.NewValidator(
		&cfg.ValidatorEnvConfig,
		netuid,
		c,
		challenge.NewGenerator(provider, nil),
		embedder,
		engine,
		signer,
		validator.WithMetrics(m),
	)

	if cfg.MetricsAddress != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddress); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	v.Start()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping validator")
	v.Stop()
	log.Info().Msg("validator stopped")
}
