package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/miner"
	chainutils "github.com/tensorplex-labs/comchat/internal/utils/chain_utils"
	"github.com/tensorplex-labs/comchat/internal/utils/logger"
	"github.com/tensorplex-labs/comchat/pkg/schnitz"
	"github.com/tensorplex-labs/comchat/pkg/signature"
)

func main() {
	logger.Init()
	defer logger.Sync()
	log.Info().Msg("Starting miner...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}
	if err := cfg.WalletEnvConfig.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid wallet configuration")
	}

	keypair, err := signature.LoadKeypairByName(cfg.KeyDir, cfg.KeyName)
	if err != nil {
		log.Fatal().Err(err).Str("key", cfg.KeyName).Msg("failed to load miner key")
	}
	selfKey := signature.Ss58Address(keypair)

	lookupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if ip, err := chainutils.GetExternalIP(lookupCtx); err != nil {
		log.Warn().Err(err).Msg("failed to determine external IP")
	} else {
		log.Info().Msgf("Register this miner with address %s:%d", ip, cfg.MinerEnvConfig.Port)
	}
	cancel()

	server := schnitz.NewServer(&schnitz.ServerConfig{
		Host:          cfg.MinerEnvConfig.Address,
		Port:          cfg.MinerEnvConfig.Port,
		BodyLimit:     cfg.BodySizeLimit,
		SelfKey:       selfKey,
		MaxMessageAge: cfg.CallTimeout,
	}, signature.NewVerifier())

	m := miner.NewMiner(&cfg.MinerEnvConfig, server, miner.LLMProviderFactory(&cfg.LLMEnvConfig))

	log.Info().Str("key", selfKey).Msg("Miner is running. Press Ctrl+C to shutdown...")
	if err := m.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("miner server failed")
	}
	log.Info().Msg("Miner shutdown complete")
}
