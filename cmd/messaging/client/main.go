// Command client sends a single signed request to a miner, for checking that
// a registered miner is reachable and answering.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/utils/logger"
	"github.com/tensorplex-labs/comchat/pkg/schnitz"
	"github.com/tensorplex-labs/comchat/pkg/signature"
)

var (
	keyName = flag.String("key-name", "", "name of the key to sign requests with")
	keyDir  = flag.String("key-dir", signature.DefaultKeyDir, "directory holding key files")
	address = flag.String("address", "127.0.0.1:8000", "miner ip:port")
	peerKey = flag.String("peer-key", "", "SS58 key of the miner")
	prompt  = flag.String("prompt", "", "prompt to send; get_model is called when empty")
	service = flag.String("service", "openai", "service the miner should answer with")
	model   = flag.String("model", "", "model the miner should answer with")
	timeout = flag.Duration("timeout", schnitz.DefaultClientTimeout, "call timeout")
)

func main() {
	logger.Init()

	if *keyName == "" || *peerKey == "" {
		log.Fatal().Msg("--key-name and --peer-key are required")
	}

	keypair, err := signature.LoadKeypairByName(*keyDir, *keyName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load key")
	}
	signer, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}

	client, err := schnitz.NewClient(&schnitz.ClientConfig{Timeout: *timeout, ZstdCompression: true}, signer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if *prompt == "" {
		resp, err := schnitz.Call[schnitz.ModelRequest, schnitz.ModelResponse](
			ctx, client, *address, *peerKey, schnitz.MethodGetModel, schnitz.ModelRequest{})
		if err != nil {
			log.Fatal().Err(err).Msg("get_model failed")
		}
		log.Info().Str("service", resp.Service).Str("model", resp.Model).Dur("latency", time.Since(start)).Msg("Miner model")
		return
	}

	resp, err := schnitz.Call[schnitz.GenerateRequest, schnitz.GenerateResponse](
		ctx, client, *address, *peerKey, schnitz.MethodGenerate,
		schnitz.GenerateRequest{Prompt: *prompt, Service: *service, Model: *model})
	if err != nil {
		log.Fatal().Err(err).Msg("generate failed")
	}
	log.Info().Dur("latency", time.Since(start)).Int("answer_len", len(resp.Answer)).Msg("Miner answered")
	log.Info().Msg(resp.Answer)
}
