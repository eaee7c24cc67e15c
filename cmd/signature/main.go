package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/utils/logger"
	"github.com/tensorplex-labs/comchat/pkg/signature"
)

var (
	keyName = flag.String("key-name", "", "name of the key to sign with")
	keyDir  = flag.String("key-dir", signature.DefaultKeyDir, "directory holding key files")
	message = flag.String("message", "Hello, world!", "message to sign or verify")
	sig     = flag.String("signature", "", "verify this signature instead of signing")
	address = flag.String("address", "", "SS58 address the signature is checked against")
)

func main() {
	logger.Init()

	if *sig != "" {
		ok, err := signature.Verify(*message, *sig, *address)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to verify signature")
		}
		log.Info().Bool("valid", ok).Str("address", *address).Msg("Signature checked")
		return
	}

	if *keyName == "" {
		log.Fatal().Msg("--key-name is required to sign")
	}
	keypair, err := signature.LoadKeypairByName(*keyDir, *keyName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load key")
	}
	provider, err := signature.NewProvider(keypair)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create signature provider")
	}

	signed, err := provider.Sign(*message)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign message")
	}
	log.Info().Str("address", provider.Address()).Str("signature", signed).Msg("Signed message")

	ok, err := signature.Verify(*message, signed, provider.Address())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to verify signature")
	}
	log.Info().Bool("valid", ok).Msg("Round trip verified")
}
