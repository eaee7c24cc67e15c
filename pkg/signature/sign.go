package signature

import (
	"encoding/hex"
	"fmt"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/rs/zerolog/log"
	"github.com/vedhavyas/go-subkey"
)

// NewProvider creates a signature provider for keypair.
func NewProvider(keypair *sr25519.Keypair) (*Provider, error) {
	if keypair == nil {
		return nil, fmt.Errorf("keypair cannot be nil")
	}
	return &Provider{
		keypair: keypair,
		address: Ss58Address(keypair),
	}, nil
}

// Sign implements the SignatureProvider interface
func (p *Provider) Sign(message string) (string, error) {
	if p.keypair == nil {
		return "", fmt.Errorf("private key not initialized")
	}

	sig, err := p.keypair.Sign([]byte(message))
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign message")
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	return "0x" + hex.EncodeToString(sig), nil
}

// Address implements the SignatureProvider interface
func (p *Provider) Address() string {
	return p.address
}

// Ss58Address encodes the public half of keypair for the substrate network.
func Ss58Address(keypair *sr25519.Keypair) string {
	return subkey.SS58Encode(keypair.Public().Encode(), SubstrateNetworkId)
}
