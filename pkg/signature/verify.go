package signature

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/rs/zerolog/log"
	"github.com/vedhavyas/go-subkey"
)

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify implements the SignatureVerifier interface
func (v *Verifier) Verify(message, signature, ss58Address string) (bool, error) {
	return Verify(message, signature, ss58Address)
}

// Verify checks a 0x-prefixed hex sr25519 signature of message against the
// key behind ss58Address.
func Verify(message, signature, ss58Address string) (bool, error) {
	sigBytes, err := decodeSignature(signature)
	if err != nil {
		log.Debug().Err(err).Str("address", ss58Address).Msg("Rejecting malformed signature")
		return false, err
	}

	publicKey, err := publicKeyFromAddress(ss58Address)
	if err != nil {
		log.Debug().Err(err).Str("address", ss58Address).Msg("Rejecting unknown address")
		return false, err
	}

	return publicKey.Verify([]byte(message), sigBytes)
}

func decodeSignature(signature string) ([]byte, error) {
	if !strings.HasPrefix(signature, "0x") {
		return nil, fmt.Errorf("signature does not start with '0x'")
	}
	sigBytes, err := hex.DecodeString(signature[2:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature hex: %w", err)
	}
	if len(sigBytes) != signatureLength {
		return nil, fmt.Errorf("invalid signature length: expected %d bytes, got %d", signatureLength, len(sigBytes))
	}
	return sigBytes, nil
}

func publicKeyFromAddress(ss58Address string) (*sr25519.PublicKey, error) {
	_, pubKeyBytes, err := subkey.SS58Decode(ss58Address)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SS58 address: %w", err)
	}
	publicKey, err := sr25519.NewPublicKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create public key: %w", err)
	}
	return publicKey, nil
}
