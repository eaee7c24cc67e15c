// Package signature signs and verifies messages with sr25519 keys addressed
// by SS58 strings.
package signature

import "github.com/ChainSafe/gossamer/lib/crypto/sr25519"

const (
	SubstrateNetworkId = 42

	DefaultKeyDir = "~/.commune/key"

	signatureLength = 64
)

type SignatureVerifier interface {
	// Verify checks if the provided signature is valid for the given message and SS58 address.
	Verify(message, signature, ss58Address string) (bool, error)
}

type SignatureProvider interface {
	// Sign returns a 0x-prefixed hex signature of message.
	Sign(message string) (string, error)
	// Address returns the SS58 address of the signing key.
	Address() string
}

// Verifier is a concrete implementation of SignatureVerifier
type Verifier struct{}

// Provider is a concrete implementation of SignatureProvider
type Provider struct {
	keypair *sr25519.Keypair
	address string
}

// keyFile is the on-disk key layout. Commune wraps the key JSON as a string
// under "data"; bare files carry the fields at the top level.
type keyFile struct {
	Data         string `json:"data"`
	Mnemonic     string `json:"mnemonic"`
	SecretPhrase string `json:"secretPhrase"`
	SeedHex      string `json:"seed_hex"`
	SS58Address  string `json:"ss58_address"`
}
