package signature

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return filepath.Join(usr.HomeDir, path[2:]), nil
}

// KeyPath returns the key file path for a named key inside dir.
func KeyPath(dir, name string) (string, error) {
	if dir == "" {
		dir = DefaultKeyDir
	}
	dir, err := expandHome(dir)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return filepath.Join(dir, name), nil
}

// LoadKeypairByName loads the key called name from dir.
func LoadKeypairByName(dir, name string) (*sr25519.Keypair, error) {
	path, err := KeyPath(dir, name)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("key_name", name).Msg("Loading keypair")
	return LoadKeypair(path)
}

// LoadKeypair reads a key file and rebuilds its sr25519 keypair from the
// mnemonic, falling back to the hex seed.
func LoadKeypair(path string) (*sr25519.Keypair, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read key file")
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	kf, err := parseKeyFile(data)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse key file")
		return nil, err
	}

	keypair, err := kf.keypair()
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", path, err)
	}

	if kf.SS58Address != "" && kf.SS58Address != Ss58Address(keypair) {
		log.Warn().
			Str("path", path).
			Str("expected", kf.SS58Address).
			Str("derived", Ss58Address(keypair)).
			Msg("Derived address does not match key file")
	}

	return keypair, nil
}

func parseKeyFile(data []byte) (keyFile, error) {
	var kf keyFile
	if err := sonic.Unmarshal(data, &kf); err != nil {
		return keyFile{}, fmt.Errorf("failed to parse key JSON: %w", err)
	}
	if kf.Data == "" {
		return kf, nil
	}

	var inner keyFile
	if err := sonic.UnmarshalString(kf.Data, &inner); err != nil {
		return keyFile{}, fmt.Errorf("failed to parse wrapped key JSON: %w", err)
	}
	return inner, nil
}

func (kf keyFile) keypair() (*sr25519.Keypair, error) {
	phrase := kf.Mnemonic
	if phrase == "" {
		phrase = kf.SecretPhrase
	}
	if phrase != "" {
		keypair, err := sr25519.NewKeypairFromMnenomic(phrase, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create keypair from mnemonic: %w", err)
		}
		return keypair, nil
	}

	if kf.SeedHex != "" {
		seed, err := hex.DecodeString(strings.TrimPrefix(kf.SeedHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to decode seed hex: %w", err)
		}
		keypair, err := sr25519.NewKeypairFromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to create keypair from seed: %w", err)
		}
		return keypair, nil
	}

	return nil, fmt.Errorf("key file has neither mnemonic nor seed_hex")
}
