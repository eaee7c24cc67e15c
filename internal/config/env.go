// Package config defines environment configuration structs and loaders.
package config

import (
	"strings"
	"time"
)

type AppConfig struct {
	ChainEnvConfig
	WalletEnvConfig
	ValidatorEnvConfig
	EmbeddingEnvConfig
	LLMEnvConfig
	MinerEnvConfig
}

// ChainEnvConfig holds chain gateway values.
type ChainEnvConfig struct {
	ChainURL        string        `env:"CHAIN_URL, default=http://127.0.0.1:3000"`
	TestnetChainURL string        `env:"TESTNET_CHAIN_URL, default=http://127.0.0.1:3001"`
	UseTestnet      bool          `env:"USE_TESTNET, default=false"`
	SubnetName      string        `env:"SUBNET_NAME, default=comchat"`
	Netuid          int           `env:"NETUID, default=-1"`
	ChainTimeout    time.Duration `env:"CHAIN_TIMEOUT, default=15s"`
}

// NodeURL returns the gateway URL for the selected network.
func (c ChainEnvConfig) NodeURL() string {
	if c.UseTestnet {
		return c.TestnetChainURL
	}
	return c.ChainURL
}

// HasNetuid reports whether NETUID overrides the subnet name lookup.
func (c ChainEnvConfig) HasNetuid() bool {
	return c.Netuid >= 0
}

// WalletEnvConfig holds key configuration.
type WalletEnvConfig struct {
	KeyName string `env:"KEY_NAME"`
	KeyDir  string `env:"KEY_DIR, default=~/.commune/key"`
}

// ValidatorEnvConfig configures validator runtime.
type ValidatorEnvConfig struct {
	Environment          string        `env:"ENVIRONMENT, default=prod"`
	CallTimeout          time.Duration `env:"CALL_TIMEOUT, default=65s"`
	IterationInterval    time.Duration `env:"ITERATION_INTERVAL, default=60s"`
	MaxAllowedWeights    int           `env:"MAX_ALLOWED_WEIGHTS, default=420"`
	DispatchConcurrency  int           `env:"DISPATCH_CONCURRENCY, default=8"`
	SigmoidThreshold     float64       `env:"SIGMOID_THRESHOLD, default=0.7"`
	SigmoidSteepness     float64       `env:"SIGMOID_STEEPNESS, default=25"`
	ChallengeProvider    string        `env:"CHALLENGE_PROVIDER, default=anthropic"`
	ChallengeModel       string        `env:"VALIDATOR_MODEL"`
	ChallengeAttempts    int           `env:"CHALLENGE_ATTEMPTS, default=4"`
	ChallengeTemperature float64       `env:"CHALLENGE_TEMPERATURE, default=0.5"`
	ChallengeMaxTokens   int           `env:"CHALLENGE_MAX_TOKENS, default=3000"`
	MetricsAddress       string        `env:"METRICS_ADDRESS"`
	RoundReportPath      string        `env:"ROUND_REPORT_PATH"`
}

// Provider returns the normalized challenge provider name.
func (c ValidatorEnvConfig) Provider() string {
	return strings.ToLower(strings.TrimSpace(c.ChallengeProvider))
}

// EmbeddingEnvConfig configures the embedding backend used for scoring.
type EmbeddingEnvConfig struct {
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	EmbeddingURL       string        `env:"EMBEDDING_URL, default=https://api.openai.com/v1"`
	EmbeddingModel     string        `env:"EMBEDDING_MODEL, default=text-embedding-3-small"`
	EmbeddingCacheSize int           `env:"EMBEDDING_CACHE_SIZE, default=1024"`
	EmbeddingTimeout   time.Duration `env:"EMBEDDING_TIMEOUT, default=30s"`
}

// LLMEnvConfig holds vendor credentials and generation defaults.
type LLMEnvConfig struct {
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	OpenrouterAPIKey string        `env:"OPENROUTER_API_KEY"`
	PerplexityAPIKey string        `env:"PERPLEXITY_API_KEY"`
	MistralAPIKey    string        `env:"MISTRAL_API_KEY"`
	TogetherAIAPIKey string        `env:"TOGETHERAI_API_KEY"`
	GroqAPIKey       string        `env:"GROQ_API_KEY"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT, default=120s"`
	MaxTokens        int           `env:"LLM_MAX_TOKENS, default=3000"`
	Temperature      float64       `env:"LLM_TEMPERATURE, default=0.5"`
}

// MinerEnvConfig configures the miner server.
type MinerEnvConfig struct {
	Address       string `env:"AXON_IP, default=0.0.0.0"`
	Port          int    `env:"AXON_PORT, default=8000"`
	BodySizeLimit int    `env:"SERVER_BODY_LIMIT, default=4194304"`
	// Service and Model are advertised through get_model.
	Service string `env:"MINER_SERVICE, default=openai"`
	Model   string `env:"MINER_MODEL"`
}
