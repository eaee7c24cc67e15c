package miner

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/llm"
	"github.com/tensorplex-labs/comchat/pkg/schnitz"
)

// ProviderFactory builds the model client for a service/model pair.
type ProviderFactory func(service llm.Service, model string) (llm.ProviderInterface, error)

type Miner struct {
	server    *schnitz.Server
	config    *config.MinerEnvConfig
	factory   ProviderFactory
	providers *lru.Cache[providerKey, llm.ProviderInterface]
	mu        sync.Mutex
}

type providerKey struct {
	service llm.Service
	model   string
}

const shutdownTimeout = 10 * time.Second

// providerCacheSize bounds the providers kept alive across requests. The
// model name is caller controlled.
const providerCacheSize = 64

// minerSystemPrompt is sent alongside every validator prompt.
const minerSystemPrompt = "You are a helpful assistant. Answer the user's request directly and completely."
