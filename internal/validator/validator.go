package validator

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/chain"
	"github.com/tensorplex-labs/comchat/internal/challenge"
	"github.com/tensorplex-labs/comchat/internal/config"
	"github.com/tensorplex-labs/comchat/internal/dispatch"
	"github.com/tensorplex-labs/comchat/internal/embedding"
	"github.com/tensorplex-labs/comchat/internal/metrics"
	"github.com/tensorplex-labs/comchat/internal/scheduler"
	"github.com/tensorplex-labs/comchat/internal/scoring"
	"github.com/tensorplex-labs/comchat/pkg/signature"
)

// Validator scores the miners of one subnet in periodic rounds.
type Validator struct {
	Chain      chain.ChainInterface
	Generator  challenge.GeneratorInterface
	Embedder   embedding.EmbedderInterface
	Dispatcher Dispatcher
	Signer     signature.SignatureProvider

	Netuid          int
	Catalog         dispatch.Catalog
	Pipeline        *scoring.WeightPipeline
	Metrics         *metrics.Manager
	ValidatorConfig *config.ValidatorEnvConfig

	Ctx    context.Context
	Cancel context.CancelFunc
	Wg     sync.WaitGroup

	scorer       *scoring.Scorer
	rng          *rand.Rand
	rngMu        sync.Mutex
	roundRunning atomic.Bool
}

type ValidatorOption func(*Validator)

func WithCatalog(c dispatch.Catalog) ValidatorOption {
	return func(v *Validator) {
		v.Catalog = c
	}
}

func WithMetrics(m *metrics.Manager) ValidatorOption {
	return func(v *Validator) {
		if m != nil {
			v.Metrics = m
		}
	}
}

func WithRand(rng *rand.Rand) ValidatorOption {
	return func(v *Validator) {
		if rng != nil {
			v.rng = rng
		}
	}
}

// NewValidator wires a validator for netuid. The weight pipeline follows the
// sigmoid and cap settings of cfg.
func NewValidator(
	cfg *config.ValidatorEnvConfig,
	netuid int,
	c chain.ChainInterface,
	generator challenge.GeneratorInterface,
	embedder embedding.EmbedderInterface,
	dispatcher Dispatcher,
	signer signature.SignatureProvider,
	opts ...ValidatorOption,
) *Validator {
	ctx, cancel := context.WithCancel(context.Background())

	v := &Validator{
		Chain:      c,
		Generator:  generator,
		Embedder:   embedder,
		Dispatcher: dispatcher,
		Signer:     signer,

		Netuid:  netuid,
		Catalog: dispatch.DefaultCatalog(),
		Pipeline: scoring.NewWeightPipeline(
			scoring.WithMaxAllowedWeights(cfg.MaxAllowedWeights),
			scoring.WithThreshold(cfg.SigmoidThreshold),
			scoring.WithSteepness(cfg.SigmoidSteepness),
		),
		Metrics:         metrics.NewManager(),
		ValidatorConfig: cfg,

		Ctx:    ctx,
		Cancel: cancel,

		scorer: scoring.NewScorer(embedder),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}

	for _, opt := range opts {
		opt(v)
	}

	log.Info().Msgf("Validator hotkey %s loaded for netuid %d", signer.Address(), netuid)
	return v
}

// Start runs rounds back to back, at most one per ITERATION_INTERVAL, until
// Stop is called.
func (v *Validator) Start() {
	loop := scheduler.NewIntervalLoop(v.ValidatorConfig.IterationInterval)

	v.Wg.Add(1)
	go func() {
		defer v.Wg.Done()
		if err := loop.Run(v.Ctx, v.validationRound); err != nil && v.Ctx.Err() == nil {
			log.Error().Err(err).Msg("validation loop exited")
		}
	}()
}

// Stop cancels background routines and waits for them to finish.
func (v *Validator) Stop() {
	if v.Cancel != nil {
		v.Cancel()
	}
	v.Wg.Wait()
}

func (v *Validator) validationRound(ctx context.Context) error {
	_, err := v.RunRound(ctx)
	return err
}

func (v *Validator) pickTarget() (dispatch.Target, bool) {
	v.rngMu.Lock()
	defer v.rngMu.Unlock()
	return v.Catalog.Pick(v.rng)
}

// PeerCallObserver records dispatch outcomes in m.
func PeerCallObserver(m *metrics.Manager) dispatch.Observer {
	return func(o dispatch.Outcome) {
		m.ObservePeerCall(outcomeLabel(o), o.Latency)
	}
}
