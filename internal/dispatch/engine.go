package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tensorplex-labs/comchat/pkg/schnitz"
)

// Observer is notified of every finished call.
type Observer func(Outcome)

type Engine struct {
	caller      PeerCaller
	concurrency int
	callTimeout time.Duration
	observer    Observer
}

type EngineOption func(*Engine)

func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.callTimeout = d
		}
	}
}

func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

func NewEngine(caller PeerCaller, opts ...EngineOption) *Engine {
	e := &Engine{
		caller:      caller,
		concurrency: DefaultConcurrency,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch sends prompt to every peer, at most concurrency at a time, and
// returns one outcome per peer in input order. A peer that does not answer
// within the call timeout gets ErrCallTimeout even if its caller ignores
// the context.
func (e *Engine) Dispatch(ctx context.Context, target Target, prompt string, peers []PeerRecord) []Outcome {
	outcomes := make([]Outcome, len(peers))
	req := schnitz.GenerateRequest{
		Prompt:  prompt,
		Service: string(target.Service),
		Model:   target.Model,
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, peer := range peers {
		g.Go(func() error {
			outcomes[i] = e.call(ctx, peer, req)
			if e.observer != nil {
				e.observer(outcomes[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	answered := 0
	for _, o := range outcomes {
		if o.Answered() {
			answered++
		}
	}
	log.Info().
		Str("service", string(target.Service)).
		Str("model", target.Model).
		Int("peers", len(peers)).
		Int("answered", answered).
		Msg("dispatch finished")

	return outcomes
}

func (e *Engine) call(ctx context.Context, peer PeerRecord, req schnitz.GenerateRequest) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		resp, err := e.caller.Generate(callCtx, peer, req)
		done <- result{answer: resp.Answer, err: err}
	}()

	outcome := Outcome{UID: peer.UID}
	var r result
	select {
	case r = <-done:
	case <-callCtx.Done():
		select {
		case r = <-done:
		default:
			r.err = callCtx.Err()
		}
	}
	outcome.Latency = time.Since(start)

	outcome.Answer, outcome.Err = r.answer, r.err
	if outcome.Err == nil && outcome.Answer == "" {
		outcome.Err = ErrMissingAnswer
	}
	if outcome.Err != nil && errors.Is(outcome.Err, context.DeadlineExceeded) && ctx.Err() == nil {
		outcome.Err = fmt.Errorf("%w after %s: %w", ErrCallTimeout, e.callTimeout, outcome.Err)
	}

	if outcome.Err != nil {
		outcome.Answer = ""
		log.Debug().
			Err(outcome.Err).
			Int64("uid", peer.UID).
			Str("address", peer.Address()).
			Dur("latency", outcome.Latency).
			Msg("miner failed to generate an answer")
	}
	return outcome
}
