// Package validator runs validation rounds: it challenges every reachable
// miner with the same generated question, scores the answers against a
// reference and submits the resulting weights on chain.
package validator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tensorplex-labs/comchat/internal/challenge"
	"github.com/tensorplex-labs/comchat/internal/dispatch"
	"github.com/tensorplex-labs/comchat/internal/scoring"
)

// Dispatcher fans a prompt out to peers. *dispatch.Engine implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, target dispatch.Target, prompt string, peers []dispatch.PeerRecord) []dispatch.Outcome
}

// RoundResult describes one finished validation round.
type RoundResult struct {
	ID        uuid.UUID
	StartedAt time.Time
	Duration  time.Duration

	Challenge challenge.Challenge
	Target    dispatch.Target
	Peers     []dispatch.PeerRecord
	Outcomes  []dispatch.Outcome

	// Scores holds one entry per peer whose answer could be scored.
	Scores  map[int64]float64
	Weights []scoring.WeightEntry

	Voted  bool
	TxHash string
}
