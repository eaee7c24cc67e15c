package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/chain"
	"github.com/tensorplex-labs/comchat/internal/dispatch"
	"github.com/tensorplex-labs/comchat/internal/metrics"
	"github.com/tensorplex-labs/comchat/internal/scoring"
	"github.com/tensorplex-labs/comchat/internal/utils/retry"
)

// RunRound performs one validation round and votes at most once. A round in
// which no miner gave a scorable answer ends without a vote and without an
// error.
func (v *Validator) RunRound(ctx context.Context) (result RoundResult, err error) {
	if !v.roundRunning.CompareAndSwap(false, true) {
		return RoundResult{}, ErrRoundInProgress
	}
	defer v.roundRunning.Store(false)

	result = RoundResult{ID: uuid.New(), StartedAt: time.Now()}
	logger := log.With().Str("round_id", result.ID.String()).Logger()

	defer func() {
		result.Duration = time.Since(result.StartedAt)
		v.finishRound(logger, result, err)
	}()

	keys, err := v.Chain.QueryMapKey(ctx, v.Netuid)
	if err != nil {
		return result, err
	}
	if !isRegistered(keys, v.Signer.Address()) {
		return result, fmt.Errorf("%w: %s on netuid %d", ErrValidatorNotRegistered, v.Signer.Address(), v.Netuid)
	}

	generate := retry.WrapContext(retry.New(v.ValidatorConfig.ChallengeAttempts, retry.Any), v.Generator.Generate)
	ch, err := generate(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrChallengeFailed, err)
	}
	result.Challenge = ch
	logger.Info().
		Str("subject", ch.Subject).
		Str("criteria", ch.Criteria.String()).
		Int("reference_len", len(ch.ReferenceAnswer)).
		Msg("Generated challenge")

	reference, err := v.Embedder.Embed(ctx, ch.ReferenceAnswer)
	if err != nil {
		return result, fmt.Errorf("embed reference answer: %w", err)
	}

	addresses, err := v.Chain.QueryMapAddress(ctx, v.Netuid)
	if err != nil {
		return result, err
	}
	result.Peers = ResolvePeers(addresses, keys)
	v.Metrics.SetPeersResolved(len(result.Peers))

	target, ok := v.pickTarget()
	if !ok {
		return result, errors.New("model catalog is empty")
	}
	result.Target = target

	uids := make([]int64, len(result.Peers))
	for i, p := range result.Peers {
		uids[i] = p.UID
	}
	logger.Info().
		Ints64("uids", uids).
		Str("service", string(target.Service)).
		Str("model", target.Model).
		Msg("Selected the following miners")

	result.Outcomes = v.Dispatcher.Dispatch(ctx, target, ch.MinerPrompt(), result.Peers)

	result.Scores, err = v.scoreOutcomes(ctx, logger, result.Outcomes, reference)
	if err != nil {
		return result, err
	}
	if len(result.Scores) == 0 {
		logger.Info().Msg("No miner managed to give a valid answer")
		return result, nil
	}

	result.Weights = v.Pipeline.Process(result.Scores)
	if len(result.Weights) == 0 {
		logger.Info().Msg("No score survived weight shaping, skipping vote")
		return result, nil
	}

	result.TxHash, err = v.vote(ctx, result.Weights)
	if err != nil {
		return result, err
	}
	result.Voted = true
	return result, nil
}

// scoreOutcomes scores every answered outcome. Peers whose answer cannot be
// embedded are left out of the round.
func (v *Validator) scoreOutcomes(
	ctx context.Context,
	logger zerolog.Logger,
	outcomes []dispatch.Outcome,
	reference []float64,
) (map[int64]float64, error) {
	scores := make(map[int64]float64, len(outcomes))
	tracker := scoring.NewAnswerTracker()

	for _, o := range outcomes {
		if !o.Answered() {
			logger.Debug().Err(o.Err).Int64("uid", o.UID).Msg("Skipping miner that didn't answer")
			continue
		}

		report, err := v.scorer.Report(ctx, o.Answer, reference)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Int64("uid", o.UID).Msg("Skipping miner whose answer could not be scored")
			continue
		}

		if match, ok := tracker.Observe(o.UID, o.Answer); ok {
			logger.Debug().
				Int64("uid", o.UID).
				Int64("closest_uid", match.UID).
				Int("similarity", match.Ratio).
				Msg("Answer similarity")
		}

		if report.Score > 1 {
			return nil, fmt.Errorf("score %v of uid %d exceeds 1", report.Score, o.UID)
		}
		scores[o.UID] = report.Score
		v.Metrics.ObserveScore(report.Score)

		logger.Debug().
			Int64("uid", o.UID).
			Float64("score", report.Score).
			Float64("distance", report.Distance).
			Float64("cosine", report.CosineSimilarity).
			Msg("Scored answer")
	}
	return scores, nil
}

func (v *Validator) vote(ctx context.Context, weights []scoring.WeightEntry) (string, error) {
	uids := make([]int64, len(weights))
	values := make([]int64, len(weights))
	for i, w := range weights {
		uids[i] = w.UID
		values[i] = w.Weight
	}

	message := chain.VoteMessage(v.Netuid, uids, values)
	sig, err := v.Signer.Sign(message)
	if err != nil {
		return "", fmt.Errorf("%w: sign vote: %w", ErrVoteFailed, err)
	}

	resp, err := v.Chain.Vote(ctx, chain.VoteParams{
		Netuid:    v.Netuid,
		Uids:      uids,
		Weights:   values,
		Key:       v.Signer.Address(),
		Message:   message,
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrVoteFailed, err)
	}

	log.Info().
		Int("netuid", v.Netuid).
		Int("count", len(uids)).
		Str("tx_hash", resp.Data).
		Msg("Submitted weights")
	v.Metrics.SetWeightsSubmitted(len(uids))
	return resp.Data, nil
}

func (v *Validator) finishRound(logger zerolog.Logger, result RoundResult, err error) {
	status := metrics.RoundSkipped
	switch {
	case err != nil:
		status = metrics.RoundFailed
	case result.Voted:
		status = metrics.RoundVoted
	}
	v.Metrics.ObserveRound(status, result.Duration)

	if err != nil {
		logger.Error().Err(err).Dur("elapsed", result.Duration).Msg("Validation round failed")
	} else {
		logger.Info().
			Str("status", status).
			Int("peers", len(result.Peers)).
			Int("scored", len(result.Scores)).
			Dur("elapsed", result.Duration).
			Msg("Validation round finished")
	}

	if path := v.ValidatorConfig.RoundReportPath; path != "" && err == nil {
		if werr := writeRoundReport(path, result); werr != nil {
			logger.Warn().Err(werr).Str("path", path).Msg("failed to write round report")
		}
	}
}

func outcomeLabel(o dispatch.Outcome) string {
	switch {
	case o.Answered():
		return metrics.OutcomeAnswered
	case errors.Is(o.Err, dispatch.ErrCallTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(o.Err, dispatch.ErrMissingAnswer):
		return metrics.OutcomeEmpty
	}
	return metrics.OutcomeError
}
