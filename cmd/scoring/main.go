package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/scoring"
	"github.com/tensorplex-labs/comchat/internal/utils/logger"
)

var (
	scoresPath = flag.String("scores", "", "JSON file mapping uid to score; a built-in sample is used when empty")
	maxWeights = flag.Int("max-weights", scoring.DefaultMaxAllowedWeights, "maximum number of uids in a vote")
	threshold  = flag.Float64("threshold", scoring.DefaultSigmoidParams().Threshold, "sigmoid threshold")
	steepness  = flag.Float64("steepness", scoring.DefaultSigmoidParams().Steepness, "sigmoid steepness")
)

var sampleScores = map[string]float64{
	"0": 0.95,
	"1": 0.91,
	"2": 0.74,
	"3": 0.70,
	"4": 0.52,
	"5": 0.0,
}

func main() {
	logger.Init()
	defer logger.Sync()

	raw := sampleScores
	if *scoresPath != "" {
		data, err := os.ReadFile(*scoresPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *scoresPath).Msg("failed to read scores")
		}
		raw = map[string]float64{}
		if err := sonic.Unmarshal(data, &raw); err != nil {
			log.Fatal().Err(err).Msg("failed to decode scores")
		}
	}

	scores := make(map[int64]float64, len(raw))
	for key, score := range raw {
		uid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warn().Str("uid", key).Msg("skipping malformed uid")
			continue
		}
		scores[uid] = score
	}

	weights := scoring.Redistribute(scores, *maxWeights,
		scoring.WithThreshold(*threshold),
		scoring.WithSteepness(*steepness),
	)

	var total int64
	for _, w := range weights {
		total += w.Weight
		log.Info().Int64("uid", w.UID).Float64("score", scores[w.UID]).Int64("weight", w.Weight).Msg("weight")
	}
	log.Info().Int64("total", total).Msgf("weights sum to %d of %d", total, scoring.TotalWeight)
}
