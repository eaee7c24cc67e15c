package scoring

import (
	"cmp"
	"math"
	"slices"
)

// CapToMaxAllowed keeps the maxAllowed highest scores. Ties are broken by the
// lower uid so the result does not depend on map order.
func CapToMaxAllowed(scores map[int64]float64, maxAllowed int) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(scores))
	for uid, score := range scores {
		entries = append(entries, ScoreEntry{UID: uid, Score: score})
	}

	slices.SortFunc(entries, func(a, b ScoreEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})

	if maxAllowed < 0 {
		maxAllowed = 0
	}
	if len(entries) > maxAllowed {
		entries = entries[:maxAllowed]
	}
	return entries
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ThresholdSigmoid maps each score s to σ(k(s−t)) − σ(−kt), floored at 0.
// The transform is monotone non-decreasing and sends 0 to 0, so equal scores
// stay equal and an all-zero round stays all-zero.
func ThresholdSigmoid(entries []ScoreEntry, params SigmoidParams) []ScoreEntry {
	offset := sigmoid(-params.Steepness * params.Threshold)
	out := make([]ScoreEntry, len(entries))
	for i, e := range entries {
		v := sigmoid(params.Steepness*(e.Score-params.Threshold)) - offset
		out[i] = ScoreEntry{UID: e.UID, Score: math.Max(0, v)}
	}
	return out
}

// Quantize scales entries to integer weights floor(v·1000/S), where S is the
// sum of values, and drops zero weights. S == 0 yields no weights. The result
// is ordered by uid.
func Quantize(entries []ScoreEntry) []WeightEntry {
	var total float64
	for _, e := range entries {
		total += e.Score
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return []WeightEntry{}
	}

	weights := make([]WeightEntry, 0, len(entries))
	for _, e := range entries {
		w := int64(math.Floor(e.Score * TotalWeight / total))
		if w <= 0 {
			continue
		}
		weights = append(weights, WeightEntry{UID: e.UID, Weight: w})
	}

	slices.SortFunc(weights, func(a, b WeightEntry) int { return cmp.Compare(a.UID, b.UID) })
	return weights
}
