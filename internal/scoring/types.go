// Package scoring compares miner answers to the reference and turns the
// resulting scores into integer vote weights.
package scoring

// TotalWeight is the budget a vote's weights sum to at most.
const TotalWeight = 1000

// ScoreEntry is a peer's score in [0, 1].
type ScoreEntry struct {
	UID   int64
	Score float64
}

// WeightEntry is a peer's positive integer vote weight.
type WeightEntry struct {
	UID    int64
	Weight int64
}

// SigmoidParams shape the threshold sigmoid applied before quantisation.
// Scores well below Threshold collapse towards zero; Steepness controls how
// sharp the transition is.
type SigmoidParams struct {
	Threshold float64
	Steepness float64
}

// SimilarityReport describes how close an answer is to the reference.
type SimilarityReport struct {
	Score            float64
	Distance         float64
	CosineSimilarity float64
	Dimensions       int
}
