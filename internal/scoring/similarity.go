package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/tensorplex-labs/comchat/internal/embedding"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	ErrEmptyVector       = errors.New("embedding vector is empty")
)

// NormalizedDistance is ‖a−b‖ / (‖a‖+‖b‖), which lies in [0, 1]. Two zero
// vectors are at distance 0.
func NormalizedDistance(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	denominator := floats.Norm(a, 2) + floats.Norm(b, 2)
	if denominator == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2) / denominator, nil
}

// Similarity is 1 minus the normalized distance, clamped to [0, 1].
func Similarity(a, b []float64) (float64, error) {
	d, err := NormalizedDistance(a, b)
	if err != nil {
		return 0, err
	}
	return clamp01(1 - d), nil
}

func CalculateCosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	cosine := floats.Dot(a, b) / (normA * normB)
	if math.IsNaN(cosine) {
		return 0.0
	}
	return cosine
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Scorer embeds answers and compares them to a reference embedding.
type Scorer struct {
	embedder embedding.EmbedderInterface
}

func NewScorer(embedder embedding.EmbedderInterface) *Scorer {
	return &Scorer{embedder: embedder}
}

// Score returns the similarity of answer to reference. An empty answer
// scores 0 without calling the embedder.
func (s *Scorer) Score(ctx context.Context, answer string, reference []float64) (float64, error) {
	report, err := s.Report(ctx, answer, reference)
	if err != nil {
		return 0, err
	}
	return report.Score, nil
}

// Report is Score with the intermediate distances attached.
func (s *Scorer) Report(ctx context.Context, answer string, reference []float64) (SimilarityReport, error) {
	if answer == "" {
		return SimilarityReport{Distance: 1, Dimensions: len(reference)}, nil
	}

	vec, err := s.embedder.Embed(ctx, answer)
	if err != nil {
		return SimilarityReport{}, fmt.Errorf("embed answer: %w", err)
	}

	distance, err := NormalizedDistance(vec, reference)
	if err != nil {
		return SimilarityReport{}, err
	}

	return SimilarityReport{
		Score:            clamp01(1 - distance),
		Distance:         distance,
		CosineSimilarity: CalculateCosineSimilarity(vec, reference),
		Dimensions:       len(vec),
	}, nil
}
