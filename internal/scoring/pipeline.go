package scoring

import (
	"github.com/tensorplex-labs/comchat/internal/utils/logger"
)

// WeightPipeline turns a round's scores into vote weights: cap to the
// allowed count, apply the threshold sigmoid, then quantise.
type WeightPipeline struct {
	MaxAllowedWeights int
	SigmoidParams     SigmoidParams
}

type WeightPipelineOption func(*WeightPipeline)

func WithMaxAllowedWeights(n int) WeightPipelineOption {
	return func(p *WeightPipeline) {
		p.MaxAllowedWeights = n
	}
}

func WithThreshold(threshold float64) WeightPipelineOption {
	return func(p *WeightPipeline) {
		p.SigmoidParams.Threshold = threshold
	}
}

func WithSteepness(steepness float64) WeightPipelineOption {
	return func(p *WeightPipeline) {
		p.SigmoidParams.Steepness = steepness
	}
}

func WithSigmoidParams(params SigmoidParams) WeightPipelineOption {
	return func(p *WeightPipeline) {
		p.SigmoidParams = params
	}
}

func NewWeightPipeline(opts ...WeightPipelineOption) *WeightPipeline {
	p := &WeightPipeline{
		MaxAllowedWeights: DefaultMaxAllowedWeights,
		SigmoidParams:     DefaultSigmoidParams(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process returns the weights for scores, ordered by uid. The result is empty
// when no score survives the sigmoid.
func (p *WeightPipeline) Process(scores map[int64]float64) []WeightEntry {
	capped := CapToMaxAllowed(scores, p.MaxAllowedWeights)
	shaped := ThresholdSigmoid(capped, p.SigmoidParams)
	weights := Quantize(shaped)

	logger.Sugar().Infow("Processed weights",
		"scored", len(scores),
		"capped", len(capped),
		"weighted", len(weights),
		"sigmoidParams", p.SigmoidParams,
	)
	return weights
}

// Redistribute is Process with the given cap. The sigmoid is the default
// unless opts override it.
func Redistribute(scores map[int64]float64, maxAllowed int, opts ...WeightPipelineOption) []WeightEntry {
	opts = append([]WeightPipelineOption{WithMaxAllowedWeights(maxAllowed)}, opts...)
	return NewWeightPipeline(opts...).Process(scores)
}
