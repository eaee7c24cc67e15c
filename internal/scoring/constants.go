package scoring

const DefaultMaxAllowedWeights = 420

func DefaultSigmoidParams() SigmoidParams {
	return SigmoidParams{
		Threshold: 0.7,
		Steepness: 25,
	}
}
