package validator

import "errors"

var (
	ErrValidatorNotRegistered = errors.New("validator key is not registered in subnet")
	ErrChallengeFailed        = errors.New("challenge generation failed")
	ErrVoteFailed             = errors.New("vote submission failed")
	ErrRoundInProgress        = errors.New("a validation round is already running")
)
