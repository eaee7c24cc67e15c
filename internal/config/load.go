package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-envconfig"
)

// LoadConfig reads the whole application config from the process environment.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

// LoadConfigWith reads the application config using the given lookuper.
func LoadConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid validator setting at once.
func (c *ValidatorEnvConfig) Validate() error {
	var result *multierror.Error

	if c.CallTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("CALL_TIMEOUT must be positive, got %s", c.CallTimeout))
	}
	if c.IterationInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("ITERATION_INTERVAL must be positive, got %s", c.IterationInterval))
	}
	if c.MaxAllowedWeights < 1 {
		result = multierror.Append(result, fmt.Errorf("MAX_ALLOWED_WEIGHTS must be at least 1, got %d", c.MaxAllowedWeights))
	}
	if c.DispatchConcurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("DISPATCH_CONCURRENCY must be at least 1, got %d", c.DispatchConcurrency))
	}
	if c.ChallengeAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("CHALLENGE_ATTEMPTS must be at least 1, got %d", c.ChallengeAttempts))
	}
	if c.SigmoidSteepness <= 0 {
		result = multierror.Append(result, fmt.Errorf("SIGMOID_STEEPNESS must be positive, got %g", c.SigmoidSteepness))
	}
	if c.SigmoidThreshold < 0 || c.SigmoidThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("SIGMOID_THRESHOLD must be within [0, 1], got %g", c.SigmoidThreshold))
	}
	switch c.Provider() {
	case "anthropic", "openrouter":
	default:
		result = multierror.Append(result, fmt.Errorf("CHALLENGE_PROVIDER must be anthropic or openrouter, got %q", c.ChallengeProvider))
	}

	return result.ErrorOrNil()
}

var ErrMissingKeyName = errors.New("KEY_NAME is required")

// Validate checks that a key can be located.
func (c *WalletEnvConfig) Validate() error {
	if c.KeyName == "" {
		return ErrMissingKeyName
	}
	return nil
}
