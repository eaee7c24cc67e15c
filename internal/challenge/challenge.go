// Package challenge produces the per-round question and its reference answer.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/comchat/internal/llm"
)

var ErrEmptyGeneration = errors.New("reference generation returned no text")

// Challenge is one generated explanation task.
type Challenge struct {
	// Prompt is the question the reference answer was generated for.
	Prompt          string
	Criteria        Criteria
	Subject         string
	ReferenceAnswer string
	// Raw is the unsplit generation.
	Raw         string
	GeneratedAt time.Time
}

// MinerPrompt renders the question sent to miners for this challenge.
func (c Challenge) MinerPrompt() string {
	return MinerPrompt(c.Criteria, c.Subject, len(c.ReferenceAnswer))
}

type GeneratorInterface interface {
	Generate(ctx context.Context) (Challenge, error)
}

// Generator asks a provider for an explanation under random criteria.
type Generator struct {
	provider llm.ProviderInterface
	rng      *rand.Rand
}

func NewGenerator(provider llm.ProviderInterface, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Generator{provider: provider, rng: rng}
}

// Generate implements GeneratorInterface.
func (g *Generator) Generate(ctx context.Context) (Challenge, error) {
	criteria := RandomCriteria(g.rng)

	prompt := ExplanationPrompt(criteria)

	raw, err := g.provider.Prompt(ctx, SystemPrompt(g.provider.MaxTokens()), prompt)
	if err != nil {
		return Challenge{}, fmt.Errorf("generate explanation: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Challenge{}, ErrEmptyGeneration
	}

	subject, body := SplitSubject(raw)

	log.Debug().
		Str("service", string(g.provider.Service())).
		Str("model", g.provider.Model()).
		Str("subject", subject).
		Str("criteria", criteria.String()).
		Int("reference_length", len(body)).
		Msg("challenge generated")

	return Challenge{
		Prompt:          prompt,
		Criteria:        criteria,
		Subject:         subject,
		ReferenceAnswer: body,
		Raw:             raw,
		GeneratedAt:     time.Now(),
	}, nil
}

// SplitSubject separates the first line of raw (the subject) from the rest.
// Without a newline the subject is empty and the whole text is the body.
func SplitSubject(raw string) (subject, body string) {
	first, rest, found := strings.Cut(raw, "\n")
	if !found {
		return "", raw
	}
	return first, rest
}
