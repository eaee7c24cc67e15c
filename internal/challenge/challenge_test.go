package challenge

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/comchat/internal/llm"
)

type fakeProvider struct {
	answer  string
	err     error
	system  string
	user    string
	prompts int
}

func (f *fakeProvider) Prompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts++
	f.system = systemPrompt
	f.user = userPrompt
	return f.answer, f.err
}

func (f *fakeProvider) Service() llm.Service { return llm.ServiceAnthropic }
func (f *fakeProvider) Model() string { return "fake" }
func (f *fakeProvider) MaxTokens() int { return 512 }

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestSplitSubject(t *testing.T) {
	subject, body := SplitSubject("Tidal locking\nThe Moon always shows one face.\nMore.")
	assert.Equal(t, "Tidal locking", subject)
	assert.Equal(t, "The Moon always shows one face.\nMore.", body)

	subject, body = SplitSubject("no newline at all")
	assert.Equal(t, "", subject)
	assert.Equal(t, "no newline at all", body)

	subject, body = SplitSubject("Title\n")
	assert.Equal(t, "Title", subject)
	assert.Equal(t, "", body)
}

func TestGenerate(t *testing.T) {
	provider := &fakeProvider{answer: "Quorum reads\nA quorum read contacts a majority."}
	gen := NewGenerator(provider, seeded())

	c, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Quorum reads", c.Subject)
	assert.Equal(t, "A quorum read contacts a majority.", c.ReferenceAnswer)
	assert.Equal(t, provider.user, c.Prompt)
	assert.Contains(t, provider.system, "512 tokens")
	assert.Contains(t, c.Prompt, c.Criteria.Field)
	assert.False(t, c.GeneratedAt.IsZero())
}

func TestGenerateErrors(t *testing.T) {
	_, err := NewGenerator(&fakeProvider{answer: "  \n "}, seeded()).Generate(context.Background())
	assert.ErrorIs(t, err, ErrEmptyGeneration)

	boom := errors.New("boom")
	_, err = NewGenerator(&fakeProvider{err: boom}, seeded()).Generate(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMinerPrompt(t *testing.T) {
	c := Challenge{
		Criteria:        Criteria{Field: "geology", Audience: "a curious teenager", Style: "step by step", Depth: "a brief overview"},
		Subject:         "Plate tectonics",
		ReferenceAnswer: strings.Repeat("x", 420),
	}

	prompt := c.MinerPrompt()
	assert.Contains(t, prompt, "Plate tectonics")
	assert.Contains(t, prompt, "a curious teenager")
	assert.Contains(t, prompt, "420 characters")
	assert.NotContains(t, prompt, c.ReferenceAnswer)
}

func TestRandomCriteriaDrawsFromTables(t *testing.T) {
	rng := seeded()
	for range 50 {
		c := RandomCriteria(rng)
		assert.Contains(t, fields, c.Field)
		assert.Contains(t, audiences, c.Audience)
		assert.Contains(t, styles, c.Style)
		assert.Contains(t, depths, c.Depth)
	}
}
