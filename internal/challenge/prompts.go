package challenge

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const systemPromptTemplate = "You are a supreme polymath renowned for your ability to explain " +
	"complex concepts effectively to any audience from laypeople to fellow top experts. " +
	"By principle, you always ensure factual accuracy. " +
	"You adapt your explanation strategy to the field and target audience, using examples, " +
	"analogies and metaphors only when appropriate. " +
	"You structure your explanations coherently and express yourself clearly and concisely. " +
	"You only respond with the explanations themselves, without conversational additions. " +
	"Try to keep your answer below %d tokens"

var fields = []string{
	"astrophysics", "molecular biology", "macroeconomics", "distributed systems",
	"organic chemistry", "number theory", "linguistics", "climatology",
	"immunology", "game theory", "medieval history", "materials science",
	"neuroscience", "cryptography", "geology", "music theory",
}

var audiences = []string{
	"a curious teenager",
	"an undergraduate student in the field",
	"a professional from an unrelated field",
	"a graduate student in the field",
	"a leading expert in the field",
}

var styles = []string{
	"step by step",
	"using a concrete worked example",
	"by contrasting it with a commonly confused idea",
	"starting from first principles",
	"through its historical development",
}

var depths = []string{
	"a brief overview",
	"a moderately detailed explanation",
	"an in-depth explanation",
}

// Criteria describes the audience and shape an explanation must satisfy.
type Criteria struct {
	Field    string
	Audience string
	Style    string
	Depth    string
}

func (c Criteria) String() string {
	return fmt.Sprintf("field: %s; audience: %s; style: %s; depth: %s", c.Field, c.Audience, c.Style, c.Depth)
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.IntN(len(options))]
}

// RandomCriteria draws one criteria combination.
func RandomCriteria(rng *rand.Rand) Criteria {
	return Criteria{
		Field:    pick(rng, fields),
		Audience: pick(rng, audiences),
		Style:    pick(rng, styles),
		Depth:    pick(rng, depths),
	}
}

// SystemPrompt bounds the reference answer by maxTokens.
func SystemPrompt(maxTokens int) string {
	return fmt.Sprintf(systemPromptTemplate, maxTokens)
}

// ExplanationPrompt asks for a subject on the first line followed by its
// explanation.
func ExplanationPrompt(c Criteria) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Choose a specific, non-trivial subject within %s. ", c.Field)
	sb.WriteString("Write the subject alone on the first line, as a short title without any prefix. ")
	fmt.Fprintf(&sb, "Then, starting on the next line, give %s of the subject for %s, explained %s.",
		c.Depth, c.Audience, c.Style)
	return sb.String()
}

// MinerPrompt is the question sent to miners: the subject, the criteria the
// reference answer followed and the length to aim for.
func MinerPrompt(criteria Criteria, subject string, referenceLength int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Explain the following subject: %s\n\n", subject)
	fmt.Fprintf(&sb, "Your explanation is for %s. Give %s, explained %s.\n",
		criteria.Audience, criteria.Depth, criteria.Style)
	fmt.Fprintf(&sb, "Aim for roughly %d characters. ", referenceLength)
	sb.WriteString("Respond only with the explanation itself.")
	return sb.String()
}
