package dispatch

import (
	"math/rand/v2"
	"slices"

	"github.com/tensorplex-labs/comchat/internal/llm"
)

// Target is the service/model pair every miner is asked to use in a round.
type Target struct {
	Service llm.Service
	Model   string
}

// Catalog is an immutable set of targets.
type Catalog struct {
	targets []Target
}

func NewCatalog(targets ...Target) Catalog {
	return Catalog{targets: slices.Clone(targets)}
}

// DefaultCatalog holds one model per supported service.
func DefaultCatalog() Catalog {
	targets := make([]Target, 0, len(llm.Services()))
	for _, service := range llm.Services() {
		targets = append(targets, Target{Service: service, Model: llm.DefaultModel[service]})
	}
	return NewCatalog(targets...)
}

// Targets returns a copy of the catalog entries.
func (c Catalog) Targets() []Target {
	return slices.Clone(c.targets)
}

func (c Catalog) Len() int {
	return len(c.targets)
}

// Pick draws a target uniformly. rng may be nil.
func (c Catalog) Pick(rng *rand.Rand) (Target, bool) {
	if len(c.targets) == 0 {
		return Target{}, false
	}
	if rng == nil {
		return c.targets[rand.IntN(len(c.targets))], true
	}
	return c.targets[rng.IntN(len(c.targets))], true
}
