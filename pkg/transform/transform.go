// Package transform applies augmentations to Subjects.
//
// Every transform takes the random generator to use as an argument instead of
// relying on process-wide random state, so a fixed seed reproduces a pipeline
// run exactly. Transforms mutate the Subject they are given and return it, which
// lets them be chained.
package transform

import (
	"math/rand/v2"

	"voxelprep/pkg/subject"
)

// Transform is one step of an augmentation pipeline.
type Transform interface {
	Apply(s *subject.Subject, rng *rand.Rand) (*subject.Subject, error)
}

// Func adapts a function to the Transform interface.
type Func func(s *subject.Subject, rng *rand.Rand) (*subject.Subject, error)

// Apply implements Transform.
func (f Func) Apply(s *subject.Subject, rng *rand.Rand) (*subject.Subject, error) {
	return f(s, rng)
}

// Compose chains transforms. They run in order and the first error stops the chain.
type Compose []Transform

// Apply implements Transform.
func (c Compose) Apply(s *subject.Subject, rng *rand.Rand) (*subject.Subject, error) {
	var err error
	for _, t := range c {
		if s, err = t.Apply(s, rng); err != nil {
			return s, err
		}
	}
	return s, nil
}

// NewRand returns a generator seeded with seed, for reproducible pipelines.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
