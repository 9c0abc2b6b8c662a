package transform

import (
	"fmt"
	"math/rand/v2"

	"voxelprep/pkg/errors"
	"voxelprep/pkg/logging"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/volume"
)

// FlipKey is the Subject key under which RandomFlip records its decision.
const FlipKey = "random_flip"

// SpatialAxes is the number of spatial axes a flip decision covers.
const SpatialAxes = 3

// FlipDecision says, per spatial axis, whether that axis is flipped.
type FlipDecision [SpatialAxes]bool

// Any reports whether at least one axis is flipped.
func (d FlipDecision) Any() bool {
	return d[0] || d[1] || d[2]
}

// DefaultFlipChannels are the channels RandomFlip flips unless configured otherwise.
var DefaultFlipChannels = []string{subject.ImageKey, subject.LabelKey, subject.SamplerKey}

// RandomFlip reverses the element order along randomly chosen axes. One decision
// is drawn per call and applied identically to every configured channel, so the
// channels stay aligned with each other.
type RandomFlip struct {
	axes        []int
	probability float64
	channels    []string
}

// FlipOption configures a RandomFlip.
type FlipOption func(*RandomFlip)

// WithChannels replaces the set of channel keys that are flipped.
func WithChannels(keys ...string) FlipOption {
	return func(f *RandomFlip) {
		f.channels = append([]string(nil), keys...)
	}
}

// NewRandomFlip creates a flip over axes (each in [0, 3)) where each axis is
// flipped independently with the given probability, which must be in (0, 1].
func NewRandomFlip(axes []int, probability float64, opts ...FlipOption) (*RandomFlip, error) {
	if !(probability > 0 && probability <= 1) {
		return nil, errors.Configurationf("flip probability must be in (0, 1], got %v", probability)
	}
	for _, a := range axes {
		if a < 0 || a >= SpatialAxes {
			return nil, errors.Configurationf("flip axis must be in [0, %d), got %d", SpatialAxes, a)
		}
	}
	f := &RandomFlip{
		axes:        append([]int(nil), axes...),
		probability: probability,
		channels:    append([]string(nil), DefaultFlipChannels...),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Axes returns the axes eligible for flipping.
func (f *RandomFlip) Axes() []int { return append([]int(nil), f.axes...) }

// Probability returns the per-axis flip probability.
func (f *RandomFlip) Probability() float64 { return f.probability }

// Channels returns the channel keys that are flipped.
func (f *RandomFlip) Channels() []string { return append([]string(nil), f.channels...) }

// Decide draws one uniform sample per configured axis, in configured order, and
// flips the axis when probability > sample. Unconfigured axes are never flipped.
func (f *RandomFlip) Decide(rng *rand.Rand) FlipDecision {
	var d FlipDecision
	for _, axis := range f.axes {
		d[axis] = f.probability > rng.Float64()
	}
	return d
}

// Apply implements Transform.
func (f *RandomFlip) Apply(s *subject.Subject, rng *rand.Rand) (*subject.Subject, error) {
	return f.ApplyDecision(s, f.Decide(rng))
}

// ApplyDecision records d under FlipKey, overwriting any previous record, then
// flips every configured channel present in s along the axes d selects, axis 0
// first. Channels holding an Image keep their type. Missing channels are skipped.
func (f *RandomFlip) ApplyDecision(s *subject.Subject, d FlipDecision) (*subject.Subject, error) {
	s.Set(FlipKey, d)
	logging.L().Debugw("flip decision", logging.FieldDecision, d[:])
	if !d.Any() {
		return s, nil
	}

	for _, key := range f.channels {
		v, ok := s.Get(key)
		if !ok {
			continue
		}
		flipped, err := flipValue(v, d)
		if err != nil {
			return s, errors.Wrapf(err, "flipping channel %q", key)
		}
		s.Set(key, flipped)
	}
	return s, nil
}

func flipValue(v interface{}, d FlipDecision) (interface{}, error) {
	switch val := v.(type) {
	case subject.Image:
		arr, err := flipArray(val.Data, d)
		if err != nil {
			return nil, err
		}
		return val.WithData(arr), nil
	case *subject.Image:
		if val == nil {
			return nil, fmt.Errorf("cannot flip a nil image")
		}
		arr, err := flipArray(val.Data, d)
		if err != nil {
			return nil, err
		}
		return val.WithData(arr), nil
	case *volume.Array:
		return flipArray(val, d)
	default:
		return nil, fmt.Errorf("cannot flip value of type %T", v)
	}
}

func flipArray(a *volume.Array, d FlipDecision) (*volume.Array, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot flip a nil array")
	}
	var err error
	for axis, flip := range d {
		if !flip {
			continue
		}
		if a, err = a.Flip(axis); err != nil {
			return nil, err
		}
	}
	return a, nil
}
