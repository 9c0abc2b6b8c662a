package transform

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"voxelprep/pkg/logging"
	"voxelprep/pkg/subject"
	"voxelprep/pkg/volume"
)

// ZNormalization rescales every intensity Image to zero mean and unit standard
// deviation. Label and DVF channels, raw arrays and bookkeeping values are left
// alone. The random generator is not used.
type ZNormalization struct{}

// Apply implements Transform.
func (ZNormalization) Apply(s *subject.Subject, _ *rand.Rand) (*subject.Subject, error) {
	log := logging.L()
	for _, key := range s.Keys() {
		im, ok := s.Image(key)
		if !ok || im.Type != subject.Intensity || im.Data == nil {
			continue
		}

		data := im.Data.Data()
		if len(data) < 2 {
			continue
		}
		mean, std := stat.MeanStdDev(data, nil)
		if std == 0 {
			log.Debugw("skipping constant channel", logging.FieldChannel, key)
			continue
		}

		out := make([]float64, len(data))
		copy(out, data)
		floats.AddConst(-mean, out)
		floats.Scale(1/std, out)

		arr, err := volume.New(im.Data.Shape(), out)
		if err != nil {
			return s, err
		}
		s.Set(key, im.WithData(arr))
	}
	return s, nil
}
