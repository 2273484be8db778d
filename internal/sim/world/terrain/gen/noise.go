package gen

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

// Noise is the seeded source noise(x, y, layer) -> [0,1). Layers decorrelate
// samples that share coordinates.
type Noise struct {
	src opensimplex.Noise
}

func NewNoise(seed int64) Noise {
	return Noise{src: opensimplex.NewNormalized(seed)}
}

func (n Noise) Sample(x, y, layer float64) float64 {
	v := n.src.Eval3(x, y, layer)
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return math.Nextafter(1, 0)
	}
	return v
}
