package layers

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// fillUniform fills m with reproducible pseudo-random values drawn
// uniformly from (-scale, scale). The same seed always produces the
// same matrix.
func fillUniform(m *mat.Dense, seed int64, scale float64) {
	rng := rand.New(rand.NewSource(seed))
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = (rng.Float64()*2 - 1) * scale
		}
	}
}

// uniformScale returns the Glorot uniform bound for a fanIn x fanOut
// weight matrix.
func uniformScale(fanIn, fanOut int) float64 {
	return math.Sqrt(6 / float64(fanIn+fanOut))
}
