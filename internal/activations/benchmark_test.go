package activations

import (
	"math/rand/v2"
	"testing"
)

// fillRandom fills a slice with values in [-4, 4).
func fillRandom(slice []float64) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := range slice {
		slice[i] = r.Float64()*8 - 4
	}
}

// A gate block of the default model: 4 gates x 256 hidden units.
const gateWidth = 1024

func benchmarkActivation(b *testing.B, act Activation) {
	inputs := make([]float64, gateWidth)
	fillRandom(inputs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, x := range inputs {
			act.Activate(x)
			act.Derivative(x)
		}
	}
}

func BenchmarkSigmoidGate(b *testing.B) { benchmarkActivation(b, Sigmoid{}) }

func BenchmarkTanhGate(b *testing.B) { benchmarkActivation(b, Tanh{}) }

func BenchmarkLogistic(b *testing.B) {
	inputs := make([]float64, gateWidth)
	fillRandom(inputs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, x := range inputs {
			Logistic(x)
		}
	}
}
