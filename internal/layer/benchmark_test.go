package layer

import "testing"

// Sizes of the default model: 100-dim embeddings, 256 hidden units, batches
// of 64 reviews of up to 200 tokens.
const (
	benchEmbed  = 100
	benchHidden = 256
	benchSteps  = 200
	benchBatch  = 64
)

// benchLengths spreads item lengths evenly between benchSteps and a quarter of it.
func benchLengths() []int {
	lengths := make([]int, benchBatch)
	for i := range lengths {
		lengths[i] = benchSteps - i*(benchSteps*3/4)/benchBatch
	}
	return lengths
}

func BenchmarkLSTMForward(b *testing.B) {
	rng := newTestRNG()
	l := NewLSTM("lstm", benchEmbed, benchHidden, false, rng)
	in := randomPacked(b, rng, benchLengths(), benchEmbed)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := l.Forward(in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLSTMBackward(b *testing.B) {
	rng := newTestRNG()
	l := NewLSTM("lstm", benchEmbed, benchHidden, true, rng)
	in := randomPacked(b, rng, benchLengths(), benchEmbed)
	dFinal := randomDense(rng, benchBatch, benchHidden)
	_, tr, err := l.Forward(in)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Backward(tr, nil, dFinal)
	}
}

func BenchmarkEncoderFull(b *testing.B) {
	rng := newTestRNG()
	e := NewEncoder(benchEmbed, benchHidden, 2, true, 0.5, rng)
	in := randomPacked(b, rng, benchLengths(), benchEmbed)
	dFinal := randomDense(rng, benchBatch, e.OutSize())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, tr, err := e.Forward(in, rng)
		if err != nil {
			b.Fatal(err)
		}
		e.Backward(tr, dFinal)
	}
}
