package vision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"unnormalized magnitudes cancel", []float32{2, 0}, []float32{5, 0}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-5)
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.3, -0.5, 0.8, 0.1}
	b := []float32{-0.2, 0.9, 0.4, -0.7}

	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-6)
}

func TestCosineSimilarityClamped(t *testing.T) {
	// Accumulated float error must never push the result out of [-1, 1].
	a := make([]float32, 512)
	for i := range a {
		a[i] = 0.044194173
	}
	got := CosineSimilarity(a, a)
	assert.LessOrEqual(t, got, float32(1))
	assert.GreaterOrEqual(t, got, float32(-1))
	assert.InDelta(t, 1, got, 1e-5)
}

func TestCosineSimilarityKnownAngle(t *testing.T) {
	// cos(45°) between [1,0] and [1,1]/√2.
	inv := float32(1 / math.Sqrt2)
	got := CosineSimilarity([]float32{1, 0}, []float32{inv, inv})
	assert.InDelta(t, 1/math.Sqrt2, got, 1e-5)
}
