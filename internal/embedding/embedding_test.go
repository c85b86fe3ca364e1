package embedding

import (
	"math"
	"testing"
)

func TestEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		name string
		emb  Embedding
		want int
	}{
		{name: "empty", emb: Embedding{}, want: 0},
		{name: "three dims", emb: Embedding{Vector: []float32{1, 2, 3}}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.emb.Dimensions(); got != tt.want {
				t.Errorf("Dimensions() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	t.Run("averages component-wise", func(t *testing.T) {
		got := Mean([]Embedding{
			{Vector: []float32{1, 0, 3}},
			{Vector: []float32{3, 2, 1}},
		})
		want := []float32{2, 1, 2}
		for i := range want {
			if math.Abs(float64(got.Vector[i]-want[i])) > 1e-6 {
				t.Errorf("Mean()[%d] = %f, want %f", i, got.Vector[i], want[i])
			}
		}
	})

	t.Run("single vector is identity", func(t *testing.T) {
		got := Mean([]Embedding{{Vector: []float32{0.25, -0.5}}})
		if got.Vector[0] != 0.25 || got.Vector[1] != -0.5 {
			t.Errorf("Mean() = %v, want [0.25 -0.5]", got.Vector)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Mean(nil); got.Dimensions() != 0 {
			t.Errorf("Mean(nil).Dimensions() = %d, want 0", got.Dimensions())
		}
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		got := Mean([]Embedding{
			{Vector: []float32{1, 2}},
			{Vector: []float32{1}},
		})
		if got.Dimensions() != 0 {
			t.Errorf("Mean() with mismatched dims = %v, want zero embedding", got.Vector)
		}
	})
}
