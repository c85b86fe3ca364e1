// Package embedding provides vector embedding generation for text.
package embedding

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 384 dimensions for all-minilm)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Mean averages a set of embeddings component-wise. Returns a zero Embedding
// when vecs is empty or the vectors disagree on dimension.
func Mean(vecs []Embedding) Embedding {
	if len(vecs) == 0 {
		return Embedding{}
	}
	dim := vecs[0].Dimensions()
	sum := make([]float64, dim)
	for _, v := range vecs {
		if v.Dimensions() != dim {
			return Embedding{}
		}
		for i, x := range v.Vector {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vecs))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return Embedding{Vector: out}
}
