package vectorstore

import (
	"math"
	"testing"
)

func TestCosineSelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, 0.25, 0.25},
		{0.1, 0.9, 0.3, 0.7},
	}
	for _, v := range vectors {
		got := Similarity(v, v, MetricCosine)
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("cosine self-similarity of %v = %v, want 1", v, got)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		metric Metric
		want   float64
	}{
		{"cosine orthogonal", []float32{1, 0}, []float32{0, 1}, MetricCosine, 0},
		{"cosine zero vector", []float32{0, 0}, []float32{1, 1}, MetricCosine, 0},
		{"cosine mismatched lengths", []float32{1, 0}, []float32{1}, MetricCosine, 0},
		{"cosine empty", nil, nil, MetricCosine, 0},
		{"euclidean identical", []float32{1, 2}, []float32{1, 2}, MetricEuclidean, 1},
		{"euclidean distance 1", []float32{0, 0}, []float32{1, 0}, MetricEuclidean, 0.5},
		{"dot", []float32{1, 2}, []float32{3, 4}, MetricDot, 11},
		{"dot zero", []float32{0, 0}, []float32{3, 4}, MetricDot, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b, tt.metric)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
