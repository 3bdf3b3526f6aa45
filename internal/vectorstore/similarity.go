package vectorstore

import "math"

// Similarity computes the score of two equal-length vectors under the
// given metric. Mismatched lengths score 0.
func Similarity(a, b []float32, metric Metric) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	switch metric {
	case MetricEuclidean:
		return euclideanSimilarity(a, b)
	case MetricDot:
		return dotProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

// cosineSimilarity returns dot(a,b) / (|a|·|b|), and 0 when either
// magnitude is 0. Self-similarity of any non-zero vector is 1.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// euclideanSimilarity maps distance into (0,1]: 1/(1+d).
func euclideanSimilarity(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return 1 / (1 + math.Sqrt(sum))
}

func dotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
