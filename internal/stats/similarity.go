package stats

import "math"

// CosineSimilarity returns the cosine of the angle between x and y.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}

	var dot, normX, normY float64
	for i := range x {
		dot += x[i] * y[i]
		normX += x[i] * x[i]
		normY += y[i] * y[i]
	}

	if normX == 0 || normY == 0 {
		return 0
	}
	return dot / math.Sqrt(normX*normY)
}

// MeanVector returns the element-wise mean of equally sized vectors.
// Vectors whose length differs from the first one are skipped.
func MeanVector(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	width := len(vectors[0])
	mean := make([]float64, width)
	count := 0
	for _, v := range vectors {
		if len(v) != width {
			continue
		}
		for i, x := range v {
			mean[i] += x
		}
		count++
	}
	for i := range mean {
		mean[i] /= float64(count)
	}
	return mean
}
