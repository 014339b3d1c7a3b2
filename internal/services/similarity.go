package services

import (
	"fmt"
	"math"
)

// SimilarityScores scores every candidate vector against the job description
// vector, which must be the last element of vectors. Each score is the cosine
// similarity scaled to percent and rounded to two decimals.
func SimilarityScores(vectors [][]float32) ([]float64, error) {
	if len(vectors) < 2 {
		return nil, fmt.Errorf("%w: need at least one candidate vector and the job description vector, got %d vectors", ErrInvalidInput, len(vectors))
	}

	jd := vectors[len(vectors)-1]
	if len(jd) == 0 {
		return nil, fmt.Errorf("%w: job description vector is empty", ErrInvalidInput)
	}

	scores := make([]float64, len(vectors)-1)
	for i, cv := range vectors[:len(vectors)-1] {
		if len(cv) != len(jd) {
			return nil, fmt.Errorf("%w: candidate vector %d has dimension %d, job description has %d", ErrInvalidInput, i, len(cv), len(jd))
		}
		scores[i] = roundTo(CosineSimilarity(cv, jd)*100, 2)
	}

	return scores, nil
}

// CosineSimilarity returns 0 when either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
