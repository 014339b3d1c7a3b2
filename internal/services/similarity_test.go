package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityScores(t *testing.T) {
	scores, err := SimilarityScores([][]float32{
		{1, 0},  // identical to the job description
		{0, 1},  // orthogonal
		{1, 1},  // 45 degrees
		{-1, 0}, // opposite
		{1, 0},  // job description
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 0, 70.71, -100}, scores)
}

func TestSimilarityScores_ZeroVector(t *testing.T) {
	scores, err := SimilarityScores([][]float32{{0, 0}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scores)
}

func TestSimilarityScores_InvalidInput(t *testing.T) {
	for name, vectors := range map[string][][]float32{
		"none":               nil,
		"only job":           {{1, 0}},
		"empty job":          {{1}, {}},
		"dimension mismatch": {{1, 0, 0}, {1, 0}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := SimilarityScores(vectors)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	a := []float32{0.2, 0.4, 0.1}
	b := []float32{2, 4, 1}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
}
