package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls   int
	batches [][]string
	embed   func(texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, texts)
	return f.embed(texts)
}

// unitVectors returns one distinct 2-d vector per text.
func unitVectors(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1), 1}
	}
	return out, nil
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	f := &fakeEmbedder{embed: unitVectors}
	e := NewEmbeddingService(f, fastRetry(), nil, nil)

	got, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.calls)
}

func TestEmbedBatch_SingleCallPreservesOrder(t *testing.T) {
	f := &fakeEmbedder{embed: unitVectors}
	e := NewEmbeddingService(f, fastRetry(), nil, nil)

	texts := []string{"cv one", "cv two", "jd"}
	got, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, texts, f.batches[0])
	require.Len(t, got, 3)
	assert.Equal(t, []float32{3, 1}, got[2])
}

func TestEmbedBatch_CountMismatchIsFatal(t *testing.T) {
	f := &fakeEmbedder{embed: func([]string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}}
	e := NewEmbeddingService(f, fastRetry(), nil, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Equal(t, 1, f.calls)
}

func TestEmbedBatch_TransientThenSuccess(t *testing.T) {
	f := &fakeEmbedder{}
	f.embed = func(texts []string) ([][]float32, error) {
		if f.calls == 1 {
			return nil, &ProviderError{Op: "embed", Kind: KindInternal, Code: 500, Err: errors.New("oops")}
		}
		return unitVectors(texts)
	}
	e := NewEmbeddingService(f, fastRetry(), nil, nil)

	got, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, f.calls)
}

func TestEmbedBatch_OutageWrapsCause(t *testing.T) {
	cause := &ProviderError{Op: "embed", Kind: KindUnavailable, Code: 503, Err: errors.New("down")}
	f := &fakeEmbedder{embed: func([]string) ([][]float32, error) { return nil, cause }}
	e := NewEmbeddingService(f, fastRetry(), nil, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, f.calls)
}
