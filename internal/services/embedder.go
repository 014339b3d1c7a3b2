package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
)

type EmbeddingService interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type textEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type embeddingService struct {
	embedder textEmbedder
	retry    RetryPolicy
	metrics  *Metrics
	logger   *zap.Logger
}

func NewEmbeddingService(embedder textEmbedder, retry RetryPolicy, metrics *Metrics, log *zap.Logger) EmbeddingService {
	log = logger.OrNop(log)
	retry.Logger = log
	if retry.OnRetry == nil {
		retry.OnRetry = func(op string, _ int, _ error) { metrics.RetryAttempted(op) }
	}
	retry.ApplyDefaults()

	return &embeddingService{
		embedder: embedder,
		retry:    retry,
		metrics:  metrics,
		logger:   log,
	}
}

// EmbedBatch embeds all texts in one provider call. The result has the same
// length and order as texts. Any failure is wrapped in ErrEmbeddingFailed.
func (e *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	err := e.retry.Do(ctx, "embed", func(ctx context.Context) error {
		out, err := e.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return &ProviderError{
				Op:   "embed",
				Kind: KindEmptyResponse,
				Err:  fmt.Errorf("expected %d vectors, got %d", len(texts), len(out)),
			}
		}
		vectors = out
		return nil
	})
	if err != nil {
		e.metrics.EmbeddingDone("failed")
		e.logger.Error("embedding batch failed",
			zap.Int("batch_size", len(texts)),
			zap.String("kind", string(ErrorKindOf(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	e.metrics.EmbeddingDone("ok")
	e.logger.Debug("embedding batch completed", zap.Int("batch_size", len(texts)))
	return vectors, nil
}
