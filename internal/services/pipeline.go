package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
)

// Pipeline is the set of services shared by the HTTP server and the batch CLI.
type Pipeline struct {
	Uploads UploadService
	Ranker  RankerService
	Metrics *Metrics
}

// NewPipeline connects to Gemini and wires every stage of the ranking
// pipeline. Metrics are registered on reg; a nil reg disables them.
func NewPipeline(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, log *zap.Logger) (*Pipeline, error) {
	log = logger.OrNop(log)

	gemini, err := NewGeminiService(ctx, cfg.Gemini, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
	}

	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}

	return newPipeline(cfg, gemini, metrics, log), nil
}

func newPipeline(cfg *config.Config, gemini GeminiService, metrics *Metrics, log *zap.Logger) *Pipeline {
	retry := NewRetryPolicy(cfg.Retry, log)
	uploads := NewUploadService(cfg.Storage)

	ranker := NewRankerService(RankerDeps{
		Uploads:    uploads,
		PDFParser:  NewPDFParserService(metrics, log),
		Summarizer: NewSummarizerService(gemini, retry, metrics, log.Named("summarizer")),
		Embedder:   NewEmbeddingService(gemini, retry, metrics, log.Named("embedder")),
		Worker:     NewWorker(cfg.Worker.Concurrency, log),
		Metrics:    metrics,
		Logger:     log.Named("ranker"),

		AbortOnSummarizerOutage: cfg.Ranking.AbortOnSummarizerOutage,
	})

	return &Pipeline{
		Uploads: uploads,
		Ranker:  ranker,
		Metrics: metrics,
	}
}
