package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

type RankRequest struct {
	// JobDescriptions must hold exactly one document; more or fewer is rejected.
	JobDescriptions []models.Document
	Candidates      []models.Document
	MinScore        float64
	MaxResults      int
}

type RankResult struct {
	// Table holds every scored candidate, View the filtered subset.
	Table           *RankingTable
	View            *RankingTable
	TotalCandidates int
	Degraded        int
	Dropped         int
}

type RankerService interface {
	Rank(ctx context.Context, req RankRequest) (*RankResult, error)
}

type rankerService struct {
	uploads       UploadService
	pdfParser     PDFParserService
	summarizer    SummarizerService
	embedder      EmbeddingService
	worker        Worker
	metrics       *Metrics
	logger        *zap.Logger
	abortOnOutage bool
}

type RankerDeps struct {
	Uploads    UploadService
	PDFParser  PDFParserService
	Summarizer SummarizerService
	Embedder   EmbeddingService
	Worker     Worker
	Metrics    *Metrics
	Logger     *zap.Logger

	AbortOnSummarizerOutage bool
}

func NewRankerService(deps RankerDeps) RankerService {
	w := deps.Worker
	if w == nil {
		w = NewWorker(1, deps.Logger)
	}

	return &rankerService{
		uploads:       deps.Uploads,
		pdfParser:     deps.PDFParser,
		summarizer:    deps.Summarizer,
		embedder:      deps.Embedder,
		worker:        w,
		metrics:       deps.Metrics,
		logger:        logger.OrNop(deps.Logger),
		abortOnOutage: deps.AbortOnSummarizerOutage,
	}
}

func (r *rankerService) Rank(ctx context.Context, req RankRequest) (*RankResult, error) {
	start := time.Now()

	result, err := r.rank(ctx, req)
	r.metrics.RankingDone(rankingStatus(err), time.Since(start))
	if err != nil {
		r.logger.Error("ranking failed",
			zap.Int("candidates", len(req.Candidates)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Info("ranking completed",
		zap.Int("candidates", result.TotalCandidates),
		zap.Int("ranked", result.View.Len()),
		zap.Int("degraded", result.Degraded),
		zap.Int("dropped", result.Dropped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (r *rankerService) rank(ctx context.Context, req RankRequest) (*RankResult, error) {
	if err := r.uploads.ValidateBatch(req.JobDescriptions, req.Candidates); err != nil {
		return nil, err
	}

	jd := req.JobDescriptions[0]
	jdText := r.pdfParser.ExtractText(ctx, jd)
	if strings.TrimSpace(jdText.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrJobDescriptionUnreadable, jd.Filename)
	}

	r.logger.Info("ranking candidates",
		zap.String("job_description", jd.Filename),
		zap.Int("candidates", len(req.Candidates)),
	)

	candidates := withIDs(req.Candidates)
	summaries := make([]models.CandidateSummary, len(candidates))

	err := r.worker.Run(ctx, len(candidates), func(ctx context.Context, i int) {
		doc := candidates[i]
		extracted := r.pdfParser.ExtractText(ctx, doc)

		summary := r.summarizer.Summarize(ctx, extracted.Text, doc.Filename)
		summary.CandidateID = doc.ID
		summary.Order = doc.Order
		summaries[i] = summary
	})
	if err != nil {
		return nil, fmt.Errorf("ranking canceled: %w", err)
	}

	degraded, outages := 0, 0
	for _, s := range summaries {
		if s.Degraded {
			degraded++
		}
		if s.SummaryText == SummaryErrorSentinel {
			outages++
		}
	}
	if r.abortOnOutage && outages == len(summaries) {
		return nil, fmt.Errorf("%w: %d of %d summaries failed", ErrSummarizerUnavailable, outages, len(summaries))
	}

	texts := make([]string, 0, len(summaries)+1)
	for _, s := range summaries {
		texts = append(texts, s.SummaryText)
	}
	// The job description is embedded as extracted, last in the batch.
	texts = append(texts, jdText.Text)

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	scores, err := SimilarityScores(vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}

	byID := make(map[uuid.UUID]float64, len(scores))
	for i, score := range scores {
		if i < len(summaries) {
			byID[summaries[i].CandidateID] = score
		}
	}

	table, dropped := BuildRankingTable(summaries, byID)
	if dropped > 0 {
		r.logger.Warn("dropped candidates without a matching score or summary", zap.Int("dropped", dropped))
	}

	return &RankResult{
		Table:           table,
		View:            table.Filter(req.MinScore, req.MaxResults),
		TotalCandidates: len(candidates),
		Degraded:        degraded,
		Dropped:         dropped,
	}, nil
}

// withIDs returns a copy of docs where every document has an ID.
func withIDs(docs []models.Document) []models.Document {
	out := make([]models.Document, len(docs))
	for i, doc := range docs {
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
		out[i] = doc
	}
	return out
}

func rankingStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "rejected"
	case errors.Is(err, ErrJobDescriptionUnreadable):
		return "unreadable_jd"
	case errors.Is(err, ErrEmbeddingFailed), errors.Is(err, ErrSummarizerUnavailable):
		return "provider_failed"
	default:
		return "failed"
	}
}
