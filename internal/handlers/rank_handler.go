package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

const (
	fieldJobDescription = "jd_file"
	fieldCandidates     = "cv_files"
)

type RankHandler struct {
	uploads  services.UploadService
	ranker   services.RankerService
	defaults config.RankingConfig
	logger   *zap.Logger
}

func NewRankHandler(
	uploads services.UploadService,
	ranker services.RankerService,
	defaults config.RankingConfig,
	log *zap.Logger,
) *RankHandler {
	return &RankHandler{
		uploads:  uploads,
		ranker:   ranker,
		defaults: defaults,
		logger:   logger.OrNop(log),
	}
}

// HandleRank handles POST /rank
func (h *RankHandler) HandleRank(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "failed to parse multipart form")
	}

	minScore, maxResults, err := h.parseLimits(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	jdFiles := form.File[fieldJobDescription]
	cvFiles := form.File[fieldCandidates]

	req := services.RankRequest{
		JobDescriptions: make([]models.Document, 0, len(jdFiles)),
		Candidates:      make([]models.Document, 0, len(cvFiles)),
		MinScore:        minScore,
		MaxResults:      maxResults,
	}

	for i, fh := range jdFiles {
		doc, err := h.uploads.ReadUpload(fh, models.RoleJobDescription, i)
		if err != nil {
			status, msg := statusFor(err)
			return respondError(c, status, msg)
		}
		req.JobDescriptions = append(req.JobDescriptions, doc)
	}

	for i, fh := range cvFiles {
		doc, err := h.uploads.ReadUpload(fh, models.RoleCandidate, i)
		if err != nil {
			status, msg := statusFor(err)
			return respondError(c, status, msg)
		}
		req.Candidates = append(req.Candidates, doc)
	}

	ctx := c.UserContext()
	if h.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.defaults.Timeout)
		defer cancel()
	}

	result, err := h.ranker.Rank(ctx, req)
	if err != nil {
		status, msg := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("rank request failed", zap.Int("status", status), zap.Error(err))
		}
		return respondError(c, status, msg)
	}

	return c.JSON(models.RankResponse{
		Records:          services.ToRecords(result.View),
		Candidates:       result.View.Rows(),
		TotalCandidates:  result.TotalCandidates,
		RankedCandidates: result.View.Len(),
		Degraded:         result.Degraded,
		Dropped:          result.Dropped,
		MinScore:         minScore,
		MaxResults:       maxResults,
	})
}

func (h *RankHandler) parseLimits(c *fiber.Ctx) (float64, int, error) {
	minScore := h.defaults.MinScore
	maxResults := h.defaults.MaxResults

	if raw := strings.TrimSpace(c.FormValue("min_score")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			return 0, 0, fmt.Errorf("min_score must be a number between 0 and 100")
		}
		minScore = v
	}

	if raw := strings.TrimSpace(c.FormValue("max_results")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("max_results must be a non-negative integer")
		}
		maxResults = v
	}

	return minScore, maxResults, nil
}
