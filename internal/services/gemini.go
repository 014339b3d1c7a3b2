package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
)

const (
	defaultSummaryModel   = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
	embeddingTaskType     = "SEMANTIC_SIMILARITY"
	maxOutputTokens       = 1024
	maxLogLength          = 200
)

// GeminiService is a single-attempt gateway to the Gemini API. Retries are
// the caller's concern; every error it returns is a *ProviderError.
type GeminiService interface {
	GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// contentModels is the subset of *genai.Models used here.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type geminiService struct {
	models      contentModels
	modelName   string
	embedModel  string
	temperature float32
	limiter     *rate.Limiter
	logger      *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (GeminiService, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiService(client.Models, cfg, log), nil
}

func newGeminiService(models contentModels, cfg config.GeminiConfig, log *zap.Logger) *geminiService {
	modelName := strings.TrimSpace(cfg.SummaryModel)
	if modelName == "" {
		modelName = defaultSummaryModel
	}
	embedModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embedModel == "" {
		embedModel = defaultEmbeddingModel
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &geminiService{
		models:      models,
		modelName:   modelName,
		embedModel:  embedModel,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(limit, burst),
		logger: logger.OrNop(log).With(
			zap.String("ai_provider", "gemini"),
			zap.String("ai_model", modelName),
			zap.String("ai_embedding_model", embedModel),
		),
	}
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error) {
	const op = "generate content"

	if err := g.limiter.Wait(ctx); err != nil {
		return "", classifyError(op, err)
	}

	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxOutputTokens,
	}
	if strings.TrimSpace(systemPrompt) != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, maxLogLength)),
	)

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyError(op, err)
	}
	if resp == nil {
		return "", &ProviderError{Op: op, Kind: KindEmptyResponse, Err: errors.New("nil response")}
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
		// Only the first usable candidate is read.
		if builder.Len() > 0 {
			break
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", &ProviderError{Op: op, Kind: KindEmptyResponse, Err: errors.New("gemini api returned empty response")}
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, maxLogLength)),
	)

	return output, nil
}

// EmbedTexts implements GeminiService. The returned slice has one vector per
// input text, in input order.
func (g *geminiService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "embed content"

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, classifyError(op, err)
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}
	}

	g.logger.Debug("gemini embed content request", zap.Int("batch_size", len(texts)))

	resp, err := g.models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: embeddingTaskType,
	})
	if err != nil {
		return nil, classifyError(op, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, &ProviderError{Op: op, Kind: KindEmptyResponse, Err: errors.New("empty embedding result")}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &ProviderError{
			Op:   op,
			Kind: KindEmptyResponse,
			Err:  fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		}
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, &ProviderError{Op: op, Kind: KindEmptyResponse, Err: fmt.Errorf("embedding %d is empty", i)}
		}
		vectors[i] = embedding.Values
	}

	return vectors, nil
}

// classifyError maps a genai or transport error onto the provider error taxonomy.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return &ProviderError{Op: op, Kind: kindFromStatus(apiErr.Code, apiErr.Status), Code: apiErr.Code, Err: err}
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		return &ProviderError{Op: op, Kind: kindFromStatus(apiErrPtr.Code, apiErrPtr.Status), Code: apiErrPtr.Code, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Op: op, Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Op: op, Kind: KindTimeout, Err: err}
	}

	return &ProviderError{Op: op, Kind: KindUnknown, Err: err}
}

func kindFromStatus(code int, status string) ErrorKind {
	switch code {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusInternalServerError:
		return KindInternal
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return KindBadRequest
	}

	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "RESOURCE_EXHAUSTED":
		return KindRateLimited
	case "INTERNAL":
		return KindInternal
	case "UNAVAILABLE":
		return KindUnavailable
	case "DEADLINE_EXCEEDED":
		return KindTimeout
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return KindAuth
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "NOT_FOUND":
		return KindBadRequest
	}

	return KindUnknown
}
