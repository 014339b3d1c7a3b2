package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"alfredoptarigan/cv-ranker/internal/config"
)

type fakeModels struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error
	embedResp    *genai.EmbedContentResponse
	embedErr     error

	lastModel    string
	lastConfig   *genai.GenerateContentConfig
	lastEmbedCfg *genai.EmbedContentConfig
	embedInputs  int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.lastModel = model
	f.lastConfig = cfg
	return f.generateResp, f.generateErr
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.lastModel = model
	f.lastEmbedCfg = cfg
	f.embedInputs = len(contents)
	return f.embedResp, f.embedErr
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGeminiService_GenerateText(t *testing.T) {
	models := &fakeModels{generateResp: textResponse("Jane Doe", "Backend engineer.")}
	svc := newGeminiService(models, config.GeminiConfig{Temperature: 0.3}, nil)

	out, err := svc.GenerateText(context.Background(), "persona", "summarize")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe\nBackend engineer.", out)
	assert.Equal(t, defaultSummaryModel, models.lastModel)
	require.NotNil(t, models.lastConfig.SystemInstruction)
	assert.Equal(t, "persona", models.lastConfig.SystemInstruction.Parts[0].Text)
	require.NotNil(t, models.lastConfig.Temperature)
	assert.InDelta(t, 0.3, *models.lastConfig.Temperature, 1e-6)
}

func TestGeminiService_GenerateTextEmpty(t *testing.T) {
	models := &fakeModels{generateResp: textResponse("  ")}
	svc := newGeminiService(models, config.GeminiConfig{}, nil)

	_, err := svc.GenerateText(context.Background(), "", "summarize")
	require.Error(t, err)
	assert.Equal(t, KindEmptyResponse, ErrorKindOf(err))
	assert.False(t, IsTransient(err))
}

func TestGeminiService_EmbedTexts(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0}},
			{Values: []float32{0, 1}},
		},
	}}
	svc := newGeminiService(models, config.GeminiConfig{EmbeddingModel: "custom-embedding"}, nil)

	vectors, err := svc.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, "custom-embedding", models.lastModel)
	assert.Equal(t, 2, models.embedInputs)
	assert.Equal(t, embeddingTaskType, models.lastEmbedCfg.TaskType)
}

func TestGeminiService_EmbedTextsEmptyInput(t *testing.T) {
	models := &fakeModels{}
	svc := newGeminiService(models, config.GeminiConfig{}, nil)

	vectors, err := svc.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, models.embedInputs)
}

func TestGeminiService_EmbedTextsCountMismatch(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
	}}
	svc := newGeminiService(models, config.GeminiConfig{}, nil)

	_, err := svc.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, KindEmptyResponse, ErrorKindOf(err))
}

func TestClassifyError(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{name: "429", err: genai.APIError{Code: 429, Message: "quota"}, kind: KindRateLimited},
		{name: "500", err: genai.APIError{Code: 500}, kind: KindInternal},
		{name: "503", err: genai.APIError{Code: 503}, kind: KindUnavailable},
		{name: "504", err: genai.APIError{Code: 504}, kind: KindTimeout},
		{name: "401", err: genai.APIError{Code: 401}, kind: KindAuth},
		{name: "400", err: genai.APIError{Code: 400}, kind: KindBadRequest},
		{name: "status only", err: genai.APIError{Status: "RESOURCE_EXHAUSTED"}, kind: KindRateLimited},
		{name: "wrapped", err: fmt.Errorf("call: %w", genai.APIError{Code: 502}), kind: KindUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, kind: KindTimeout},
		{name: "other", err: errors.New("boom"), kind: KindUnknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyError("op", tc.err)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.kind, perr.Kind)
			assert.Equal(t, "op", perr.Op)
		})
	}
}

func TestNewGeminiService_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiService(context.Background(), config.GeminiConfig{APIKey: "  "}, nil)
	assert.Error(t, err)
}
