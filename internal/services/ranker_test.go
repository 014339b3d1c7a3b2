package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/models"
)

type fakeParser struct {
	texts map[string]string
}

func (f fakeParser) ExtractText(_ context.Context, doc models.Document) models.ExtractedText {
	text, ok := f.texts[doc.Filename]
	return models.ExtractedText{SourceFilename: doc.Filename, Text: text, Failed: !ok}
}

type rankerFixture struct {
	generator *fakeGenerator
	embedder  *fakeEmbedder
	metrics   *Metrics
	ranker    RankerService
}

var fixtureVectors = map[string][]float32{
	"Alice summary.": {1, 0},
	"Bob summary.":   {1, 1},
	"Carol summary.": {0, 1},
	"jd text":        {1, 0},
}

func newRankerFixture(abort bool) *rankerFixture {
	f := &rankerFixture{
		generator: &fakeGenerator{respond: func(prompt string) (string, error) {
			for _, name := range []string{"Alice", "Bob", "Carol"} {
				if strings.Contains(prompt, strings.ToLower(name)+" cv") {
					return name + "\n" + name + " summary.", nil
				}
			}
			return "", errors.New("unexpected prompt")
		}},
		embedder: &fakeEmbedder{embed: func(texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				v, ok := fixtureVectors[text]
				if !ok {
					v = []float32{0, 1}
				}
				out[i] = v
			}
			return out, nil
		}},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}

	parser := fakeParser{texts: map[string]string{
		"jd.pdf":    "jd text",
		"blank.pdf": "",
		"alice.pdf": "alice cv",
		"bob.pdf":   "bob cv",
		"carol.pdf": "carol cv",
	}}

	f.ranker = NewRankerService(RankerDeps{
		Uploads:    NewUploadService(config.StorageConfig{MaxFileSize: 1024}),
		PDFParser:  parser,
		Summarizer: NewSummarizerService(f.generator, fastRetry(), f.metrics, nil),
		Embedder:   NewEmbeddingService(f.embedder, fastRetry(), f.metrics, nil),
		Worker:     NewWorker(2, nil),
		Metrics:    f.metrics,

		AbortOnSummarizerOutage: abort,
	})
	return f
}

func docs(role models.DocumentRole, filenames ...string) []models.Document {
	out := make([]models.Document, len(filenames))
	for i, name := range filenames {
		out[i] = models.Document{Filename: name, Role: role, Order: i}
	}
	return out
}

func TestRank_OrdersAndFilters(t *testing.T) {
	f := newRankerFixture(false)

	result, err := f.ranker.Rank(context.Background(), RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "jd.pdf"),
		Candidates:      docs(models.RoleCandidate, "carol.pdf", "bob.pdf", "alice.pdf"),
		MinScore:        50,
		MaxResults:      10,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalCandidates)
	assert.Equal(t, 3, result.Table.Len())
	assert.Zero(t, result.Degraded)
	assert.Zero(t, result.Dropped)

	view := result.View.Rows()
	require.Len(t, view, 2)
	assert.Equal(t, "Alice", view[0].Name)
	assert.Equal(t, "alice.pdf", view[0].Filename)
	assert.Equal(t, 100.0, view[0].Score)
	assert.Equal(t, "Bob", view[1].Name)
	assert.Equal(t, 70.71, view[1].Score)

	require.Len(t, f.embedder.batches, 1)
	batch := f.embedder.batches[0]
	assert.Equal(t, "jd text", batch[len(batch)-1])
	assert.Equal(t, []string{"Carol summary.", "Bob summary.", "Alice summary."}, batch[:3])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.rankings.WithLabelValues("ok")))
}

func TestRank_RowsKeepDisplaySummary(t *testing.T) {
	f := newRankerFixture(false)
	f.generator.respond = func(string) (string, error) {
		return "Alice\nLine one.\nLine two.", nil
	}

	result, err := f.ranker.Rank(context.Background(), RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "jd.pdf"),
		Candidates:      docs(models.RoleCandidate, "alice.pdf"),
	})
	require.NoError(t, err)

	rows := result.View.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Line one. Line two.", rows[0].Summary)
	assert.Equal(t, "Line one.<br>Line two.", rows[0].SummaryHTML)
}

func TestRank_BlankCandidateKeepsItsRow(t *testing.T) {
	f := newRankerFixture(false)

	result, err := f.ranker.Rank(context.Background(), RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "jd.pdf"),
		Candidates:      docs(models.RoleCandidate, "alice.pdf", "blank.pdf"),
	})
	require.NoError(t, err)

	rows := result.Table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "blank.pdf", rows[1].Name)
	assert.Equal(t, NoContentSummary, rows[1].Summary)
	assert.Equal(t, 1, f.generator.Calls())
}

func TestRank_RejectsJobDescriptionCount(t *testing.T) {
	for name, jds := range map[string][]models.Document{
		"none": nil,
		"two":  docs(models.RoleJobDescription, "jd.pdf", "jd.pdf"),
	} {
		t.Run(name, func(t *testing.T) {
			f := newRankerFixture(false)

			_, err := f.ranker.Rank(context.Background(), RankRequest{
				JobDescriptions: jds,
				Candidates:      docs(models.RoleCandidate, "alice.pdf"),
			})

			assert.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, f.generator.Calls())
			assert.Zero(t, f.embedder.calls)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.rankings.WithLabelValues("rejected")))
		})
	}
}

func TestRank_UnreadableJobDescription(t *testing.T) {
	f := newRankerFixture(false)

	_, err := f.ranker.Rank(context.Background(), RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "blank.pdf"),
		Candidates:      docs(models.RoleCandidate, "alice.pdf"),
	})

	assert.ErrorIs(t, err, ErrJobDescriptionUnreadable)
	assert.Zero(t, f.generator.Calls())
}

func TestRank_EmbeddingOutageIsFatal(t *testing.T) {
	f := newRankerFixture(false)
	f.embedder.embed = func([]string) ([][]float32, error) {
		return nil, &ProviderError{Op: "embed", Kind: KindUnavailable, Code: 503, Err: errors.New("down")}
	}

	result, err := f.ranker.Rank(context.Background(), RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "jd.pdf"),
		Candidates:      docs(models.RoleCandidate, "alice.pdf", "bob.pdf"),
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.rankings.WithLabelValues("provider_failed")))
}

func TestRank_SummarizerOutage(t *testing.T) {
	authErr := &ProviderError{Op: "generate", Kind: KindAuth, Code: 403, Err: errors.New("denied")}
	req := RankRequest{
		JobDescriptions: docs(models.RoleJobDescription, "jd.pdf"),
		Candidates:      docs(models.RoleCandidate, "alice.pdf", "bob.pdf"),
	}

	t.Run("degrades by default", func(t *testing.T) {
		f := newRankerFixture(false)
		f.generator.respond = func(string) (string, error) { return "", authErr }

		result, err := f.ranker.Rank(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Degraded)
		for _, row := range result.Table.Rows() {
			assert.True(t, row.Degraded)
			assert.Equal(t, SummaryErrorSentinel, row.Summary)
			assert.Equal(t, row.Filename, row.Name)
		}
	})

	t.Run("aborts when configured", func(t *testing.T) {
		f := newRankerFixture(true)
		f.generator.respond = func(string) (string, error) { return "", authErr }

		_, err := f.ranker.Rank(context.Background(), req)

		assert.ErrorIs(t, err, ErrSummarizerUnavailable)
		assert.Zero(t, f.embedder.calls)
	})
}
