package services

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

const (
	NoContentSummary          = "No content could be extracted from this document."
	SummaryErrorSentinel      = "Error: Could not generate summary."
	SummaryParseErrorSentinel = "Error: Could not parse summary."

	// A first line longer than this is body text, not a name heading.
	maxNameRunes = 80
)

type SummarizerService interface {
	Summarize(ctx context.Context, text, filename string) models.CandidateSummary
}

type textGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error)
}

type summarizerService struct {
	generator     textGenerator
	promptBuilder *PromptBuilder
	retry         RetryPolicy
	metrics       *Metrics
	logger        *zap.Logger
}

func NewSummarizerService(generator textGenerator, retry RetryPolicy, metrics *Metrics, log *zap.Logger) SummarizerService {
	log = logger.OrNop(log)
	retry.Logger = log
	if retry.OnRetry == nil {
		retry.OnRetry = func(op string, _ int, _ error) { metrics.RetryAttempted(op) }
	}
	retry.ApplyDefaults()

	return &summarizerService{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
		retry:         retry,
		metrics:       metrics,
		logger:        log,
	}
}

// Summarize never fails: provider or parse failures produce a degraded
// summary carrying a sentinel text and the filename as applicant name.
func (s *summarizerService) Summarize(ctx context.Context, text, filename string) models.CandidateSummary {
	if strings.TrimSpace(text) == "" {
		s.metrics.SummaryDone("empty")
		s.logger.Info("skipping summary for document without text", zap.String("filename", filename))
		return models.CandidateSummary{
			ApplicantName:  filename,
			SummaryText:    NoContentSummary,
			SummaryHTML:    html.EscapeString(NoContentSummary),
			SourceFilename: filename,
		}
	}

	prompt := s.promptBuilder.BuildSummaryPrompt(text, filename)

	var raw string
	err := s.retry.Do(ctx, "summarize", func(ctx context.Context) error {
		out, err := s.generator.GenerateText(ctx, s.promptBuilder.SystemPrompt(), prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		s.metrics.SummaryDone("degraded")
		s.logger.Warn("summary failed, degrading row",
			zap.String("filename", filename),
			zap.String("kind", string(ErrorKindOf(err))),
			zap.Error(err),
		)
		return models.CandidateSummary{
			ApplicantName:  filename,
			SummaryText:    SummaryErrorSentinel,
			SummaryHTML:    html.EscapeString(SummaryErrorSentinel),
			SourceFilename: filename,
			Degraded:       true,
			FailureReason:  err.Error(),
		}
	}

	parsed := ParseSummaryResponse(raw, filename)
	if !parsed.OK {
		s.metrics.SummaryDone("parse_error")
		s.logger.Warn("summary response could not be parsed",
			zap.String("filename", filename),
			zap.String("response_preview", logger.TruncateForLog(raw, maxLogLength)),
		)
		return models.CandidateSummary{
			ApplicantName:  parsed.Name,
			SummaryText:    SummaryParseErrorSentinel,
			SummaryHTML:    html.EscapeString(SummaryParseErrorSentinel),
			SourceFilename: filename,
			Degraded:       true,
			FailureReason:  "unparseable summary response",
		}
	}

	s.metrics.SummaryDone("ok")
	return models.CandidateSummary{
		ApplicantName:  parsed.Name,
		SummaryText:    parsed.Clean,
		SummaryHTML:    parsed.Display,
		SourceFilename: filename,
	}
}

// ParsedSummary holds both renderings of one model response.
type ParsedSummary struct {
	Name    string
	Clean   string
	Display string
	OK      bool
}

type structuredSummary struct {
	Name          string `json:"name"`
	ApplicantName string `json:"applicant_name"`
	Summary       string `json:"summary"`
}

// ParseSummaryResponse accepts either a JSON object with name and summary
// fields or plain text whose first line is the applicant's name. The name
// falls back to filename when none can be found.
func ParseSummaryResponse(raw, filename string) ParsedSummary {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ParsedSummary{Name: filename}
	}

	name, body, ok := parseStructured(raw)
	if !ok {
		name, body = parsePlain(raw)
	}

	if name == "" {
		name = filename
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return ParsedSummary{Name: name}
	}

	return ParsedSummary{
		Name:    name,
		Clean:   strings.Join(strings.Fields(body), " "),
		Display: toDisplayHTML(body),
		OK:      true,
	}
}

func parseStructured(raw string) (string, string, bool) {
	candidate := extractJSON(raw)
	if !strings.HasPrefix(candidate, "{") {
		return "", "", false
	}

	var out structuredSummary
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return "", "", false
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", "", false
	}

	name := out.Name
	if strings.TrimSpace(name) == "" {
		name = out.ApplicantName
	}
	return cleanName(name), out.Summary, true
}

func parsePlain(raw string) (string, string) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first == -1 {
		return "", ""
	}

	name := cleanName(lines[first])
	if !looksLikeName(name) {
		return "", strings.Join(lines[first:], "\n")
	}
	return name, strings.Join(lines[first+1:], "\n")
}

func cleanName(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "# ")
	line = strings.Map(func(r rune) rune {
		if r == '*' || r == '_' || r == '`' {
			return -1
		}
		return r
	}, line)
	line = strings.TrimSpace(line)

	lower := strings.ToLower(line)
	for _, label := range []string{"applicant name:", "name:"} {
		if strings.HasPrefix(lower, label) {
			line = strings.TrimSpace(line[len(label):])
			break
		}
	}

	return strings.Join(strings.Fields(line), " ")
}

func looksLikeName(name string) bool {
	return name != "" && utf8.RuneCountInString(name) <= maxNameRunes
}

func toDisplayHTML(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(strings.TrimSpace(line))
	}
	return strings.Join(lines, "<br>")
}

// extractJSON strips markdown fences and returns the outermost JSON object in text.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
