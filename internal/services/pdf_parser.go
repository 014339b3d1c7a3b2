package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/logger"
	"alfredoptarigan/cv-ranker/internal/models"
)

type PDFParserService interface {
	// ExtractText returns the concatenated page text of doc. It never fails:
	// an unreadable document yields an empty, Failed result.
	ExtractText(ctx context.Context, doc models.Document) models.ExtractedText
}

type pdfParserService struct {
	metrics *Metrics
	logger  *zap.Logger
}

func NewPDFParserService(metrics *Metrics, log *zap.Logger) PDFParserService {
	return &pdfParserService{
		metrics: metrics,
		logger:  logger.OrNop(log),
	}
}

func (p *pdfParserService) ExtractText(ctx context.Context, doc models.Document) models.ExtractedText {
	result := models.ExtractedText{SourceFilename: doc.Filename}

	if err := ctx.Err(); err != nil {
		result.Failed = true
		p.metrics.ExtractionDone("failed")
		return result
	}

	text, pages, err := p.extract(doc)
	if err != nil {
		result.Failed = true
		p.metrics.ExtractionDone("failed")
		p.logger.Warn("failed to extract text from PDF",
			zap.String("filename", doc.Filename),
			zap.Error(err),
		)
		return result
	}

	result.Text = text
	result.PageCount = pages

	status := "ok"
	if strings.TrimSpace(text) == "" {
		status = "empty"
	}
	p.metrics.ExtractionDone(status)
	p.logger.Debug("extracted PDF text",
		zap.String("filename", doc.Filename),
		zap.Int("pages", pages),
		zap.Int("chars", len(text)),
	)
	return result
}

func (p *pdfParserService) extract(doc models.Document) (text string, pages int, err error) {
	// The PDF library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	switch {
	case len(doc.Data) > 0:
		r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
		if err != nil {
			return "", 0, fmt.Errorf("failed to open PDF: %w", err)
		}
		return readPages(r)

	case doc.Path != "":
		f, r, err := pdf.Open(doc.Path)
		if err != nil {
			return "", 0, fmt.Errorf("failed to open PDF: %w", err)
		}
		defer f.Close()
		return readPages(r)

	default:
		return "", 0, fmt.Errorf("document %q has no content", doc.Filename)
	}
}

func readPages(r *pdf.Reader) (string, int, error) {
	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages, keep the rest
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), totalPage, nil
}
