package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"alfredoptarigan/cv-ranker/internal/models"
)

// FormatScore renders a score the way it appears in exports: one decimal digit.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// ToRecords converts a table into the canonical record set.
func ToRecords(table *RankingTable) []models.ExportRecord {
	rows := table.Rows()
	records := make([]models.ExportRecord, len(rows))
	for i, row := range rows {
		records[i] = models.ExportRecord{
			Name:     row.Name,
			Filename: row.Filename,
			Summary:  row.Summary,
			Score:    FormatScore(row.Score),
		}
	}
	return records
}

// TableFromRecords rebuilds a table from an exported record set. Scores come
// back at the exported one-decimal precision.
func TableFromRecords(records []models.ExportRecord) (*RankingTable, error) {
	names := make([]string, len(records))
	filenames := make([]string, len(records))
	summaries := make([]string, len(records))
	scores := make([]float64, len(records))

	for i, rec := range records {
		score, err := strconv.ParseFloat(strings.TrimSpace(rec.Score), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d has invalid score %q", ErrInvalidInput, i+1, rec.Score)
		}
		names[i] = rec.Name
		filenames[i] = rec.Filename
		summaries[i] = rec.Summary
		scores[i] = score
	}

	return BuildRankingTableFromColumns(names, filenames, summaries, scores), nil
}

func WriteCSV(w io.Writer, records []models.ExportRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.ExportColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write([]string{rec.Name, rec.Filename, rec.Summary, rec.Score}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func ReadCSV(r io.Reader) ([]models.ExportRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(models.ExportColumns)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read csv: %v", ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: csv has no header row", ErrInvalidInput)
	}

	header := rows[0]
	for i, col := range models.ExportColumns {
		got := strings.TrimPrefix(strings.TrimSpace(header[i]), "\ufeff")
		if got != col {
			return nil, fmt.Errorf("%w: csv column %d is %q, expected %q", ErrInvalidInput, i+1, got, col)
		}
	}

	records := make([]models.ExportRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, models.ExportRecord{
			Name:     row[0],
			Filename: row[1],
			Summary:  row[2],
			Score:    row[3],
		})
	}
	return records, nil
}

func WriteJSON(w io.Writer, records []models.ExportRecord) error {
	if records == nil {
		records = []models.ExportRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

func ReadJSON(r io.Reader) ([]models.ExportRecord, error) {
	var records []models.ExportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode records: %v", ErrInvalidInput, err)
	}
	return records, nil
}

var markdownRenderer = goldmark.New(
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// MarkdownToHTML converts the model's light markdown into HTML. Raw HTML in
// the input is dropped by the renderer.
func MarkdownToHTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

type reportRow struct {
	Rank     int
	Name     string
	Filename string
	Summary  template.HTML
	Score    string
}

type reportData struct {
	Title       string
	GeneratedAt string
	Columns     []string
	Rows        []reportRow
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.5rem; vertical-align: top; text-align: left; }
th { background: #f4f4f4; }
td.score { text-align: right; white-space: nowrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt}}</p>
<table>
<thead><tr><th>#</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Rank}}</td><td>{{.Name}}</td><td>{{.Filename}}</td><td>{{.Summary}}</td><td class="score">{{.Score}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// RenderHTML writes a standalone HTML report. With markdown set, summaries
// are rendered from markdown; otherwise they are escaped and line breaks kept.
func RenderHTML(w io.Writer, title string, records []models.ExportRecord, markdown bool) error {
	rows := make([]reportRow, len(records))
	for i, rec := range records {
		summary, err := renderSummary(rec.Summary, markdown)
		if err != nil {
			return err
		}
		rows[i] = reportRow{
			Rank:     i + 1,
			Name:     rec.Name,
			Filename: rec.Filename,
			Summary:  summary,
			Score:    rec.Score,
		}
	}
	return executeReport(w, title, rows)
}

// RenderTableHTML writes the report straight from a ranking table. Rows keep
// the display variant of their summary, so the model's line breaks survive.
func RenderTableHTML(w io.Writer, title string, table *RankingTable) error {
	tableRows := table.Rows()
	rows := make([]reportRow, len(tableRows))
	for i, row := range tableRows {
		summary := template.HTML(row.SummaryHTML)
		if row.SummaryHTML == "" {
			summary, _ = renderSummary(row.Summary, false)
		}
		rows[i] = reportRow{
			Rank:     i + 1,
			Name:     row.Name,
			Filename: row.Filename,
			Summary:  summary,
			Score:    FormatScore(row.Score),
		}
	}
	return executeReport(w, title, rows)
}

func executeReport(w io.Writer, title string, rows []reportRow) error {
	if strings.TrimSpace(title) == "" {
		title = "Candidate Ranking"
	}

	data := reportData{
		Title:       title,
		GeneratedAt: time.Now().UTC().Format(time.RFC1123),
		Columns:     models.ExportColumns,
		Rows:        rows,
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func renderSummary(summary string, markdown bool) (template.HTML, error) {
	if markdown {
		return MarkdownToHTML(summary)
	}
	escaped := template.HTMLEscapeString(summary)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")), nil
}
