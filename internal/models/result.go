package models

// Column names of the exported record set. The order here is the CSV column order.
const (
	ColumnName     = "Name"
	ColumnFilename = "CV Filename"
	ColumnSummary  = "Summary"
	ColumnScore    = "Similarity Score (%)"
)

var ExportColumns = []string{ColumnName, ColumnFilename, ColumnSummary, ColumnScore}

// ExportRecord is the canonical transfer format between ranking and download.
type ExportRecord struct {
	Name     string `json:"Name"`
	Filename string `json:"CV Filename"`
	Summary  string `json:"Summary"`
	Score    string `json:"Similarity Score (%)"`
}

// RankResponse carries the export records plus the ranked rows they came from.
// Candidates keep the display summary for clients that render HTML.
type RankResponse struct {
	Records          []ExportRecord `json:"records"`
	Candidates       []RankingRow   `json:"candidates"`
	TotalCandidates  int            `json:"total_candidates"`
	RankedCandidates int            `json:"ranked_candidates"`
	Degraded         int            `json:"degraded"`
	Dropped          int            `json:"dropped"`
	MinScore         float64        `json:"min_score"`
	MaxResults       int            `json:"max_results"`
}

type ExportRequest struct {
	Title   string         `json:"title"`
	Records []ExportRecord `json:"records"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
