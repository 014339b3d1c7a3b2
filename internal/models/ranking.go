package models

import "github.com/google/uuid"

// RankingRow is one scored candidate. Score keeps full precision; display
// formatting happens at export time.
type RankingRow struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Order       int       `json:"order"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	Summary     string    `json:"summary"`
	SummaryHTML string    `json:"summary_html"`
	Score       float64   `json:"score"`
	Degraded    bool      `json:"degraded"`
}
