package models

import "github.com/google/uuid"

// CandidateSummary is the summarizer output for one candidate document.
//
// SummaryText is the whitespace-normalized variant used for embedding and
// CSV export; SummaryHTML is the display variant with line breaks kept as
// <br> tags. Both come from the same model response.
type CandidateSummary struct {
	CandidateID    uuid.UUID
	Order          int
	ApplicantName  string
	SummaryText    string
	SummaryHTML    string
	SourceFilename string
	Degraded       bool
	FailureReason  string
}
