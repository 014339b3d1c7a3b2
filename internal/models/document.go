package models

import (
	"github.com/google/uuid"
)

type DocumentRole string

const (
	RoleJobDescription DocumentRole = "job_description"
	RoleCandidate      DocumentRole = "candidate"
)

// Document is one uploaded file. It lives for a single ranking request.
// Data takes precedence over Path when both are set.
type Document struct {
	ID       uuid.UUID    `json:"id"`
	Filename string       `json:"filename"`
	Role     DocumentRole `json:"role"`
	Order    int          `json:"order"`
	Size     int64        `json:"size"`
	Data     []byte       `json:"-"`
	Path     string       `json:"-"`
}

type ExtractedText struct {
	SourceFilename string
	Text           string
	PageCount      int
	Failed         bool
}
