package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/models"
)

type UploadService interface {
	// ReadUpload validates one uploaded file and loads it into memory.
	ReadUpload(file *multipart.FileHeader, role models.DocumentRole, order int) (models.Document, error)
	// ReadFile builds a document from an already opened source, as the CLI does.
	ReadFile(r io.Reader, filename string, role models.DocumentRole, order int) (models.Document, error)
	ValidateBatch(jobDescriptions, candidates []models.Document) error
}

type uploadService struct {
	maxFileSize       int64
	allowedExtensions []string
}

func NewUploadService(cfg config.StorageConfig) UploadService {
	exts := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		exts = append(exts, strings.ToLower(ext))
	}
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}

	return &uploadService{
		maxFileSize:       cfg.MaxFileSize,
		allowedExtensions: exts,
	}
}

func (s *uploadService) ReadUpload(file *multipart.FileHeader, role models.DocumentRole, order int) (models.Document, error) {
	if file == nil {
		return models.Document{}, newValidationError("missing file")
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return models.Document{}, newValidationError("file %s exceeds maximum size of %d bytes", file.Filename, s.maxFileSize)
	}

	src, err := file.Open()
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return s.ReadFile(src, file.Filename, role, order)
}

func (s *uploadService) ReadFile(r io.Reader, filename string, role models.DocumentRole, order int) (models.Document, error) {
	// Validate file extension
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(s.allowedExtensions, ext) {
		return models.Document{}, newValidationError("invalid file extension for %s: %q", filename, ext)
	}

	data, tooLarge, err := readAllLimited(r, s.maxFileSize)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if tooLarge {
		return models.Document{}, newValidationError("file %s exceeds maximum size of %d bytes", filename, s.maxFileSize)
	}
	if len(data) == 0 {
		return models.Document{}, newValidationError("file %s is empty", filename)
	}
	if ctype := http.DetectContentType(data); ctype != "application/pdf" {
		return models.Document{}, newValidationError("file %s is not a PDF (detected %s)", filename, ctype)
	}

	return models.Document{
		ID:       uuid.New(),
		Filename: filepath.Base(filename),
		Role:     role,
		Order:    order,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// ValidateBatch enforces exactly one job description and at least one CV.
func (s *uploadService) ValidateBatch(jobDescriptions, candidates []models.Document) error {
	switch {
	case len(jobDescriptions) == 0:
		return newValidationError("a job description PDF is required")
	case len(jobDescriptions) > 1:
		return newValidationError("exactly one job description PDF is allowed, got %d", len(jobDescriptions))
	case len(candidates) == 0:
		return newValidationError("at least one CV PDF is required")
	}
	return nil
}

// readAllLimited reads at most limit bytes from r and reports whether the
// source was larger. A non-positive limit reads everything.
func readAllLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		return data, false, err
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return nil, true, nil
	}
	return data, false, nil
}
