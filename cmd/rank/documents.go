package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"alfredoptarigan/cv-ranker/internal/models"
	"alfredoptarigan/cv-ranker/internal/services"
)

// loadDocuments reads every file in dir with an allowed extension, in name
// order. Subdirectories and other files are ignored.
func loadDocuments(uploads services.UploadService, dir string, role models.DocumentRole, allowed []string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !slices.Contains(allowed, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}

		doc, err := readDocument(uploads, filepath.Join(dir, entry.Name()), role, len(docs))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func readDocument(uploads services.UploadService, path string, role models.DocumentRole, order int) (models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return uploads.ReadFile(f, filepath.Base(path), role, order)
}
