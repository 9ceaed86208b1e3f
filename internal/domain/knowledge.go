package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Document is an indexed knowledge-base document.
type Document struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	TrailID     string `json:"trail_id"`
	StepID      string `json:"step_id"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	UploadedAt  string `json:"uploaded_at"`
	ChunksCount int    `json:"chunks_count,omitempty"`
}

// DocumentList wraps the documents listing.
type DocumentList struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// UploadResult is returned after a document is indexed.
type UploadResult struct {
	DocumentID       string  `json:"document_id"`
	Filename         string  `json:"filename"`
	ChunksIndexed    int     `json:"chunks_indexed"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	TrailID          string  `json:"trail_id"`
	StepID           string  `json:"step_id"`
	Status           string  `json:"status"`
}

// ReindexResult reports a single document reindex.
type ReindexResult struct {
	DocumentID       string  `json:"document_id"`
	Reindexed        bool    `json:"reindexed"`
	ChunksIndexed    int     `json:"chunks_indexed"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// ReindexAllResult summarizes a full reindex.
type ReindexAllResult struct {
	TotalDocuments int      `json:"total_documents"`
	SuccessCount   int      `json:"success_count"`
	ErrorCount     int      `json:"error_count"`
	Errors         []string `json:"errors"`
	TotalTimeMS    float64  `json:"total_time_ms"`
}

// DeleteResult confirms a document removal.
type DeleteResult struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// MaxDocumentBytes is the largest knowledge-base upload the backend accepts.
const MaxDocumentBytes = 50 << 20

// Upload defaults applied when the form leaves a field blank.
const (
	DefaultDocumentScope   = "geral"
	DefaultDocumentVersion = "1.0"
)

var allowedDocumentExtensions = []string{".pdf", ".docx", ".pptx", ".txt"}

// AllowedDocumentExtensions lists the accepted file types.
func AllowedDocumentExtensions() []string {
	return append([]string(nil), allowedDocumentExtensions...)
}

// ValidateUpload checks a document's type and size before it is indexed.
func ValidateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowedDocumentExtensions, ext) {
		return fmt.Errorf("Formato não suportado: %q. Use: %s", ext, strings.Join(allowedDocumentExtensions, ", "))
	}
	if size <= 0 {
		return errors.New("Arquivo vazio")
	}
	if size > MaxDocumentBytes {
		return fmt.Errorf("Arquivo muito grande: máximo de %d MB", MaxDocumentBytes>>20)
	}
	return nil
}
