package service

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spec-kit/tr4ction-console/internal/apiclient"
	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// UploadRequest describes a knowledge-base upload. Blank scope fields fall
// back to "geral" and the version to "1.0".
type UploadRequest struct {
	Filename    string
	Content     io.Reader
	Size        int64
	TrailID     string
	StepID      string
	Description string
	Version     string
}

// KnowledgeService manages the admin knowledge base.
type KnowledgeService struct {
	api API
}

// NewKnowledgeService builds the service.
func NewKnowledgeService(api API) *KnowledgeService {
	return &KnowledgeService{api: api}
}

// List returns every indexed document.
func (s *KnowledgeService) List(ctx context.Context) (domain.DocumentList, error) {
	var out domain.DocumentList
	if err := getData(ctx, s.api, "/admin/knowledge/documents", &out); err != nil {
		return domain.DocumentList{}, err
	}
	if out.Documents == nil {
		out.Documents = []domain.Document{}
	}
	return out, nil
}

// Upload validates type and size locally, then sends the document.
func (s *KnowledgeService) Upload(ctx context.Context, req UploadRequest) (domain.UploadResult, error) {
	if err := domain.ValidateUpload(req.Filename, req.Size); err != nil {
		return domain.UploadResult{}, invalid(err.Error())
	}

	fields := map[string]string{
		"trail_id":    orDefault(req.TrailID, domain.DefaultDocumentScope),
		"step_id":     orDefault(req.StepID, domain.DefaultDocumentScope),
		"description": strings.TrimSpace(req.Description),
		"version":     orDefault(req.Version, domain.DefaultDocumentVersion),
	}

	var raw json.RawMessage
	file := apiclient.FilePart{Filename: filepath.Base(req.Filename), Content: req.Content}
	if err := s.api.Upload(ctx, "/admin/knowledge/upload", fields, file, &raw); err != nil {
		return domain.UploadResult{}, err
	}
	var out domain.UploadResult
	err := decodeData(raw, &out)
	return out, err
}

// UploadFile opens path and uploads it.
func (s *KnowledgeService) UploadFile(ctx context.Context, path string, req UploadRequest) (domain.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadResult{}, &apiclient.Error{Kind: apiclient.KindInvalidRequest, Message: "Não foi possível abrir " + path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.UploadResult{}, &apiclient.Error{Kind: apiclient.KindInvalidRequest, Message: "Não foi possível ler " + path, Err: err}
	}
	req.Filename = filepath.Base(path)
	req.Content = f
	req.Size = info.Size()
	return s.Upload(ctx, req)
}

// Delete removes a document.
func (s *KnowledgeService) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	var raw json.RawMessage
	if err := s.api.Delete(ctx, "/admin/knowledge/documents/"+url.PathEscape(id), &raw); err != nil {
		return domain.DeleteResult{}, err
	}
	var out domain.DeleteResult
	err := decodeData(raw, &out)
	return out, err
}

// Reindex re-processes one document.
func (s *KnowledgeService) Reindex(ctx context.Context, id string) (domain.ReindexResult, error) {
	var out domain.ReindexResult
	err := postData(ctx, s.api, "/admin/knowledge/reindex/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ReindexAll re-processes the whole knowledge base. It is a heavy operation
// and is never retried.
func (s *KnowledgeService) ReindexAll(ctx context.Context) (domain.ReindexAllResult, error) {
	var out domain.ReindexAllResult
	err := postData(ctx, s.api, "/admin/knowledge/reindex-all", nil, &out, apiclient.NoRetry())
	return out, err
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
