package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/repository"
	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

const chunkBytes = 500

// KnowledgeHandler manages the knowledge-base document registry. Indexing
// is simulated: only the metadata is kept.
type KnowledgeHandler struct {
	docs   repository.DocumentRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewKnowledgeHandler constructs handler.
func NewKnowledgeHandler(docs repository.DocumentRepository, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{docs: docs, logger: logger, now: time.Now}
}

// List handles GET /admin/knowledge/documents.
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	docs, err := h.docs.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(domain.DocumentList{Documents: docs, Total: len(docs)}))
}

// Upload handles POST /admin/knowledge/upload (multipart).
func (h *KnowledgeHandler) Upload(c *fiber.Ctx) error {
	start := h.now()

	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewDomainError("VALIDATION_FAILED", "Arquivo é obrigatório", fiber.StatusUnprocessableEntity, nil)
	}
	if err := domain.ValidateUpload(header.Filename, header.Size); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	doc := domain.Document{
		ID:          uuid.NewString(),
		Filename:    header.Filename,
		TrailID:     formValue(c, "trail_id", domain.DefaultDocumentScope),
		StepID:      formValue(c, "step_id", domain.DefaultDocumentScope),
		Version:     formValue(c, "version", domain.DefaultDocumentVersion),
		Description: c.FormValue("description"),
		UploadedAt:  start.UTC().Format(time.RFC3339),
		ChunksCount: chunksFor(header.Size),
	}
	if err := h.docs.Create(c.UserContext(), doc); err != nil {
		return err
	}

	h.logger.Info("document indexed", zap.String("document_id", doc.ID), zap.String("filename", doc.Filename), zap.Int64("bytes", header.Size))
	return c.JSON(dto.Success(domain.UploadResult{
		DocumentID:       doc.ID,
		Filename:         doc.Filename,
		ChunksIndexed:    doc.ChunksCount,
		ProcessingTimeMS: elapsedMillis(start, h.now()),
		TrailID:          doc.TrailID,
		StepID:           doc.StepID,
		Status:           "indexed",
	}))
}

// Delete handles DELETE /admin/knowledge/documents/:id.
func (h *KnowledgeHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.docs.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Documento não encontrado")
		}
		return err
	}
	return c.JSON(dto.Success(domain.DeleteResult{DocumentID: id, Deleted: true}))
}

// Reindex handles POST /admin/knowledge/reindex/:id.
func (h *KnowledgeHandler) Reindex(c *fiber.Ctx) error {
	start := h.now()
	doc, err := h.docs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Documento não encontrado")
		}
		return err
	}
	return c.JSON(dto.Success(domain.ReindexResult{
		DocumentID:       doc.ID,
		Reindexed:        true,
		ChunksIndexed:    doc.ChunksCount,
		ProcessingTimeMS: elapsedMillis(start, h.now()),
	}))
}

// ReindexAll handles POST /admin/knowledge/reindex-all.
func (h *KnowledgeHandler) ReindexAll(c *fiber.Ctx) error {
	start := h.now()
	docs, err := h.docs.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(domain.ReindexAllResult{
		TotalDocuments: len(docs),
		SuccessCount:   len(docs),
		Errors:         []string{},
		TotalTimeMS:    elapsedMillis(start, h.now()),
	}))
}

func formValue(c *fiber.Ctx, key, fallback string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func chunksFor(size int64) int {
	return int(size/chunkBytes) + 1
}

func elapsedMillis(start, end time.Time) float64 {
	return float64(end.Sub(start).Microseconds()) / 1000
}
