package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/auth"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/repository"
	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

// FounderHandler serves the founder portal routes.
type FounderHandler struct {
	trails   repository.TrailRepository
	progress repository.ProgressRepository
}

// NewFounderHandler constructs handler.
func NewFounderHandler(trails repository.TrailRepository, progress repository.ProgressRepository) *FounderHandler {
	return &FounderHandler{trails: trails, progress: progress}
}

// Trails handles GET /founder/trails. A step without stored progress is
// locked unless it is the first one.
func (h *FounderHandler) Trails(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ctx := c.UserContext()

	defs, err := h.trails.List(ctx)
	if err != nil {
		return err
	}

	out := make([]domain.Trail, 0, len(defs))
	for _, def := range defs {
		if def.Status != "active" {
			continue
		}
		trail := domain.Trail{ID: def.ID, Name: def.Name, Description: def.Description, Steps: []domain.Step{}}
		for idx, stepDef := range def.Steps {
			rec, found, err := h.progress.Get(ctx, string(principal.User.ID), def.ID, stepDef.ID)
			if err != nil {
				return err
			}
			step := domain.Step{ID: stepDef.ID, Name: stepDef.Name, Locked: idx > 0}
			if found {
				step.Locked = rec.Locked
				step.Completed = rec.Completed
				step.Progress = rec.Percent
			}
			trail.Steps = append(trail.Steps, step)
		}
		out = append(out, trail)
	}
	return c.JSON(out)
}

// StepSchema handles GET /founder/trails/:trail/steps/:step/schema.
func (h *FounderHandler) StepSchema(c *fiber.Ctx) error {
	trail, step, err := h.lookupStep(c)
	if err != nil {
		return err
	}
	return c.JSON(domain.StepSchema{TrailID: trail.ID, StepID: step.ID, StepName: step.Name, Fields: nonNilFields(step.Fields)})
}

// GetProgress handles GET /founder/trails/:trail/steps/:step/progress.
func (h *FounderHandler) GetProgress(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	trailID, stepID := c.Params("trail"), c.Params("step")

	rec, found, err := h.progress.Get(c.UserContext(), string(principal.User.ID), trailID, stepID)
	if err != nil {
		return err
	}
	out := domain.StepProgress{TrailID: trailID, StepID: stepID, FormData: map[string]any{}}
	if found {
		out.IsLocked = rec.Locked
		out.FormData = rec.Answers
	}
	return c.JSON(out)
}

// SaveProgress handles POST /founder/trails/:trail/steps/:step/progress.
func (h *FounderHandler) SaveProgress(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req domain.SaveProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	if req.FormData == nil {
		return apperrors.NewValidationError("formData é obrigatório", nil)
	}
	trail, step, err := h.lookupStep(c)
	if err != nil {
		return err
	}

	rec, err := h.progress.SaveAnswers(c.UserContext(), string(principal.User.ID), trail.ID, step.ID, req.FormData)
	if err != nil {
		return err
	}
	return c.JSON(dto.Success(domain.SaveProgressResult{
		TrailID:   trail.ID,
		StepID:    step.ID,
		Saved:     true,
		Progress:  rec.Percent,
		Timestamp: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}))
}

// Export handles GET /founder/trails/:trail/export/xlsx. The stub renders
// the answers as CSV; only the download mechanics matter to clients.
func (h *FounderHandler) Export(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	trail, err := h.trails.Get(c.UserContext(), c.Params("trail"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Trilha não encontrada")
		}
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"etapa", "campo", "resposta"})
	for _, step := range trail.Steps {
		rec, found, err := h.progress.Get(c.UserContext(), string(principal.User.ID), trail.ID, step.ID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		keys := make([]string, 0, len(rec.Answers))
		for k := range rec.Answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = w.Write([]string{step.Name, k, fmt.Sprint(rec.Answers[k])})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s_preenchido.csv", trail.ID))
	return c.Send(buf.Bytes())
}

func (h *FounderHandler) lookupStep(c *fiber.Ctx) (*repository.TrailDefinition, repository.StepDefinition, error) {
	trailID, stepID := c.Params("trail"), c.Params("step")
	trail, err := h.trails.Get(c.UserContext(), trailID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.StepDefinition{}, apperrors.NewNotFound("Trilha não encontrada")
		}
		return nil, repository.StepDefinition{}, err
	}
	step, _, ok := trail.Step(stepID)
	if !ok {
		return nil, repository.StepDefinition{}, apperrors.NewNotFound(fmt.Sprintf("Step %s not found in trail %s", stepID, trailID))
	}
	return trail, step, nil
}

func nonNilFields(fields []domain.Field) []domain.Field {
	if fields == nil {
		return []domain.Field{}
	}
	return fields
}
