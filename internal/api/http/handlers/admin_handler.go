package handlers

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/repository"
	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

const notStarted = "Não iniciado"

// AdminHandler serves the admin console routes except knowledge management.
type AdminHandler struct {
	users    repository.UserRepository
	trails   repository.TrailRepository
	progress repository.ProgressRepository
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users repository.UserRepository, trails repository.TrailRepository, progress repository.ProgressRepository) *AdminHandler {
	return &AdminHandler{users: users, trails: trails, progress: progress}
}

// Trails handles GET /admin/trails.
func (h *AdminHandler) Trails(c *fiber.Ctx) error {
	defs, err := h.trails.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]domain.Trail, 0, len(defs))
	for _, def := range defs {
		trail := domain.Trail{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			StepsCount:  len(def.Steps),
			Status:      def.Status,
		}
		if !def.CreatedAt.IsZero() {
			trail.CreatedAt = def.CreatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, trail)
	}
	return c.JSON(out)
}

// UpdateSchema handles PUT /admin/trails/:trail/steps/:step/schema.
func (h *AdminHandler) UpdateSchema(c *fiber.Ctx) error {
	var req dto.SchemaUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	for _, f := range req.Fields {
		if f.Name == "" || f.Type == "" {
			return apperrors.NewValidationError("todo campo precisa de name e type", nil)
		}
	}

	trail, err := h.trails.Get(c.UserContext(), c.Params("trail"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Trilha não encontrada")
		}
		return err
	}
	_, idx, ok := trail.Step(c.Params("step"))
	if !ok {
		return apperrors.NewNotFound("Etapa não encontrada")
	}

	steps := append([]repository.StepDefinition(nil), trail.Steps...)
	steps[idx].Fields = req.Fields
	if req.StepName != "" {
		steps[idx].Name = req.StepName
	}
	trail.Steps = steps
	if err := h.trails.Put(c.UserContext(), *trail); err != nil {
		return err
	}

	step := steps[idx]
	return c.JSON(dto.Success(domain.StepSchema{TrailID: trail.ID, StepID: step.ID, StepName: step.Name, Fields: nonNilFields(step.Fields)}))
}

// FoundersProgress handles GET /admin/founders/progress. Rows are sorted by
// progress ascending so founders who need attention come first.
func (h *AdminHandler) FoundersProgress(c *fiber.Ctx) error {
	ctx := c.UserContext()
	founders, err := h.users.ListByRole(ctx, domain.RoleFounder)
	if err != nil {
		return err
	}
	stepNames, err := h.stepNames(c)
	if err != nil {
		return err
	}

	out := make([]domain.FounderProgress, 0, len(founders))
	for _, founder := range founders {
		if !founder.Active {
			continue
		}
		records, err := h.progress.ListByUser(ctx, founder.ID)
		if err != nil {
			return err
		}

		total := 0
		firstTrail := ""
		steps := []domain.Step{}
		for _, rec := range records {
			total += rec.Percent
			if firstTrail == "" {
				firstTrail = rec.TrailID
			}
			if rec.TrailID != firstTrail {
				continue
			}
			name := stepNames[rec.StepID]
			if name == "" {
				name = rec.StepID
			}
			steps = append(steps, domain.Step{ID: rec.StepID, Name: name, Progress: rec.Percent, Completed: rec.Completed, Locked: rec.Locked})
		}
		avg := 0
		if len(records) > 0 {
			avg = total / len(records)
		}

		name := founder.Name
		if name == "" {
			name = founder.CompanyName
		}
		if name == "" {
			name = "Founder"
		}
		out = append(out, domain.FounderProgress{
			ID:          domain.ID(founder.ID),
			Name:        name,
			Email:       founder.Email,
			TrailID:     firstTrail,
			CurrentStep: currentStep(steps),
			Progress:    avg,
			Risk:        domain.RiskFor(avg),
			Steps:       steps,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Progress < out[j].Progress })
	return c.JSON(out)
}

// UnlockStep handles POST /admin/founders/:user/steps/:step/unlock. Without
// trail_id the founder's first trail with progress is used.
func (h *AdminHandler) UnlockStep(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID, stepID := c.Params("user"), c.Params("step")

	if _, err := h.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Usuário não encontrado")
		}
		return err
	}

	trailID := c.Query("trail_id")
	if trailID == "" {
		records, err := h.progress.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			trailID = records[0].TrailID
		}
	}
	if trailID == "" {
		return apperrors.NewNotFound("Trilha não encontrada para este usuário")
	}

	if _, err := h.progress.Unlock(ctx, userID, trailID, stepID); err != nil {
		return err
	}
	return c.JSON(dto.Success(domain.UnlockResult{UserID: userID, StepID: stepID, TrailID: trailID, Unlocked: true}))
}

func (h *AdminHandler) stepNames(c *fiber.Ctx) (map[string]string, error) {
	defs, err := h.trails.List(c.UserContext())
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for _, def := range defs {
		for _, s := range def.Steps {
			names[s.ID] = s.Name
		}
	}
	return names, nil
}

// currentStep names the first step being worked on; completed steps seen
// before it are marked with a check.
func currentStep(steps []domain.Step) string {
	current := notStarted
	for _, s := range steps {
		if !s.Completed && !s.Locked && s.Progress > 0 {
			return s.Name
		}
		if s.Completed {
			current = s.Name + " ✓"
		}
	}
	return current
}
