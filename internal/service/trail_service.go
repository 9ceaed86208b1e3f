package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// TrailService covers the founder portal endpoints and the admin trail list.
type TrailService struct {
	api API
}

// NewTrailService builds the service.
func NewTrailService(api API) *TrailService {
	return &TrailService{api: api}
}

// FounderTrails lists the caller's trails with per-step progress.
func (s *TrailService) FounderTrails(ctx context.Context) ([]domain.Trail, error) {
	var out []domain.Trail
	if err := getData(ctx, s.api, "/founder/trails", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminTrails lists every trail with its step count.
func (s *TrailService) AdminTrails(ctx context.Context) ([]domain.Trail, error) {
	var out []domain.Trail
	if err := getData(ctx, s.api, "/admin/trails", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StepSchema fetches the form definition of a step.
func (s *TrailService) StepSchema(ctx context.Context, trailID, stepID string) (domain.StepSchema, error) {
	var out domain.StepSchema
	err := getData(ctx, s.api, stepPath(trailID, stepID, "schema"), &out)
	return out, err
}

// UpdateStepSchema replaces the fields of a step (admin).
func (s *TrailService) UpdateStepSchema(ctx context.Context, trailID, stepID string, fields []domain.Field) (domain.StepSchema, error) {
	var raw json.RawMessage
	body := map[string]any{"fields": fields}
	path := "/admin/trails/" + url.PathEscape(trailID) + "/steps/" + url.PathEscape(stepID) + "/schema"
	if err := s.api.Put(ctx, path, body, &raw); err != nil {
		return domain.StepSchema{}, err
	}
	var out domain.StepSchema
	err := decodeData(raw, &out)
	return out, err
}

// StepProgress fetches the saved answers of a step. FormData is never nil.
func (s *TrailService) StepProgress(ctx context.Context, trailID, stepID string) (domain.StepProgress, error) {
	out := domain.StepProgress{TrailID: trailID, StepID: stepID}
	if err := getData(ctx, s.api, stepPath(trailID, stepID, "progress"), &out); err != nil {
		return domain.StepProgress{}, err
	}
	if out.FormData == nil {
		out.FormData = map[string]any{}
	}
	return out, nil
}

// SaveProgress stores a step's answers. When schema is non-nil, required
// fields are checked before anything is sent.
func (s *TrailService) SaveProgress(ctx context.Context, trailID, stepID string, formData map[string]any, schema *domain.StepSchema) (domain.SaveProgressResult, error) {
	if formData == nil {
		formData = map[string]any{}
	}
	if schema != nil {
		if missing := MissingRequired(*schema, formData); len(missing) > 0 {
			return domain.SaveProgressResult{}, invalid("Campos obrigatórios não preenchidos: " + strings.Join(missing, ", "))
		}
	}

	var out domain.SaveProgressResult
	err := postData(ctx, s.api, stepPath(trailID, stepID, "progress"), domain.SaveProgressRequest{FormData: formData}, &out)
	return out, err
}

// ExportXLSX downloads the filled trail spreadsheet into dir and returns
// the file path.
func (s *TrailService) ExportXLSX(ctx context.Context, trailID, dir string) (string, error) {
	filename := filepath.Join(dir, fmt.Sprintf("%s_preenchido.xlsx", trailID))
	if err := s.api.Download(ctx, "/founder/trails/"+url.PathEscape(trailID)+"/export/xlsx", filename); err != nil {
		return "", err
	}
	return filename, nil
}

// MissingRequired lists the labels of required fields left blank.
func MissingRequired(schema domain.StepSchema, formData map[string]any) []string {
	var missing []string
	for _, f := range schema.Fields {
		if !f.Required {
			continue
		}
		if blank(formData[f.Name]) {
			label := f.Label
			if label == "" {
				label = f.Name
			}
			missing = append(missing, label)
		}
	}
	return missing
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func stepPath(trailID, stepID, leaf string) string {
	return "/founder/trails/" + url.PathEscape(trailID) + "/steps/" + url.PathEscape(stepID) + "/" + leaf
}
