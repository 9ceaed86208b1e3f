package service

import (
	"context"
	"net/url"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// AdminService covers the founder oversight endpoints.
type AdminService struct {
	api API
}

// NewAdminService builds the service.
func NewAdminService(api API) *AdminService {
	return &AdminService{api: api}
}

// FoundersProgress lists founders, least advanced first.
func (s *AdminService) FoundersProgress(ctx context.Context) ([]domain.FounderProgress, error) {
	var out []domain.FounderProgress
	if err := getData(ctx, s.api, "/admin/founders/progress", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnlockStep opens a step for a founder. An empty trailID lets the backend
// pick the founder's current trail.
func (s *AdminService) UnlockStep(ctx context.Context, userID, stepID, trailID string) (domain.UnlockResult, error) {
	if userID == "" || stepID == "" {
		return domain.UnlockResult{}, invalid("Informe o founder e a etapa.")
	}
	path := "/admin/founders/" + url.PathEscape(userID) + "/steps/" + url.PathEscape(stepID) + "/unlock"
	if trailID != "" {
		path += "?" + url.Values{"trail_id": {trailID}}.Encode()
	}

	var out domain.UnlockResult
	err := postData(ctx, s.api, path, nil, &out)
	return out, err
}
