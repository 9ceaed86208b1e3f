package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// StepDefinition is one stage of a trail and its form.
type StepDefinition struct {
	ID          string
	Name        string
	Description string
	Fields      []domain.Field
}

// TrailDefinition is a trail template.
type TrailDefinition struct {
	ID          string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	Steps       []StepDefinition
}

// Step finds a step by id.
func (t TrailDefinition) Step(stepID string) (StepDefinition, int, bool) {
	for i, s := range t.Steps {
		if s.ID == stepID {
			return s, i, true
		}
	}
	return StepDefinition{}, -1, false
}

// TrailRepository exposes trail templates.
type TrailRepository interface {
	List(ctx context.Context) ([]TrailDefinition, error)
	Get(ctx context.Context, id string) (*TrailDefinition, error)
	Put(ctx context.Context, trail TrailDefinition) error
}

type trailRepository struct {
	mu     sync.RWMutex
	trails []TrailDefinition
}

// NewTrailRepository returns an in-memory repository holding trails.
func NewTrailRepository(trails ...TrailDefinition) TrailRepository {
	return &trailRepository{trails: append([]TrailDefinition(nil), trails...)}
}

func (r *trailRepository) List(_ context.Context) ([]TrailDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TrailDefinition(nil), r.trails...), nil
}

func (r *trailRepository) Get(_ context.Context, id string) (*TrailDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.trails {
		if t.ID == id {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Put inserts or replaces a trail by id.
func (r *trailRepository) Put(_ context.Context, trail TrailDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.trails {
		if t.ID == trail.ID {
			r.trails[i] = trail
			return nil
		}
	}
	r.trails = append(r.trails, trail)
	return nil
}

// DefaultTrail builds the seeded trail: every step has a required main
// field and an optional description.
func DefaultTrail(now time.Time) TrailDefinition {
	steps := []struct{ id, name string }{
		{"ICP", "Perfil de Cliente Ideal"},
		{"Persona", "Persona"},
		{"SWOT", "Análise SWOT"},
	}
	trail := TrailDefinition{
		ID:          "Q1_Marketing",
		Name:        "Q1 Marketing",
		Description: "Fundamentos de marketing para o primeiro trimestre",
		Status:      "active",
		CreatedAt:   now,
	}
	for _, s := range steps {
		trail.Steps = append(trail.Steps, StepDefinition{
			ID:   s.id,
			Name: s.name,
			Fields: []domain.Field{
				{Name: s.id + "_campo1", Type: "text", Label: "Campo Principal - " + s.name, Required: true},
				{Name: s.id + "_descricao", Type: "textarea", Label: "Descrição detalhada"},
			},
		})
	}
	return trail
}
