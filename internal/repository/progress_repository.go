package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// ProgressRecord is a founder's state on one step.
type ProgressRecord struct {
	UserID    string
	TrailID   string
	StepID    string
	Answers   map[string]any
	Locked    bool
	Completed bool
	Percent   int
	UpdatedAt time.Time
}

type progressKey struct {
	user, trail, step string
}

// ProgressRepository stores founder answers and lock state.
type ProgressRepository interface {
	Get(ctx context.Context, userID, trailID, stepID string) (ProgressRecord, bool, error)
	SaveAnswers(ctx context.Context, userID, trailID, stepID string, answers map[string]any) (ProgressRecord, error)
	Unlock(ctx context.Context, userID, trailID, stepID string) (ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error)
}

type progressRepository struct {
	mu      sync.RWMutex
	records map[progressKey]*ProgressRecord
	order   []progressKey
	now     func() time.Time
}

// NewProgressRepository returns an in-memory repository.
func NewProgressRepository() ProgressRepository {
	return &progressRepository{records: make(map[progressKey]*ProgressRecord), now: time.Now}
}

func (r *progressRepository) Get(_ context.Context, userID, trailID, stepID string) (ProgressRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[progressKey{userID, trailID, stepID}]
	if !ok {
		return ProgressRecord{}, false, nil
	}
	return rec.clone(), true, nil
}

func (r *progressRepository) SaveAnswers(_ context.Context, userID, trailID, stepID string, answers map[string]any) (ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.upsert(userID, trailID, stepID)
	rec.Answers = copyAnswers(answers)
	rec.Percent = domain.StepPercent(answers)
	rec.Completed = rec.Percent >= 100
	rec.UpdatedAt = r.now()
	return rec.clone(), nil
}

func (r *progressRepository) Unlock(_ context.Context, userID, trailID, stepID string) (ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.upsert(userID, trailID, stepID)
	rec.Locked = false
	rec.UpdatedAt = r.now()
	return rec.clone(), nil
}

func (r *progressRepository) ListByUser(_ context.Context, userID string) ([]ProgressRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ProgressRecord
	for _, key := range r.order {
		if key.user == userID {
			out = append(out, r.records[key].clone())
		}
	}
	return out, nil
}

// upsert must be called with the write lock held.
func (r *progressRepository) upsert(userID, trailID, stepID string) *ProgressRecord {
	key := progressKey{userID, trailID, stepID}
	rec, ok := r.records[key]
	if !ok {
		rec = &ProgressRecord{UserID: userID, TrailID: trailID, StepID: stepID}
		r.records[key] = rec
		r.order = append(r.order, key)
	}
	return rec
}

func (p *ProgressRecord) clone() ProgressRecord {
	out := *p
	out.Answers = copyAnswers(p.Answers)
	return out
}

func copyAnswers(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
