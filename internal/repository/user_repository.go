package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("record already exists")
)

// UserRecord is a stored account.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	CompanyName  string
	Role         domain.Role
	PasswordHash string
	Active       bool
}

// Public strips the password hash.
func (u UserRecord) Public() domain.User {
	active := u.Active
	return domain.User{
		ID:          domain.ID(u.ID),
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		CompanyName: u.CompanyName,
		IsActive:    &active,
	}
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *UserRecord) error
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	ListByRole(ctx context.Context, role domain.Role) ([]UserRecord, error)
}

type userRepository struct {
	mu    sync.RWMutex
	byID  map[string]*UserRecord
	order []string
}

// NewUserRepository returns an in-memory implementation.
func NewUserRepository() UserRepository {
	return &userRepository{byID: make(map[string]*UserRecord)}
}

func (r *userRepository) Create(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := *user
	r.byID[user.ID] = &stored
	r.order = append(r.order, user.ID)
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			out := *user
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *userRepository) ListByRole(_ context.Context, role domain.Role) ([]UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UserRecord, 0, len(r.order))
	for _, id := range r.order {
		if user := r.byID[id]; user.Role == role {
			out = append(out, *user)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
