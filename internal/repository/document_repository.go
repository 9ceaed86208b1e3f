package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// DocumentRepository stores knowledge-base document metadata.
type DocumentRepository interface {
	List(ctx context.Context) ([]domain.Document, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Create(ctx context.Context, doc domain.Document) error
	Delete(ctx context.Context, id string) error
}

type documentRepository struct {
	mu   sync.RWMutex
	docs []domain.Document
}

// NewDocumentRepository returns an in-memory repository.
func NewDocumentRepository() DocumentRepository {
	return &documentRepository{}
}

func (r *documentRepository) List(_ context.Context) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Document{}, r.docs...), nil
}

func (r *documentRepository) Get(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.docs {
		if d.ID == id {
			out := d
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *documentRepository) Create(_ context.Context, doc domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.ID == doc.ID {
			return ErrConflict
		}
	}
	r.docs = append(r.docs, doc)
	return nil
}

func (r *documentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.docs {
		if d.ID == id {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
