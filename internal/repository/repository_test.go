package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	founder := &UserRecord{Email: "ana@startup.com", Name: "Ana", Role: domain.RoleFounder, Active: true}
	require.NoError(t, repo.Create(ctx, founder))
	require.NotEmpty(t, founder.ID)
	require.ErrorIs(t, repo.Create(ctx, &UserRecord{Email: "ANA@startup.com"}), ErrConflict)
	require.NoError(t, repo.Create(ctx, &UserRecord{ID: "admin-1", Email: "admin@tr4ction.com", Role: domain.RoleAdmin, Active: true}))

	got, err := repo.GetByEmail(ctx, " Ana@Startup.com ")
	require.NoError(t, err)
	require.Equal(t, founder.ID, got.ID)

	got.Name = "mutated"
	again, err := repo.GetByID(ctx, founder.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", again.Name)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	founders, err := repo.ListByRole(ctx, domain.RoleFounder)
	require.NoError(t, err)
	require.Len(t, founders, 1)

	public := again.Public()
	require.Equal(t, domain.ID(founder.ID), public.ID)
	require.NotNil(t, public.IsActive)
	require.True(t, *public.IsActive)
}

func TestTrailRepository(t *testing.T) {
	ctx := context.Background()
	trail := DefaultTrail(time.Unix(0, 0))
	repo := NewTrailRepository(trail)

	got, err := repo.Get(ctx, "Q1_Marketing")
	require.NoError(t, err)
	require.Len(t, got.Steps, 3)

	step, idx, ok := got.Step("Persona")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, "Persona_campo1", step.Fields[0].Name)
	require.True(t, step.Fields[0].Required)

	_, _, ok = got.Step("nope")
	require.False(t, ok)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Put(ctx, TrailDefinition{ID: "Q2_Vendas", Name: "Q2"}))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestProgressRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository()

	_, found, err := repo.Get(ctx, "u1", "t", "s1")
	require.NoError(t, err)
	require.False(t, found)

	answers := map[string]any{"a": "1", "b": "2"}
	rec, err := repo.SaveAnswers(ctx, "u1", "t", "s1", answers)
	require.NoError(t, err)
	require.Equal(t, 50, rec.Percent)
	require.False(t, rec.Completed)

	answers["c"] = "mutated after save"
	rec, found, err = repo.Get(ctx, "u1", "t", "s1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, rec.Answers, 2)

	_, err = repo.Unlock(ctx, "u1", "t", "s2")
	require.NoError(t, err)
	_, err = repo.SaveAnswers(ctx, "u2", "t", "s1", map[string]any{"a": 1, "b": 2, "c": 3, "d": 4})
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "s1", list[0].StepID)
	require.Equal(t, "s2", list[1].StepID)
	require.False(t, list[1].Locked)

	other, _, _ := repo.Get(ctx, "u2", "t", "s1")
	require.True(t, other.Completed)
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()

	require.NoError(t, repo.Create(ctx, domain.Document{ID: "d1", Filename: "a.pdf"}))
	require.ErrorIs(t, repo.Create(ctx, domain.Document{ID: "d1"}), ErrConflict)
	require.NoError(t, repo.Create(ctx, domain.Document{ID: "d2", Filename: "b.txt"}))

	doc, err := repo.Get(ctx, "d2")
	require.NoError(t, err)
	require.Equal(t, "b.txt", doc.Filename)

	require.NoError(t, repo.Delete(ctx, "d1"))
	require.ErrorIs(t, repo.Delete(ctx, "d1"), ErrNotFound)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}
