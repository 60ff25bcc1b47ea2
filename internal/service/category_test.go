package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

func TestCategoryCreate_New(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("GetByName", ctx, "Poesía").Return(nil, apperrors.NotFound("category", "Poesía"))
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Category")).Return(nil)

	cat, created, err := svc.Create(ctx, "  Poesía ")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Poesía", cat.Name)
	assert.NotEmpty(t, cat.ID)
	repo.AssertExpectations(t)
}

func TestCategoryCreate_ExistingIsIdempotent(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	existing := &domain.Category{ID: "c1", Name: "Poesía"}
	repo.On("GetByName", ctx, "Poesía").Return(existing, nil)

	cat, created, err := svc.Create(ctx, "Poesía")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, existing, cat)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCategoryCreate_RaceReReads(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	existing := &domain.Category{ID: "c1", Name: "Ensayo"}
	repo.On("GetByName", ctx, "Ensayo").Return(nil, apperrors.NotFound("category", "Ensayo")).Once()
	repo.On("Create", ctx, mock.Anything).Return(apperrors.AlreadyExists("category", "name", "Ensayo"))
	repo.On("GetByName", ctx, "Ensayo").Return(existing, nil).Once()

	cat, created, err := svc.Create(ctx, "Ensayo")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "c1", cat.ID)
}

func TestCategoryCreate_BlankName(t *testing.T) {
	svc := NewCategoryService(new(mockCategoryRepository), newTestLogger())

	_, _, err := svc.Create(context.Background(), "   ")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCategoryCreate_LookupError(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("GetByName", ctx, "Ensayo").Return(nil, errors.New("db down"))

	_, _, err := svc.Create(ctx, "Ensayo")

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCategorySearch(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Search", ctx, "nov", CategorySearchLimit).Return([]domain.Category{{Name: "Novela"}}, nil)

	got, err := svc.Search(ctx, " nov ")

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCategorySearch_BlankQuery(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())

	got, err := svc.Search(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, got)
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestCategoryList(t *testing.T) {
	repo := new(mockCategoryRepository)
	svc := NewCategoryService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx).Return([]domain.Category{{Name: "Ensayo"}, {Name: "Novela"}}, nil)

	got, err := svc.List(ctx)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}
