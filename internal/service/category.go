package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// CategorySearchLimit caps category autocomplete results.
const CategorySearchLimit = 10

// CreateCategoryInput is the body of a category create request.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CategoryService manages book categories.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Search returns categories whose name contains query.
func (s *CategoryService) Search(ctx context.Context, query string) ([]domain.Category, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Category{}, nil
	}
	categories, err := s.repo.Search(ctx, query, CategorySearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	return categories, nil
}

// Create returns the category named name, creating it when missing. The
// boolean reports whether a new row was written.
func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperrors.InvalidInput("category name is required")
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, fmt.Errorf("get category: %w", err)
	}

	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("create category: %w", err)
		}
		// Lost a race with a concurrent create.
		existing, getErr := s.repo.GetByName(ctx, name)
		if getErr != nil {
			return nil, false, fmt.Errorf("get category after conflict: %w", getErr)
		}
		return existing, false, nil
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("name", category.Name),
	)
	return category, true, nil
}
