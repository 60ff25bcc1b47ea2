package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT id, name, created_at FROM categories ORDER BY name`

	ctx, done := database.TraceQuery(ctx, "categories", "list", query)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := collectCategories(rows)
	done(err)
	return categories, err
}

// Search returns up to limit categories whose name contains query.
func (r *CategoryRepository) Search(ctx context.Context, query string, limit int) ([]domain.Category, error) {
	stmt := `SELECT id, name, created_at FROM categories WHERE name ILIKE $1 ORDER BY name LIMIT $2`

	ctx, done := database.TraceQuery(ctx, "categories", "search", stmt)
	rows, err := r.db.Query(ctx, stmt, containsPattern(query), limit)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("search categories: %w", err)
	}
	categories, err := collectCategories(rows)
	done(err)
	return categories, err
}

// GetByName returns the category with exactly this name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT id, name, created_at FROM categories WHERE name = $1`

	var c domain.Category
	err := r.db.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", name)
		}
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return &c, nil
}

// Create inserts a category, failing with AlreadyExists on a duplicate name.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`

	ctx, done := database.TraceQuery(ctx, "categories", "insert", query)
	_, err := r.db.Exec(ctx, query, c.ID, c.Name, c.CreatedAt)
	done(err)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func collectCategories(rows pgx.Rows) ([]domain.Category, error) {
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}
