package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	"github.com/SkyToti/SistemaLibreria/pkg/database"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// ErrSupplierInUse is the message returned when deleting a supplier that
// books still reference.
const ErrSupplierInUse = "supplier has associated books; deactivate it instead"

const supplierColumns = `id, name, contact_person, phone, email, address, status, created_at, updated_at`

// SupplierRepository implements repository.SupplierRepository using PostgreSQL.
type SupplierRepository struct {
	db database.DBTX
}

func NewSupplierRepository(db database.DBTX) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create inserts a new supplier.
func (r *SupplierRepository) Create(ctx context.Context, s *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (` + supplierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, done := database.TraceQuery(ctx, "suppliers", "insert", query)
	_, err := r.db.Exec(ctx, query,
		s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	return nil
}

// GetByID retrieves a supplier by its ID.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	var s domain.Supplier
	err := r.db.QueryRow(ctx, query, id).Scan(supplierFields(&s)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("supplier", id)
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

// List returns suppliers matching filter ordered by name.
func (r *SupplierRepository) List(ctx context.Context, filter repository.SupplierFilter) ([]domain.Supplier, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR contact_person ILIKE $%d)", argIndex, argIndex))
		args = append(args, containsPattern(*filter.Search))
		argIndex++
	}
	if filter.Status != nil && *filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM suppliers
		%s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d`,
		supplierColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := pageBounds(filter.Page, filter.PerPage, 20)
	pageArgs := append(append([]any{}, args...), limit, offset)

	ctx, done := database.TraceQuery(ctx, "suppliers", "list", query)
	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		done(err)
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []domain.Supplier{}
	total := 0
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(append(supplierFields(&s), &total)...); err != nil {
			done(err)
			return nil, 0, fmt.Errorf("scan supplier row: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, 0, fmt.Errorf("iterate supplier rows: %w", err)
	}

	if len(suppliers) == 0 && offset > 0 {
		countQuery := "SELECT count(*) FROM suppliers " + whereClause
		if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count suppliers: %w", err)
		}
	}
	return suppliers, total, nil
}

// Update modifies a supplier's contact data and status.
func (r *SupplierRepository) Update(ctx context.Context, s *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6, status = $7, updated_at = $8
		WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, "suppliers", "update", query)
	tag, err := r.db.Exec(ctx, query,
		s.ID, s.Name, s.ContactPerson, s.Phone, s.Email, s.Address, s.Status, s.UpdatedAt,
	)
	done(err)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("supplier", s.ID)
	}
	return nil
}

// Delete removes a supplier. Suppliers referenced by books cannot be
// deleted and yield a conflict suggesting deactivation.
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM suppliers WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, "suppliers", "delete", query)
	tag, err := r.db.Exec(ctx, query, id)
	done(err)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.Conflict(ErrSupplierInUse)
		}
		return fmt.Errorf("delete supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("supplier", id)
	}
	return nil
}

// SetStatus archives or reactivates a supplier.
func (r *SupplierRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE suppliers SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set supplier status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("supplier", id)
	}
	return nil
}

func supplierFields(s *domain.Supplier) []any {
	return []any{
		&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	}
}
