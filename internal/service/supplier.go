package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SkyToti/SistemaLibreria/internal/domain"
	"github.com/SkyToti/SistemaLibreria/internal/repository"
	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
	"github.com/SkyToti/SistemaLibreria/pkg/pagination"
)

// SupplierInput holds the editable fields of a supplier.
type SupplierInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=50"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"max=500"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// SupplierQuery filters the supplier list.
type SupplierQuery struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}

// SupplierService manages suppliers.
type SupplierService struct {
	repo   repository.SupplierRepository
	logger *slog.Logger
}

// NewSupplierService creates a new supplier service.
func NewSupplierService(repo repository.SupplierRepository, logger *slog.Logger) *SupplierService {
	return &SupplierService{repo: repo, logger: logger}
}

// List returns a page of suppliers and the total match count.
func (s *SupplierService) List(ctx context.Context, q SupplierQuery) ([]domain.Supplier, int, error) {
	page, perPage := pagination.Normalize(q.Page, q.PerPage, pagination.DefaultPerPage)
	filter := repository.SupplierFilter{Page: page, PerPage: perPage}

	if search := strings.TrimSpace(q.Search); search != "" {
		filter.Search = &search
	}
	if status := strings.TrimSpace(q.Status); status != "" && status != "all" {
		if !domain.IsValidSupplierStatus(status) {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid supplier status %q", status))
		}
		filter.Status = &status
	}

	suppliers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, total, nil
}

// Get returns one supplier.
func (s *SupplierService) Get(ctx context.Context, id string) (*domain.Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return supplier, nil
}

// Create adds a supplier. New suppliers are active unless stated otherwise.
func (s *SupplierService) Create(ctx context.Context, input SupplierInput) (*domain.Supplier, error) {
	if err := checkSupplierInput(&input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	supplier := &domain.Supplier{ID: uuid.New().String(), CreatedAt: now}
	applySupplierInput(supplier, input, now)

	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}

	s.logger.InfoContext(ctx, "supplier created",
		slog.String("supplier_id", supplier.ID),
		slog.String("name", supplier.Name),
	)
	return supplier, nil
}

// Update replaces the editable fields of a supplier.
func (s *SupplierService) Update(ctx context.Context, id string, input SupplierInput) (*domain.Supplier, error) {
	if err := checkSupplierInput(&input); err != nil {
		return nil, err
	}

	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier for update: %w", err)
	}
	applySupplierInput(supplier, input, time.Now().UTC())

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	return supplier, nil
}

// Delete removes a supplier no book refers to.
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	s.logger.InfoContext(ctx, "supplier deleted", slog.String("supplier_id", id))
	return nil
}

// Archive marks a supplier inactive.
func (s *SupplierService) Archive(ctx context.Context, id string) error {
	if err := s.repo.SetStatus(ctx, id, domain.SupplierStatusInactive); err != nil {
		return fmt.Errorf("archive supplier: %w", err)
	}
	s.logger.InfoContext(ctx, "supplier archived", slog.String("supplier_id", id))
	return nil
}

func checkSupplierInput(input *SupplierInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" {
		return apperrors.InvalidInput("supplier name is required")
	}
	if input.Status == "" {
		input.Status = domain.SupplierStatusActive
	}
	if !domain.IsValidSupplierStatus(input.Status) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid supplier status %q", input.Status))
	}
	return nil
}

func applySupplierInput(supplier *domain.Supplier, input SupplierInput, now time.Time) {
	supplier.Name = input.Name
	supplier.ContactPerson = input.ContactPerson
	supplier.Phone = input.Phone
	supplier.Email = input.Email
	supplier.Address = input.Address
	supplier.Status = input.Status
	supplier.UpdatedAt = now
}
