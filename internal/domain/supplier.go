package domain

import "time"

// Supplier statuses.
const (
	SupplierStatusActive   = "active"
	SupplierStatusInactive = "inactive"
)

// Supplier provides books to the store.
type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsValidSupplierStatus reports whether status is a known supplier status.
func IsValidSupplierStatus(status string) bool {
	return status == SupplierStatusActive || status == SupplierStatusInactive
}
