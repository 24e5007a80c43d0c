package model

import (
	"time"

	"github.com/google/uuid"
)

// Property represents the propiedades table
type Property struct {
	ID          uuid.UUID  `json:"id"`
	LandlordID  uuid.UUID  `json:"casero_id"`
	Address     string     `json:"direccion_completa"`
	Reference   *string    `json:"referencia,omitempty"`
	TenantName  *string    `json:"inquilino_nombre,omitempty"`
	TenantEmail *string    `json:"inquilino_email,omitempty"`
	TenantPhone *string    `json:"inquilino_telefono,omitempty"`
	LeaseStart  *time.Time `json:"fecha_inicio_alquiler,omitempty"`
	Active      bool       `json:"activa"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasTenant reports whether any tenant contact is linked to the property.
func (p Property) HasTenant() bool {
	return Value(p.TenantName) != "" || Value(p.TenantEmail) != ""
}

// Technician represents the tecnicos table
type Technician struct {
	ID         uuid.UUID `json:"id"`
	LandlordID uuid.UUID `json:"casero_id"`
	Name       string    `json:"nombre"`
	Specialty  *string   `json:"especialidad,omitempty"`
	Phone      *string   `json:"telefono,omitempty"`
	Email      *string   `json:"email,omitempty"`
	Available  bool      `json:"activo"`
	CreatedAt  time.Time `json:"created_at"`
}
