package model

import (
	"strings"

	"github.com/google/uuid"
)

// Profile represents the perfiles table, one row per tenant user
type Profile struct {
	ID      uuid.UUID `json:"id"`
	Address *string   `json:"direccion,omitempty"`
	Phone   *string   `json:"telefono,omitempty"`
}

// Complete reports whether the fields required to report incidents are set.
func (p *Profile) Complete() bool {
	if p == nil {
		return false
	}
	return Value(p.Address) != "" && Value(p.Phone) != ""
}

// LandlordProfile represents the caseros table
type LandlordProfile struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"nombre_completo"`
	TaxID          *string   `json:"dni_cif,omitempty"`
	Email          string    `json:"email"`
	Phone          *string   `json:"telefono_principal,omitempty"`
	EmergencyPhone *string   `json:"telefono_emergencia,omitempty"`
	Address        *string   `json:"direccion,omitempty"`
}

// Optional returns nil for blank input so optional columns are stored as NULL.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional column, returning "" for NULL.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
