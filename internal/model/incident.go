package model

import (
	"time"

	"github.com/google/uuid"
)

// Urgency is the closed set of urgency levels a tenant can pick
type Urgency string

const (
	UrgencyLow    Urgency = "baja"
	UrgencyMedium Urgency = "media"
	UrgencyHigh   Urgency = "alta"
)

// Valid reports whether u is one of the known levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Known incident states. The set is owned by the backend; these are the ones
// the dashboard counts on.
const (
	StatusReported   = "Reportada"
	StatusInProgress = "En proceso"
	StatusSolved     = "Solucionado"

	statusSubmitted = "Enviada"
)

// Categories offered on the incident form.
var Categories = []string{
	"fontaneria",
	"electricidad",
	"cerrajeria",
	"electrodomesticos",
	"climatizacion",
	"otros",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Incident represents the incidencias table
type Incident struct {
	ID          int64     `json:"id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion,omitempty"`
	Category    string    `json:"categoria"`
	Urgency     Urgency   `json:"urgencia"`
	Address     string    `json:"direccion,omitempty"`
	Phone       string    `json:"telefono,omitempty"`
	Status      string    `json:"estado,omitempty"`
	UserID      uuid.UUID `json:"user_id"`
	TenantName  string    `json:"nombre_inquilino,omitempty"`
	TenantEmail string    `json:"email_inquilino,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayStatus returns the status badge text; rows without a state yet show
// as submitted.
func (i Incident) DisplayStatus() string {
	if i.Status == "" {
		return statusSubmitted
	}
	return i.Status
}

// Open reports whether the incident has not been solved.
func (i Incident) Open() bool {
	return i.Status != StatusSolved
}
