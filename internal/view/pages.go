package view

import (
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/swr"
)

// IncidentForm is the tenant's incident form as typed.
type IncidentForm struct {
	Category    string
	Urgency     string
	Title       string
	Description string
	Address     string
	Phone       string
}

type TenantHome struct {
	Page
	FirstName         string
	ProfileIncomplete bool
	Form              IncidentForm
	Button            SubmitButton
	Categories        []string
	Urgencies         []model.Urgency
}

type TenantProfile struct {
	Page
	FullName string
	Email    string
	Address  string
	Phone    string
	Button   SubmitButton
}

type TenantIncidents struct {
	Page
	List swr.View[model.Incident]
}

// DashboardStats counts the incidents of a landlord's tenants.
type DashboardStats struct {
	Urgent     int
	Pending    int
	InProgress int
}

// Dashboard empty states.
const (
	DashboardNoProperties = "no_properties"
	DashboardNoTenants    = "no_tenants"
)

type Dashboard struct {
	Page
	Stats  DashboardStats
	Recent []model.Incident
	Empty  string
}

// LandlordProfileForm is the landlord profile form as typed.
type LandlordProfileForm struct {
	FullName       string
	TaxID          string
	Phone          string
	EmergencyPhone string
	Address        string
}

type LandlordProfile struct {
	Page
	Email  string
	Form   LandlordProfileForm
	Button SubmitButton
}

// PropertyEditor is the property form; ID is empty for a new property.
type PropertyEditor struct {
	ID          string
	Address     string
	Reference   string
	TenantName  string
	TenantEmail string
	TenantPhone string
	LeaseStart  string
	Active      bool
}

type Properties struct {
	Page
	List   swr.View[model.Property]
	Editor *PropertyEditor
	Button SubmitButton
}

// TechnicianEditor is the technician form; ID is empty for a new technician.
type TechnicianEditor struct {
	ID        string
	Name      string
	Specialty string
	Phone     string
	Email     string
	Available bool
}

type Technicians struct {
	Page
	List   swr.View[model.Technician]
	Editor *TechnicianEditor
	Button SubmitButton
}
