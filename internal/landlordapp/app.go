// Package landlordapp serves the landlord client: dashboard, profile,
// properties and technicians.
package landlordapp

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

// RecentIncidents is how many incidents the dashboard lists.
const RecentIncidents = 5

var saveLabels = form.Labels{Idle: "Save", Submitting: "Saving...", Succeeded: "Saved"}

// Store is the part of the backend the landlord app uses. Every call is
// scoped to the landlord's id.
type Store interface {
	GetLandlordProfile(ctx context.Context, userID uuid.UUID) (*model.LandlordProfile, error)
	UpsertLandlordProfile(ctx context.Context, p *model.LandlordProfile) error

	CountProperties(ctx context.Context, landlordID uuid.UUID) (int, error)
	ListTenantEmails(ctx context.Context, landlordID uuid.UUID) ([]string, error)
	ListIncidentsByTenantEmails(ctx context.Context, emails []string) ([]model.Incident, error)

	ListProperties(ctx context.Context, landlordID uuid.UUID) ([]model.Property, error)
	GetProperty(ctx context.Context, landlordID, id uuid.UUID) (*model.Property, error)
	CreateProperty(ctx context.Context, p *model.Property) error
	UpdateProperty(ctx context.Context, p *model.Property) error
	DeleteProperty(ctx context.Context, landlordID, id uuid.UUID) error

	ListTechnicians(ctx context.Context, landlordID uuid.UUID) ([]model.Technician, error)
	GetTechnician(ctx context.Context, landlordID, id uuid.UUID) (*model.Technician, error)
	CreateTechnician(ctx context.Context, t *model.Technician) error
	UpdateTechnician(ctx context.Context, t *model.Technician) error
	DeleteTechnician(ctx context.Context, landlordID, id uuid.UUID) error
}

type App struct {
	server *web.Server
	store  Store
}

// Register mounts the landlord routes on server.
func Register(server *web.Server, store Store) *App {
	a := &App{server: server, store: store}

	r := server.Private()
	r.GET("/", a.dashboard)
	r.GET("/profile", a.profile)
	r.POST("/profile", a.saveProfile)

	r.GET("/properties", a.properties)
	r.GET("/properties/new", a.newProperty)
	r.GET("/properties/:id/edit", a.editProperty)
	r.POST("/properties", a.saveProperty)
	r.POST("/properties/:id/delete", a.deleteProperty)

	r.GET("/technicians", a.technicians)
	r.GET("/technicians/new", a.newTechnician)
	r.GET("/technicians/:id/edit", a.editTechnician)
	r.POST("/technicians", a.saveTechnician)
	r.POST("/technicians/:id/delete", a.deleteTechnician)
	return a
}

// Summarize computes the dashboard counters over incidents ordered newest
// first, and returns the most recent ones.
func Summarize(incidents []model.Incident) (view.DashboardStats, []model.Incident) {
	var stats view.DashboardStats
	for _, inc := range incidents {
		if inc.Urgency == model.UrgencyHigh && inc.Status != model.StatusSolved {
			stats.Urgent++
		}
		switch inc.Status {
		case model.StatusReported:
			stats.Pending++
		case model.StatusSolved:
		default:
			stats.InProgress++
		}
	}
	recent := incidents
	if len(recent) > RecentIncidents {
		recent = recent[:RecentIncidents]
	}
	return stats, recent
}

func (a *App) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	landlordID := web.StateFrom(c).User().ID
	page := view.Dashboard{Page: a.server.Page(c, "Dashboard")}

	fail := func(err error) {
		log.Error().Err(err).Str("user_id", landlordID.String()).Msg("Failed to load dashboard")
		page.Page = page.Page.WithNotice("Could not load the dashboard", true)
		c.HTML(http.StatusOK, "landlord_dashboard", page)
	}

	count, err := a.store.CountProperties(ctx, landlordID)
	if err != nil {
		fail(err)
		return
	}
	if count == 0 {
		page.Empty = view.DashboardNoProperties
		c.HTML(http.StatusOK, "landlord_dashboard", page)
		return
	}

	emails, err := a.store.ListTenantEmails(ctx, landlordID)
	if err != nil {
		fail(err)
		return
	}
	if len(emails) == 0 {
		page.Empty = view.DashboardNoTenants
		c.HTML(http.StatusOK, "landlord_dashboard", page)
		return
	}

	incidents, err := a.store.ListIncidentsByTenantEmails(ctx, emails)
	if err != nil {
		fail(err)
		return
	}
	page.Stats, page.Recent = Summarize(incidents)
	c.HTML(http.StatusOK, "landlord_dashboard", page)
}
