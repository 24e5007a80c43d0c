// Package tenantapp serves the tenant client: profile, incident reporting and
// the tenant's incident list.
package tenantapp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/swr"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

// CacheKey is the local storage key of the incident snapshot.
const CacheKey = "cache_incidencias"

const (
	incidentForm = "incident"
	profileForm  = "profile"
)

var (
	incidentLabels = form.Labels{Idle: "Send to Housezen", Submitting: "Sending...", Succeeded: "Sent"}
	profileLabels  = form.Labels{Idle: "Save changes", Submitting: "Saving...", Succeeded: "Saved"}

	urgencies = []model.Urgency{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh}
)

// Store is the part of the backend the tenant app uses.
type Store interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	UpsertProfile(ctx context.Context, profile *model.Profile) error
	ListIncidentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Incident, error)
	CreateIncident(ctx context.Context, inc *model.Incident) error
}

type App struct {
	server *web.Server
	store  Store
}

// Register mounts the tenant routes on server.
func Register(server *web.Server, store Store) *App {
	a := &App{server: server, store: store}

	r := server.Private()
	r.GET("/", a.home)
	r.POST("/incidents", a.submitIncident)
	r.GET("/incidents", a.incidents)
	r.GET("/profile", a.profile)
	r.POST("/profile", a.saveProfile)

	// The stream answers without a session too: the revalidation then has
	// nothing to fetch and only the first frame is sent.
	server.Engine().GET("/incidents/stream", a.stream)
	return a
}

// loadProfile returns the user's profile, or nil when it is missing or
// cannot be read.
func (a *App) loadProfile(c *gin.Context, userID uuid.UUID) *model.Profile {
	profile, err := a.store.GetProfile(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to load profile")
		return nil
	}
	return profile
}

func (a *App) homePage(c *gin.Context, st *web.State, f view.IncidentForm, complete bool) view.TenantHome {
	user := st.User()
	return view.TenantHome{
		Page:              a.server.Page(c, "Report an incident"),
		FirstName:         user.FirstName(),
		ProfileIncomplete: !complete,
		Form:              f,
		Button:            view.Button(st.Slot(incidentForm, incidentLabels)),
		Categories:        model.Categories,
		Urgencies:         urgencies,
	}
}

func (a *App) home(c *gin.Context) {
	st := web.StateFrom(c)
	profile := a.loadProfile(c, st.User().ID)

	var f view.IncidentForm
	if profile != nil {
		f.Address = model.Value(profile.Address)
		f.Phone = model.Value(profile.Phone)
	}
	c.HTML(http.StatusOK, "tenant_home", a.homePage(c, st, f, profile.Complete()))
}

func readIncidentForm(c *gin.Context) view.IncidentForm {
	return view.IncidentForm{
		Category:    strings.TrimSpace(c.PostForm("category")),
		Urgency:     strings.TrimSpace(c.PostForm("urgency")),
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Address:     strings.TrimSpace(c.PostForm("address")),
		Phone:       strings.TrimSpace(c.PostForm("phone")),
	}
}

func validateIncident(f view.IncidentForm) string {
	if f.Category == "" || f.Urgency == "" || f.Title == "" || f.Description == "" {
		return "Fill in category, urgency, title and description"
	}
	if !model.ValidCategory(f.Category) {
		return "Unknown category"
	}
	if !model.Urgency(f.Urgency).Valid() {
		return "Unknown urgency"
	}
	return ""
}

func (a *App) submitIncident(c *gin.Context) {
	st := web.StateFrom(c)
	user := st.User()
	f := readIncidentForm(c)
	profile := a.loadProfile(c, user.ID)

	if msg := validateIncident(f); msg != "" {
		page := a.homePage(c, st, f, profile.Complete())
		page.Page = page.Page.WithNotice(msg, true)
		c.HTML(http.StatusUnprocessableEntity, "tenant_home", page)
		return
	}

	if f.Address == "" && profile != nil {
		f.Address = model.Value(profile.Address)
	}
	if f.Phone == "" && profile != nil {
		f.Phone = model.Value(profile.Phone)
	}

	inc := &model.Incident{
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		Urgency:     model.Urgency(f.Urgency),
		Address:     f.Address,
		Phone:       f.Phone,
		UserID:      user.ID,
		TenantName:  user.FullName,
		TenantEmail: user.Email,
	}

	slot := st.Slot(incidentForm, incidentLabels)
	err := slot.Submit(c.Request.Context(), func(ctx context.Context) error {
		return a.store.CreateIncident(ctx, inc)
	}, nil)

	page := a.homePage(c, st, f, profile.Complete())
	switch {
	case errors.Is(err, form.ErrInFlight):
		page.Page = page.Page.WithNotice("The incident is already being sent", true)
		c.HTML(http.StatusConflict, "tenant_home", page)
	case err != nil:
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create incident")
		page.Page = page.Page.WithNotice("Could not send the incident", true)
		c.HTML(http.StatusBadGateway, "tenant_home", page)
	default:
		log.Info().Int64("incident_id", inc.ID).Str("user_id", user.ID.String()).Msg("Incident created")
		page.Page = page.Page.WithNotice("Incident sent", false).AfterReset("/incidents", slot.ResetDelay())
		c.HTML(http.StatusOK, "tenant_home", page)
	}
}

// incidents renders the list page with the first frame: the stored snapshot
// when there is one. The page then follows the stream for the revalidation.
func (a *App) incidents(c *gin.Context) {
	cache := swr.New[model.Incident](web.LocalFrom(c), CacheKey)
	list := swr.View[model.Incident]{State: swr.Loading}
	if items, ok := cache.Snapshot(c.Request.Context()); ok {
		list = swr.View[model.Incident]{State: swr.Stale, Items: items}
		if len(items) == 0 {
			list.State = swr.Empty
		}
	}
	c.HTML(http.StatusOK, "tenant_incidents", view.TenantIncidents{
		Page: a.server.Page(c, "My incidents"),
		List: list,
	})
}

func (a *App) stream(c *gin.Context) {
	session := web.SessionFrom(c)
	cache := swr.New[model.Incident](web.LocalFrom(c), CacheKey)
	web.Stream(c, a.server.Renderer(), "incident_list", cache, func(ctx context.Context) ([]model.Incident, error) {
		if session == nil {
			return nil, swr.ErrNoSession
		}
		return a.store.ListIncidentsByUser(ctx, session.User.ID)
	})
}

func (a *App) profilePage(c *gin.Context, st *web.State, address, phone string) view.TenantProfile {
	user := st.User()
	return view.TenantProfile{
		Page:     a.server.Page(c, "Profile"),
		FullName: user.FullName,
		Email:    user.Email,
		Address:  address,
		Phone:    phone,
		Button:   view.Button(st.Slot(profileForm, profileLabels)),
	}
}

func (a *App) profile(c *gin.Context) {
	st := web.StateFrom(c)
	var address, phone string
	if profile := a.loadProfile(c, st.User().ID); profile != nil {
		address = model.Value(profile.Address)
		phone = model.Value(profile.Phone)
	}
	c.HTML(http.StatusOK, "tenant_profile", a.profilePage(c, st, address, phone))
}

func (a *App) saveProfile(c *gin.Context) {
	st := web.StateFrom(c)
	user := st.User()
	address := strings.TrimSpace(c.PostForm("address"))
	phone := strings.TrimSpace(c.PostForm("phone"))

	if address == "" || phone == "" {
		page := a.profilePage(c, st, address, phone)
		page.Page = page.Page.WithNotice("Address and phone are required", true)
		c.HTML(http.StatusUnprocessableEntity, "tenant_profile", page)
		return
	}

	slot := st.Slot(profileForm, profileLabels)
	err := slot.Submit(c.Request.Context(), func(ctx context.Context) error {
		return a.store.UpsertProfile(ctx, &model.Profile{ID: user.ID, Address: &address, Phone: &phone})
	}, nil)

	page := a.profilePage(c, st, address, phone)
	switch {
	case errors.Is(err, form.ErrInFlight):
		page.Page = page.Page.WithNotice("Your details are already being saved", true)
		c.HTML(http.StatusConflict, "tenant_profile", page)
	case err != nil:
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to save profile")
		page.Page = page.Page.WithNotice("Could not save your details", true)
		c.HTML(http.StatusBadGateway, "tenant_profile", page)
	default:
		page.Page = page.Page.WithNotice("Details saved", false).AfterReset("/", slot.ResetDelay())
		c.HTML(http.StatusOK, "tenant_profile", page)
	}
}
