package landlordapp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/store"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

const (
	propertiesList = "properties"

	// newRecord marks an editor opened for a record not yet stored.
	newRecord = "new"

	dateLayout = "2006-01-02"
)

func (a *App) propertiesPage(c *gin.Context, st *web.State, editor *view.PropertyEditor) view.Properties {
	landlordID := st.User().ID
	items, err := a.store.ListProperties(c.Request.Context(), landlordID)
	page := view.Properties{
		Page:   a.server.Page(c, "Properties"),
		List:   view.List(items, err),
		Editor: editor,
		Button: view.Button(st.Slot(propertiesList, saveLabels)),
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", landlordID.String()).Msg("Failed to list properties")
		page.Page = page.Page.WithNotice("Could not load the properties", true)
	}
	return page
}

func (a *App) renderProperties(c *gin.Context, st *web.State, editor *view.PropertyEditor) {
	c.HTML(http.StatusOK, "landlord_properties", a.propertiesPage(c, st, editor))
}

func (a *App) properties(c *gin.Context) {
	st := web.StateFrom(c)
	st.SetEditing(propertiesList, "")
	a.renderProperties(c, st, nil)
}

func (a *App) newProperty(c *gin.Context) {
	st := web.StateFrom(c)
	st.SetEditing(propertiesList, newRecord)
	a.renderProperties(c, st, &view.PropertyEditor{Active: true})
}

func (a *App) editProperty(c *gin.Context) {
	st := web.StateFrom(c)
	landlordID := st.User().ID

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.server.Notify(c, "Property not found", true)
		c.Redirect(http.StatusSeeOther, "/properties")
		return
	}
	p, err := a.store.GetProperty(c.Request.Context(), landlordID, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("property_id", id.String()).Msg("Failed to load property")
		}
		a.server.Notify(c, "Could not load the property", true)
		c.Redirect(http.StatusSeeOther, "/properties")
		return
	}

	st.SetEditing(propertiesList, id.String())
	editor := &view.PropertyEditor{
		ID:          id.String(),
		Address:     p.Address,
		Reference:   model.Value(p.Reference),
		TenantName:  model.Value(p.TenantName),
		TenantEmail: model.Value(p.TenantEmail),
		TenantPhone: model.Value(p.TenantPhone),
		Active:      p.Active,
	}
	if p.LeaseStart != nil {
		editor.LeaseStart = p.LeaseStart.Format(dateLayout)
	}
	a.renderProperties(c, st, editor)
}

// editingID resolves which record a save applies to: the one the editor was
// opened for, or the form's when the session state was rebuilt since.
func editingID(c *gin.Context, st *web.State, list string) (uuid.UUID, bool, error) {
	raw := st.Editing(list)
	if raw == "" {
		raw = strings.TrimSpace(c.PostForm("id"))
	}
	if raw == "" || raw == newRecord {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func readPropertyForm(c *gin.Context) *view.PropertyEditor {
	return &view.PropertyEditor{
		ID:          strings.TrimSpace(c.PostForm("id")),
		Address:     strings.TrimSpace(c.PostForm("address")),
		Reference:   strings.TrimSpace(c.PostForm("reference")),
		TenantName:  strings.TrimSpace(c.PostForm("tenant_name")),
		TenantEmail: strings.TrimSpace(c.PostForm("tenant_email")),
		TenantPhone: strings.TrimSpace(c.PostForm("tenant_phone")),
		LeaseStart:  strings.TrimSpace(c.PostForm("lease_start")),
		Active:      c.PostForm("active") == "true",
	}
}

func (a *App) saveProperty(c *gin.Context) {
	st := web.StateFrom(c)
	landlordID := st.User().ID
	editor := readPropertyForm(c)

	invalid := func(msg string) {
		page := a.propertiesPage(c, st, editor)
		page.Page = page.Page.WithNotice(msg, true)
		c.HTML(http.StatusUnprocessableEntity, "landlord_properties", page)
	}

	id, existing, err := editingID(c, st, propertiesList)
	if err != nil {
		invalid("Unknown property")
		return
	}
	if editor.Address == "" {
		invalid("The address is required")
		return
	}
	p := &model.Property{
		ID:          id,
		LandlordID:  landlordID,
		Address:     editor.Address,
		Reference:   model.Optional(editor.Reference),
		TenantName:  model.Optional(editor.TenantName),
		TenantEmail: model.Optional(strings.ToLower(editor.TenantEmail)),
		TenantPhone: model.Optional(editor.TenantPhone),
		Active:      editor.Active,
	}
	if editor.LeaseStart != "" {
		start, err := time.Parse(dateLayout, editor.LeaseStart)
		if err != nil {
			invalid("The lease start is not a valid date")
			return
		}
		p.LeaseStart = &start
	}

	slot := st.Slot(propertiesList, saveLabels)
	err = slot.Submit(c.Request.Context(), func(ctx context.Context) error {
		if existing {
			return a.store.UpdateProperty(ctx, p)
		}
		return a.store.CreateProperty(ctx, p)
	}, nil)

	switch {
	case errors.Is(err, form.ErrInFlight):
		page := a.propertiesPage(c, st, editor)
		page.Page = page.Page.WithNotice("A property is already being saved", true)
		c.HTML(http.StatusConflict, "landlord_properties", page)
	case err != nil:
		log.Error().Err(err).Str("user_id", landlordID.String()).Bool("update", existing).Msg("Failed to save property")
		page := a.propertiesPage(c, st, editor)
		page.Page = page.Page.WithNotice("Could not save the property", true)
		c.HTML(http.StatusBadGateway, "landlord_properties", page)
	default:
		// The redirect leaves the page, so the next editor starts idle.
		slot.Stop()
		st.SetEditing(propertiesList, "")
		if existing {
			a.server.Notify(c, "Property updated", false)
		} else {
			a.server.Notify(c, "Property added", false)
		}
		c.Redirect(http.StatusSeeOther, "/properties")
	}
}

func (a *App) deleteProperty(c *gin.Context) {
	st := web.StateFrom(c)
	landlordID := st.User().ID

	if c.PostForm("confirm") != "true" {
		a.server.Notify(c, "Deletion was not confirmed", true)
		c.Redirect(http.StatusSeeOther, "/properties")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.server.Notify(c, "Property not found", true)
		c.Redirect(http.StatusSeeOther, "/properties")
		return
	}

	if err := a.store.DeleteProperty(c.Request.Context(), landlordID, id); err != nil {
		log.Error().Err(err).Str("property_id", id.String()).Msg("Failed to delete property")
		a.server.Notify(c, "Could not delete the property", true)
	} else {
		if st.Editing(propertiesList) == id.String() {
			st.SetEditing(propertiesList, "")
		}
		a.server.Notify(c, "Property deleted", false)
	}
	c.Redirect(http.StatusSeeOther, "/properties")
}
