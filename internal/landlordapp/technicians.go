package landlordapp

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
	"github.com/teresa-solution/housezen-portal/internal/store"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

const techniciansList = "technicians"

func (a *App) techniciansPage(c *gin.Context, st *web.State, editor *view.TechnicianEditor) view.Technicians {
	landlordID := st.User().ID
	items, err := a.store.ListTechnicians(c.Request.Context(), landlordID)
	page := view.Technicians{
		Page:   a.server.Page(c, "Technicians"),
		List:   view.List(items, err),
		Editor: editor,
		Button: view.Button(st.Slot(techniciansList, saveLabels)),
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", landlordID.String()).Msg("Failed to list technicians")
		page.Page = page.Page.WithNotice("Could not load the technicians", true)
	}
	return page
}

func (a *App) technicians(c *gin.Context) {
	st := web.StateFrom(c)
	st.SetEditing(techniciansList, "")
	c.HTML(http.StatusOK, "landlord_technicians", a.techniciansPage(c, st, nil))
}

func (a *App) newTechnician(c *gin.Context) {
	st := web.StateFrom(c)
	st.SetEditing(techniciansList, newRecord)
	c.HTML(http.StatusOK, "landlord_technicians", a.techniciansPage(c, st, &view.TechnicianEditor{Available: true}))
}

func (a *App) editTechnician(c *gin.Context) {
	st := web.StateFrom(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.server.Notify(c, "Technician not found", true)
		c.Redirect(http.StatusSeeOther, "/technicians")
		return
	}
	t, err := a.store.GetTechnician(c.Request.Context(), st.User().ID, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("technician_id", id.String()).Msg("Failed to load technician")
		}
		a.server.Notify(c, "Could not load the technician", true)
		c.Redirect(http.StatusSeeOther, "/technicians")
		return
	}

	st.SetEditing(techniciansList, id.String())
	c.HTML(http.StatusOK, "landlord_technicians", a.techniciansPage(c, st, &view.TechnicianEditor{
		ID:        id.String(),
		Name:      t.Name,
		Specialty: model.Value(t.Specialty),
		Phone:     model.Value(t.Phone),
		Email:     model.Value(t.Email),
		Available: t.Available,
	}))
}

func (a *App) saveTechnician(c *gin.Context) {
	st := web.StateFrom(c)
	landlordID := st.User().ID
	editor := &view.TechnicianEditor{
		ID:        strings.TrimSpace(c.PostForm("id")),
		Name:      strings.TrimSpace(c.PostForm("name")),
		Specialty: strings.TrimSpace(c.PostForm("specialty")),
		Phone:     strings.TrimSpace(c.PostForm("phone")),
		Email:     strings.TrimSpace(c.PostForm("email")),
		Available: c.PostForm("available") == "true",
	}

	invalid := func(msg string) {
		page := a.techniciansPage(c, st, editor)
		page.Page = page.Page.WithNotice(msg, true)
		c.HTML(http.StatusUnprocessableEntity, "landlord_technicians", page)
	}

	id, existing, err := editingID(c, st, techniciansList)
	if err != nil {
		invalid("Unknown technician")
		return
	}
	if editor.Name == "" {
		invalid("The name is required")
		return
	}
	t := &model.Technician{
		ID:         id,
		LandlordID: landlordID,
		Name:       editor.Name,
		Specialty:  model.Optional(editor.Specialty),
		Phone:      model.Optional(editor.Phone),
		Email:      model.Optional(editor.Email),
		Available:  editor.Available,
	}

	slot := st.Slot(techniciansList, saveLabels)
	err = slot.Submit(c.Request.Context(), func(ctx context.Context) error {
		if existing {
			return a.store.UpdateTechnician(ctx, t)
		}
		return a.store.CreateTechnician(ctx, t)
	}, nil)

	switch {
	case errors.Is(err, form.ErrInFlight):
		page := a.techniciansPage(c, st, editor)
		page.Page = page.Page.WithNotice("A technician is already being saved", true)
		c.HTML(http.StatusConflict, "landlord_technicians", page)
	case err != nil:
		log.Error().Err(err).Str("user_id", landlordID.String()).Bool("update", existing).Msg("Failed to save technician")
		page := a.techniciansPage(c, st, editor)
		page.Page = page.Page.WithNotice("Could not save the technician", true)
		c.HTML(http.StatusBadGateway, "landlord_technicians", page)
	default:
		slot.Stop()
		st.SetEditing(techniciansList, "")
		if existing {
			a.server.Notify(c, "Technician updated", false)
		} else {
			a.server.Notify(c, "Technician added", false)
		}
		c.Redirect(http.StatusSeeOther, "/technicians")
	}
}

func (a *App) deleteTechnician(c *gin.Context) {
	st := web.StateFrom(c)

	if c.PostForm("confirm") != "true" {
		a.server.Notify(c, "Deletion was not confirmed", true)
		c.Redirect(http.StatusSeeOther, "/technicians")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		a.server.Notify(c, "Technician not found", true)
		c.Redirect(http.StatusSeeOther, "/technicians")
		return
	}

	if err := a.store.DeleteTechnician(c.Request.Context(), st.User().ID, id); err != nil {
		log.Error().Err(err).Str("technician_id", id.String()).Msg("Failed to delete technician")
		a.server.Notify(c, "Could not delete the technician", true)
	} else {
		if st.Editing(techniciansList) == id.String() {
			st.SetEditing(techniciansList, "")
		}
		a.server.Notify(c, "Technician deleted", false)
	}
	c.Redirect(http.StatusSeeOther, "/technicians")
}
