package landlordapp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

const profileForm = "profile"

func (a *App) profilePage(c *gin.Context, st *web.State, f view.LandlordProfileForm) view.LandlordProfile {
	return view.LandlordProfile{
		Page:   a.server.Page(c, "Profile"),
		Email:  st.User().Email,
		Form:   f,
		Button: view.Button(st.Slot(profileForm, saveLabels)),
	}
}

func (a *App) profile(c *gin.Context) {
	st := web.StateFrom(c)
	user := st.User()

	p, err := a.store.GetLandlordProfile(c.Request.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to load landlord profile")
		page := a.profilePage(c, st, view.LandlordProfileForm{FullName: user.FullName})
		page.Page = page.Page.WithNotice("Could not load your profile", true)
		c.HTML(http.StatusOK, "landlord_profile", page)
		return
	}

	// No row yet: start from the sign-in name.
	f := view.LandlordProfileForm{FullName: user.FullName}
	if p != nil {
		f = view.LandlordProfileForm{
			FullName:       p.FullName,
			TaxID:          model.Value(p.TaxID),
			Phone:          model.Value(p.Phone),
			EmergencyPhone: model.Value(p.EmergencyPhone),
			Address:        model.Value(p.Address),
		}
	}
	c.HTML(http.StatusOK, "landlord_profile", a.profilePage(c, st, f))
}

func (a *App) saveProfile(c *gin.Context) {
	st := web.StateFrom(c)
	user := st.User()
	f := view.LandlordProfileForm{
		FullName:       strings.TrimSpace(c.PostForm("full_name")),
		TaxID:          strings.TrimSpace(c.PostForm("tax_id")),
		Phone:          strings.TrimSpace(c.PostForm("phone")),
		EmergencyPhone: strings.TrimSpace(c.PostForm("emergency_phone")),
		Address:        strings.TrimSpace(c.PostForm("address")),
	}

	if f.FullName == "" {
		page := a.profilePage(c, st, f)
		page.Page = page.Page.WithNotice("Your name is required", true)
		c.HTML(http.StatusUnprocessableEntity, "landlord_profile", page)
		return
	}

	p := &model.LandlordProfile{
		ID:             user.ID,
		FullName:       f.FullName,
		TaxID:          model.Optional(f.TaxID),
		Email:          user.Email,
		Phone:          model.Optional(f.Phone),
		EmergencyPhone: model.Optional(f.EmergencyPhone),
		Address:        model.Optional(f.Address),
	}
	slot := st.Slot(profileForm, saveLabels)
	err := slot.Submit(c.Request.Context(), func(ctx context.Context) error {
		return a.store.UpsertLandlordProfile(ctx, p)
	}, nil)

	page := a.profilePage(c, st, f)
	switch {
	case errors.Is(err, form.ErrInFlight):
		page.Page = page.Page.WithNotice("Your profile is already being saved", true)
		c.HTML(http.StatusConflict, "landlord_profile", page)
	case err != nil:
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to save landlord profile")
		page.Page = page.Page.WithNotice("Could not save your profile", true)
		c.HTML(http.StatusBadGateway, "landlord_profile", page)
	default:
		page.Page = page.Page.WithNotice("Profile saved", false).AfterReset("/profile", slot.ResetDelay())
		c.HTML(http.StatusOK, "landlord_profile", page)
	}
}
