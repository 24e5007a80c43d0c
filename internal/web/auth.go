package web

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/auth"
)

const stateMaxAge = 10 * 60

func (s *Server) login(c *gin.Context) {
	if SessionFrom(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	state := uuid.NewString()
	s.setCookie(c, StateCookie, state, stateMaxAge)
	c.Redirect(http.StatusFound, s.opts.Controller.SignInURL(state))
}

func (s *Server) callback(c *gin.Context) {
	expected, _ := c.Cookie(StateCookie)
	s.setCookie(c, StateCookie, "", -1)

	if msg := c.Query("error"); msg != "" {
		log.Warn().Str("error", msg).Str("description", c.Query("error_description")).Msg("Sign-in rejected by provider")
		s.Notify(c, "Sign-in was cancelled or rejected", true)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		log.Warn().Msg("Sign-in callback with mismatched state")
		s.Notify(c, "Sign-in expired, please try again", true)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	session, err := s.opts.Controller.CompleteSignIn(c.Request.Context(), c.Query("code"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to complete sign-in")
		s.Notify(c, "Could not sign in", true)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	maxAge := 0
	if !session.ExpiresAt.IsZero() {
		maxAge = max(int(session.ExpiresAt.Sub(session.CreatedAt).Seconds()), 0)
	}
	s.setCookie(c, SessionCookie, session.ID, maxAge)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logout(c *gin.Context) {
	id, _ := c.Cookie(SessionCookie)
	if err := s.opts.Controller.SignOut(c.Request.Context(), id, LocalFrom(c)); err != nil && !errors.Is(err, auth.ErrNoSession) {
		log.Error().Err(err).Str("session_id", id).Msg("Failed to sign out")
		s.Notify(c, "Could not sign out cleanly", true)
	}
	s.setCookie(c, SessionCookie, "", -1)
	c.Redirect(http.StatusSeeOther, "/")
}

// unload receives the page teardown beacon. The sign-out runs in the
// background; the response never waits for it.
func (s *Server) unload(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		s.opts.Controller.Teardown(id)
		s.setCookie(c, SessionCookie, "", -1)
	}
	c.Status(http.StatusNoContent)
}
