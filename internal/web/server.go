// Package web hosts the HTTP surface shared by the tenant and landlord apps:
// the gin engine, cookies, sign-in routes, and per-session state.
package web

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/auth"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/storage"
	"github.com/teresa-solution/housezen-portal/internal/view"
)

const (
	SessionCookie = "housezen_session"
	DeviceCookie  = "housezen_device"
	StateCookie   = "housezen_oauth_state"

	deviceMaxAge = 365 * 24 * 60 * 60

	stateSweepInterval = time.Minute

	sessionKey = "session"
	stateKey   = "state"
	localKey   = "local"
)

// Options configures a Server.
type Options struct {
	App          string
	Controller   *auth.Controller
	Local        storage.Provider
	Renderer     *view.Renderer
	ResetDelay   time.Duration
	SecureCookie bool
}

// Server is the gin engine of one app with sessions wired in.
type Server struct {
	opts        Options
	engine      *gin.Engine
	registry    *Registry
	unsubscribe func()
	stopSweep   chan struct{}
	sweepDone   chan struct{}
	closeOnce   sync.Once
}

// New builds the engine, registers the sign-in routes and subscribes the
// session registry to auth events.
func New(opts Options) (*Server, error) {
	if opts.Controller == nil || opts.Local == nil || opts.Renderer == nil {
		return nil, errors.New("web: controller, local storage and renderer are required")
	}

	s := &Server{
		opts:      opts,
		registry:  NewRegistry(opts.ResetDelay),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	unsubscribe, err := opts.Controller.Subscribe(s.registry.Handle)
	if err != nil {
		return nil, err
	}
	s.unsubscribe = unsubscribe

	engine := gin.New()
	engine.Use(Logger(), gin.Recovery())
	engine.SetHTMLTemplate(opts.Renderer.Template())
	engine.StaticFS("/static", http.FS(view.Static()))
	engine.Use(s.device(), s.session())

	authRoutes := engine.Group("/auth")
	authRoutes.GET("/login", s.login)
	authRoutes.GET("/callback", s.callback)
	authRoutes.POST("/logout", s.logout)
	authRoutes.POST("/unload", s.unload)

	s.engine = engine
	go s.sweep(stateSweepInterval)
	return s, nil
}

// sweep drops the state of sessions that expired without another request.
func (s *Server) sweep(interval time.Duration) {
	defer close(s.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.registry.Prune(time.Now()); n > 0 {
				log.Debug().Int("states", n).Msg("Pruned expired session states")
			}
		case <-s.stopSweep:
			return
		}
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) Renderer() *view.Renderer {
	return s.opts.Renderer
}

// Private returns a group whose routes need a session. Unauthenticated page
// loads get the sign-in page; other requests are sent home.
func (s *Server) Private() *gin.RouterGroup {
	return s.engine.Group("/", s.requireSession())
}

// Close detaches from the event stream and waits for pending teardowns.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
		<-s.sweepDone
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.opts.Controller.Close()
	})
}

// Page returns the shared page state for the current request, consuming any
// pending notice.
func (s *Server) Page(c *gin.Context, title string) view.Page {
	p := view.Page{Title: title, App: s.opts.App}
	if session := SessionFrom(c); session != nil {
		user := session.User
		p.User = &user
	}
	if msg, isError, ok := takeNotice(c, s.opts.SecureCookie); ok {
		p = p.WithNotice(msg, isError)
	}
	return p
}

// Notify leaves a notice for the next page the client loads.
func (s *Server) Notify(c *gin.Context, msg string, isError bool) {
	setNotice(c, msg, isError, s.opts.SecureCookie)
}

// SessionFrom returns the request's session, or nil.
func SessionFrom(c *gin.Context) *model.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*model.Session); ok {
			return s
		}
	}
	return nil
}

// StateFrom returns the request's session state. It is set on private routes
// only.
func StateFrom(c *gin.Context) *State {
	if v, ok := c.Get(stateKey); ok {
		if st, ok := v.(*State); ok {
			return st
		}
	}
	return nil
}

// LocalFrom returns the local storage of the requesting client.
func LocalFrom(c *gin.Context) storage.Local {
	if v, ok := c.Get(localKey); ok {
		if l, ok := v.(storage.Local); ok {
			return l
		}
	}
	return nil
}

// Logger logs every request through zerolog.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Stringer("auth", auth.StateOf(SessionFrom(c))).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// device scopes local storage to the client through a long lived cookie.
// The scope is the browser, not the user.
func (s *Server) device() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(DeviceCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			s.setCookie(c, DeviceCookie, id, deviceMaxAge)
		}
		c.Set(localKey, s.opts.Local.ForClient(id))
		c.Next()
	}
}

func (s *Server) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.Next()
			return
		}
		session, err := s.opts.Controller.Initialize(c.Request.Context(), id)
		if err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("Failed to load session")
		}
		if session == nil {
			if err == nil {
				s.registry.Remove(id)
			}
			s.setCookie(c, SessionCookie, "", -1)
			c.Next()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			if c.Request.Method == http.MethodGet {
				c.HTML(http.StatusOK, "login", s.Page(c, "Sign in"))
			} else {
				c.Redirect(http.StatusSeeOther, "/")
			}
			c.Abort()
			return
		}
		c.Set(stateKey, s.registry.Get(session))
		c.Next()
	}
}

func (s *Server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.opts.SecureCookie, true)
}
