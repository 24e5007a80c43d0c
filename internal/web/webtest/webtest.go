// Package webtest runs an app server in memory for handler tests.
package webtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/housezen-portal/internal/auth"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/storage"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

// Provider is an OAuth provider that signs in whoever it is told to.
type Provider struct {
	mu       sync.Mutex
	identity *auth.Identity
	err      error
}

func (p *Provider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *Provider) Exchange(_ context.Context, _ string) (*auth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

// Fail makes the next exchanges fail with err.
func (p *Provider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Provider) signIn(identity *auth.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = identity
	p.err = nil
}

// Harness is an app server backed by in-memory sessions, storage and bus.
type Harness struct {
	Server     *web.Server
	Controller *auth.Controller
	Provider   *Provider
	Sessions   *auth.MemorySessions
	Local      *storage.MemoryProvider
	Bus        *auth.LocalBus
}

// New returns a harness for app. Forms stay latched for resetDelay after a
// successful submit.
func New(t *testing.T, app string, resetDelay time.Duration) *Harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := view.New()
	require.NoError(t, err)

	h := &Harness{
		Provider: &Provider{},
		Sessions: auth.NewMemorySessions(),
		Local:    storage.NewMemoryProvider(),
		Bus:      auth.NewLocalBus(),
	}
	h.Controller = auth.NewController(app, h.Provider, h.Sessions, h.Bus)

	h.Server, err = web.New(web.Options{
		App:        app,
		Controller: h.Controller,
		Local:      h.Local,
		Renderer:   renderer,
		ResetDelay: resetDelay,
	})
	require.NoError(t, err)
	t.Cleanup(h.Server.Close)
	return h
}

// Do serves req with cookies attached.
func (h *Harness) Do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	h.Server.Engine().ServeHTTP(rec, req)
	return rec
}

// SignIn runs the redirect flow for user and returns the client's cookies.
func (h *Harness) SignIn(t *testing.T, user model.User) []*http.Cookie {
	t.Helper()
	h.Provider.signIn(&auth.Identity{User: user, ExpiresAt: time.Now().Add(time.Hour)})

	rec := h.Do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	callback := "/auth/callback?code=code&state=" + url.QueryEscape(loc.Query().Get("state"))

	rec = h.Do(httptest.NewRequest(http.MethodGet, callback, nil), cookies...)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies = Merge(cookies, rec.Result().Cookies())
	require.NotNil(t, Cookie(cookies, web.SessionCookie))
	return cookies
}

// LocalFor returns the local storage of the client holding cookies.
func (h *Harness) LocalFor(t *testing.T, cookies []*http.Cookie) storage.Local {
	t.Helper()
	device := Cookie(cookies, web.DeviceCookie)
	require.NotNil(t, device)
	return h.Local.ForClient(device.Value)
}

// Form builds a url-encoded POST request.
func Form(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// Merge applies the cookies a response set onto jar, the way a browser does.
func Merge(jar, set []*http.Cookie) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	var order []string
	for _, c := range append(append([]*http.Cookie{}, jar...), set...) {
		if _, ok := byName[c.Name]; !ok {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	var out []*http.Cookie
	for _, name := range order {
		c := byName[name]
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Cookie returns the named cookie, or nil.
func Cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
