package tenantapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/web/webtest"
)

type fakeStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]model.Profile
	incidents []model.Incident
	listed    int
	writeErr  error
	readErr   error
	release   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[uuid.UUID]model.Profile)}
}

func (f *fakeStore) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) UpsertProfile(ctx context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.profiles[profile.ID] = *profile
	return nil
}

func (f *fakeStore) ListIncidentsByUser(ctx context.Context, userID uuid.UUID) ([]model.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []model.Incident
	for i := len(f.incidents) - 1; i >= 0; i-- {
		if f.incidents[i].UserID == userID {
			out = append(out, f.incidents[i])
		}
	}
	return out, nil
}

func (f *fakeStore) CreateIncident(ctx context.Context, inc *model.Incident) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	inc.ID = int64(len(f.incidents) + 1)
	inc.Status = model.StatusReported
	inc.CreatedAt = time.Now()
	f.incidents = append(f.incidents, *inc)
	return nil
}

func (f *fakeStore) created() []model.Incident {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Incident(nil), f.incidents...)
}

var ana = model.User{ID: uuid.New(), Email: "ana@example.com", FullName: "Ana Ruiz"}

func setupApp(t *testing.T) (*webtest.Harness, *fakeStore, []*http.Cookie) {
	h := webtest.New(t, "tenant", time.Hour)
	store := newFakeStore()
	Register(h.Server, store)
	return h, store, h.SignIn(t, ana)
}

func strPtr(s string) *string { return &s }

func validIncident() url.Values {
	return url.Values{
		"category":    {"fontaneria"},
		"urgency":     {"alta"},
		"title":       {"Fuga"},
		"description": {"Water under the sink"},
		"address":     {"Calle Mayor 1"},
		"phone":       {"600111222"},
	}
}

func TestHome_PromptsForIncompleteProfile(t *testing.T) {
	h, store, cookies := setupApp(t)

	rec := h.Do(httptest.NewRequest(http.MethodGet, "/", nil), cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "setup-modal")
	assert.Contains(t, rec.Body.String(), "Hello, Ana")

	store.profiles[ana.ID] = model.Profile{ID: ana.ID, Address: strPtr("Calle Mayor 1"), Phone: strPtr("600111222")}
	rec = h.Do(httptest.NewRequest(http.MethodGet, "/", nil), cookies...)
	assert.NotContains(t, rec.Body.String(), "setup-modal")
	assert.Contains(t, rec.Body.String(), `value="Calle Mayor 1"`)
}

func TestSubmitIncident_RequiresFields(t *testing.T) {
	h, store, cookies := setupApp(t)

	for _, field := range []string{"category", "urgency", "title", "description"} {
		values := validIncident()
		values.Set(field, "  ")
		rec := h.Do(webtest.Form("/incidents", values), cookies...)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, field)
	}

	values := validIncident()
	values.Set("urgency", "critica")
	rec := h.Do(webtest.Form("/incidents", values), cookies...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown urgency")

	assert.Empty(t, store.created())
}

func TestSubmitIncident_WritesOnceAndLatches(t *testing.T) {
	h, store, cookies := setupApp(t)

	rec := h.Do(webtest.Form("/incidents", validIncident()), cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incident sent")
	assert.Contains(t, rec.Body.String(), "disabled>Sent</button>")

	created := store.created()
	require.Len(t, created, 1)
	assert.Equal(t, ana.ID, created[0].UserID)
	assert.Equal(t, "Ana Ruiz", created[0].TenantName)
	assert.Equal(t, "ana@example.com", created[0].TenantEmail)
	assert.Equal(t, model.UrgencyHigh, created[0].Urgency)
	assert.Equal(t, "Calle Mayor 1", created[0].Address)

	// Latched until the reset delay has passed.
	rec = h.Do(webtest.Form("/incidents", validIncident()), cookies...)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "The incident is already being sent")
	assert.Len(t, store.created(), 1)
}

func TestSubmitIncident_ConcurrentSubmitsWriteOnce(t *testing.T) {
	h, store, cookies := setupApp(t)
	store.release = make(chan struct{})

	var wg sync.WaitGroup
	codes := make(chan int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- h.Do(webtest.Form("/incidents", validIncident()), cookies...).Code
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()
	close(codes)

	var ok int
	for code := range codes {
		if code == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, store.created(), 1)
}

func TestSubmitIncident_FailureReenablesForm(t *testing.T) {
	h, store, cookies := setupApp(t)
	store.writeErr = errors.New("backend unavailable")

	rec := h.Do(webtest.Form("/incidents", validIncident()), cookies...)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not send the incident")
	assert.Contains(t, rec.Body.String(), ">Send to Housezen</button>")
	assert.Contains(t, rec.Body.String(), `value="Fuga"`)

	store.writeErr = nil
	rec = h.Do(webtest.Form("/incidents", validIncident()), cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.created(), 1)
}

func TestSaveProfile(t *testing.T) {
	h, store, cookies := setupApp(t)

	rec := h.Do(webtest.Form("/profile", url.Values{"address": {"Calle Mayor 1"}, "phone": {" "}}), cookies...)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, store.profiles)

	rec = h.Do(webtest.Form("/profile", url.Values{"address": {" Calle Mayor 1 "}, "phone": {"600111222"}}), cookies...)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Details saved")

	saved, err := store.GetProfile(context.Background(), ana.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Calle Mayor 1", model.Value(saved.Address))
	assert.True(t, saved.Complete())
}

func TestIncidentsPage_FirstFrame(t *testing.T) {
	h, _, cookies := setupApp(t)

	rec := h.Do(httptest.NewRequest(http.MethodGet, "/incidents", nil), cookies...)
	assert.Contains(t, rec.Body.String(), "loading-state")

	snapshot, err := json.Marshal([]model.Incident{{ID: 1, Title: "Fuga", Status: "Reportada"}})
	require.NoError(t, err)
	require.NoError(t, h.LocalFor(t, cookies).Set(context.Background(), CacheKey, snapshot))

	rec = h.Do(httptest.NewRequest(http.MethodGet, "/incidents", nil), cookies...)
	body := rec.Body.String()
	assert.Contains(t, body, "offline-banner")
	assert.Contains(t, body, "Fuga")
	assert.Contains(t, body, "Reportada")
}

func streamBody(t *testing.T, h *webtest.Harness, cookies []*http.Cookie) string {
	srv := httptest.NewServer(h.Server.Engine())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/incidents/stream", nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestStream_RevalidatesSnapshot(t *testing.T) {
	h, store, cookies := setupApp(t)
	store.incidents = []model.Incident{{ID: 3, Title: "Persiana", UserID: ana.ID, Status: model.StatusSolved}}

	body := streamBody(t, h, cookies)
	assert.Equal(t, 2, strings.Count(body, "event:frame"))
	assert.Contains(t, body, "Persiana")
	assert.Contains(t, body, "event:done")

	data, ok, err := h.LocalFor(t, cookies).Get(context.Background(), CacheKey)
	require.NoError(t, err)
	require.True(t, ok)
	var snapshot []model.Incident
	require.NoError(t, json.Unmarshal(data, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Persiana", snapshot[0].Title)
}

func TestStream_FailureKeepsSnapshot(t *testing.T) {
	h, store, cookies := setupApp(t)
	store.readErr = errors.New("timeout")
	snapshot, err := json.Marshal([]model.Incident{{ID: 1, Title: "Fuga", Status: "Reportada"}})
	require.NoError(t, err)
	require.NoError(t, h.LocalFor(t, cookies).Set(context.Background(), CacheKey, snapshot))

	body := streamBody(t, h, cookies)
	assert.Equal(t, 1, strings.Count(body, "event:frame"))
	assert.Contains(t, body, "offline-banner")
	assert.NotContains(t, body, "could not be loaded")
}

func TestStream_FailureWithoutSnapshot(t *testing.T) {
	h, store, cookies := setupApp(t)
	store.readErr = errors.New("timeout")

	body := streamBody(t, h, cookies)
	assert.Contains(t, body, "could not be loaded")
	assert.NotContains(t, body, "No incidents reported yet")
}

func TestStream_WithoutSessionFetchesNothing(t *testing.T) {
	h, store, _ := setupApp(t)

	body := streamBody(t, h, nil)
	assert.Equal(t, 1, strings.Count(body, "event:frame"))
	assert.Contains(t, body, "event:done")
	assert.Equal(t, 0, store.listed)
}
