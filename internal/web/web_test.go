package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcal/internal/config"
	"dashcal/internal/model"
)

type stubViewer struct {
	view model.View
}

func (s stubViewer) Current(context.Context) model.View { return s.view }

func sampleView() model.View {
	day := model.NewDate(2025, time.June, 5)
	return model.View{
		RenderID:    "render-1",
		GeneratedAt: time.Date(2025, time.June, 5, 12, 0, 0, 0, time.UTC),
		Timezone:    "UTC",
		Theme:       "light",
		Columns: []model.DayColumn{
			{
				Date:      day,
				IsToday:   true,
				DayName:   "TODAY",
				DateLabel: "Jun 5",
				Events: []model.TimedEvent{
					{Summary: "Standup", Day: day, StartTime: "09:00", EndTime: "09:15", Color: "#2962ff"},
				},
			},
		},
		AllDay: []model.Placement{
			{Summary: "Holiday", ColStart: 1, ColSpan: 1, Row: 1, DateRange: "Jun 5", TimeLabel: "All Day", Color: "#0b8043"},
		},
		AllDayRows:   1,
		NoEventsText: "No events",
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Normalize()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "preview.png")
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, stubViewer{view: sampleView()})
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCalendarPage(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "Standup")
	assert.Contains(t, body, "Holiday")
	assert.Contains(t, body, "TODAY")
}

func TestViewJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/view", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "render-1", got["render_id"])
	assert.EqualValues(t, 1, got["all_day_rows"])

	allDay, ok := got["all_day_events"].([]any)
	require.True(t, ok)
	require.Len(t, allDay, 1)
	first := allDay[0].(map[string]any)
	assert.Equal(t, "Holiday", first["summary"])
	assert.Equal(t, false, first["is_left"])
	assert.Equal(t, "All Day", first["time_str"])
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, os.WriteFile(s.cfg.Capture.Output, png, 0o644))

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
		req.SetBasicAuth("admin", "nope")
		rec := do(t, s, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
		req.SetBasicAuth("admin", "secret")
		rec := do(t, s, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health is exempt", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestBasicAuth_DisabledWhenIncomplete(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/view", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
