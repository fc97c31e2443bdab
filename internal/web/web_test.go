package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindledash/internal/config"
	"kindledash/internal/model"
)

type stubRefresher struct {
	data  *model.Dashboard
	calls int
}

func (s *stubRefresher) Refresh(context.Context) *model.Dashboard {
	s.calls++
	return s.data
}

func berlinNoon() time.Time {
	loc, _ := time.LoadLocation("Europe/Berlin")
	return time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
}

func newTestServer(t *testing.T, cfg *config.Config, data *model.Dashboard) (*Server, *stubRefresher) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ref := &stubRefresher{data: data}
	srv, err := NewServer(cfg, ref)
	require.NoError(t, err)
	return srv, ref
}

func degradedDashboard() *model.Dashboard {
	return &model.Dashboard{
		Now:   berlinNoon(),
		Quote: model.Quote{Text: "Make each day your masterpiece.", Author: "John Wooden"},
		Calendar: []model.CalendarDay{
			{Label: "Today", Events: []model.CalendarEvent{{ID: "e1", Title: "Planning", IsAllDay: true}}},
		},
		Transit: &model.TransitBoard{
			Departures: []model.Departure{{ID: "t1", LineName: "S9", Direction: "Airport", WhenDisplay: "3 min"}},
		},
		Errors: map[string]string{"weather": "weather provider error: status 502"},
	}
}

func TestPageRendersFallbackForFailedSection(t *testing.T) {
	srv, _ := newTestServer(t, nil, degradedDashboard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	// Weather failed this cycle: fallback text instead of the section.
	assert.Contains(t, body, "Weather data unavailable.")
	// The surviving sections render normally.
	assert.Contains(t, body, "Planning")
	assert.Contains(t, body, "S9")
	assert.Contains(t, body, "3 min")
	// Header fields come from the composite's instant in the display zone.
	assert.Contains(t, body, "Saturday")
	assert.Contains(t, body, "12:00")
}

func TestPageRendersWeatherSection(t *testing.T) {
	data := degradedDashboard()
	data.Errors = nil
	data.Weather = &model.WeatherSnapshot{
		Current: model.CurrentConditions{Temperature: 22, Icon: model.IconRain, Description: "Thunderstorm"},
		Forecast: []model.DailyForecast{
			{Day: "Today", Icon: model.IconRain, Description: "Thunderstorm", TempLow: 15, TempHigh: 23},
		},
		Sunrise: "04:48",
		Sunset:  "21:19",
	}
	srv, _ := newTestServer(t, nil, data)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Thunderstorm")
	assert.Contains(t, body, "04:48")
	assert.NotContains(t, body, "Weather data unavailable.")
}

func TestPageDelayChip(t *testing.T) {
	five, zero, two := 5, 0, 2
	data := degradedDashboard()
	data.Transit = &model.TransitBoard{
		Departures: []model.Departure{
			{ID: "t1", LineName: "S9", Direction: "Airport", WhenDisplay: "Cancelled", DelayMinutes: &five, Cancelled: true},
			{ID: "t2", LineName: "S3", Direction: "Erkner", WhenDisplay: "3 min", DelayMinutes: &zero},
			{ID: "t3", LineName: "RE1", Direction: "Brandenburg", WhenDisplay: "8 min", DelayMinutes: &two},
		},
	}
	srv, _ := newTestServer(t, nil, data)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	// A cancelled row shows only "Cancelled"; its delay is meaningless.
	assert.Contains(t, body, "Cancelled")
	assert.NotContains(t, body, "+5")
	// A zero-minute delay is on time, no chip.
	assert.NotContains(t, body, "+0")
	// A late, running departure carries the chip.
	assert.Contains(t, body, `<span class="delay">+2</span>`)
}

func TestDashboardCacheReusesComposite(t *testing.T) {
	srv, ref := newTestServer(t, nil, degradedDashboard())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, ref.calls)
}

func TestAPIDashboard(t *testing.T) {
	srv, _ := newTestServer(t, nil, degradedDashboard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Nil(t, got.Weather)
	assert.Equal(t, "weather provider error: status 502", got.Errors["weather"])
	require.Len(t, got.Transit.Departures, 1)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, degradedDashboard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "kindle", Password: "secret"}
	srv, _ := newTestServer(t, cfg, degradedDashboard())
	h := srv.Handler()

	// Unauthenticated page request is rejected.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// /health stays open for probes.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Correct credentials pass.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("kindle", "secret")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
