// Package web serves the rendered dashboard page, a JSON view of the
// composite, and the last captured PNG. Layout is fixed at 600×800 to match
// the e-ink panel that pulls /screen.png.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"kindledash/internal/config"
	appLog "kindledash/internal/log"
	"kindledash/internal/model"
	"kindledash/internal/timeutil"
)

//go:embed templates
var embeddedTemplates embed.FS

// Refresher runs one data refresh cycle; implemented by dashboard.Service.
type Refresher interface {
	Refresh(ctx context.Context) *model.Dashboard
}

// cacheTTL keeps page, API and capture requests within one refresh window
// on the same composite instead of re-fetching the providers per request.
const cacheTTL = 30 * time.Second

// Server provides the HTTP surface.
type Server struct {
	cfg       *config.Config
	refresher Refresher
	loc       *time.Location
	mux       *http.ServeMux
	tmpl      *template.Template

	cacheMu sync.RWMutex
	cache   *dashboardCache
}

type dashboardCache struct {
	data      *model.Dashboard
	updatedAt time.Time
}

// NewServer constructs a Server around the orchestrator.
func NewServer(cfg *config.Config, refresher Refresher) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"icon": iconGlyph,
	}).ParseFS(embeddedTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		refresher: refresher,
		loc:       timeutil.LoadLocationOrLocal(cfg.Timezone),
		mux:       http.NewServeMux(),
		tmpl:      tmpl,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the routed handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handlePage)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/dashboard", s.handleAPI)
	s.mux.HandleFunc("/screen.png", s.handleScreen)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="kindledash", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// dashboardData returns the cached composite or runs a fresh cycle.
func (s *Server) dashboardData(ctx context.Context) *model.Dashboard {
	now := time.Now()

	s.cacheMu.RLock()
	c := s.cache
	s.cacheMu.RUnlock()
	if c != nil && now.Sub(c.updatedAt) < cacheTTL {
		return c.data
	}

	data := s.refresher.Refresh(ctx)

	s.cacheMu.Lock()
	s.cache = &dashboardCache{data: data, updatedAt: time.Now()}
	s.cacheMu.Unlock()

	return data
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// pageView is the template's view of one composite.
type pageView struct {
	DayName     string
	DateLine    string
	Clock       string
	RefreshTime string

	Weather  *model.WeatherSnapshot
	Calendar []model.CalendarDay
	Transit  *model.TransitBoard
	Quote    model.Quote
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := s.dashboardData(r.Context())
	now := data.Now.In(s.loc)

	view := pageView{
		DayName:     now.Format("Monday"),
		DateLine:    now.Format("2 January"),
		Clock:       now.Format("15:04"),
		RefreshTime: now.Format("15:04:05"),
		Weather:     data.Weather,
		Calendar:    data.Calendar,
		Transit:     data.Transit,
		Quote:       data.Quote,
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "dashboard.html.tmpl", view); err != nil {
		appLog.Error("failed to render dashboard page", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboardData(r.Context()))
}

// handleScreen serves the last captured PNG from disk. ServeFile maps a
// missing file to 404, which the puller treats as "no capture yet".
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.ScreenPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

// iconGlyph maps the icon vocabulary onto glyphs the e-ink panel renders
// legibly.
func iconGlyph(icon model.WeatherIcon) string {
	switch icon {
	case model.IconSunny:
		return "☀"
	case model.IconPartlyCloudy:
		return "⛅"
	case model.IconLightRain:
		return "🌦"
	case model.IconRain:
		return "🌧"
	case model.IconSnow:
		return "❄"
	default:
		return "☁"
	}
}
