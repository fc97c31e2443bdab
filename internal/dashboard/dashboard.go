// Package dashboard runs the three source adapters concurrently and
// assembles whichever snapshots succeeded into one composite for the
// presentation layer. The join waits for all adapters to settle; a failed
// adapter degrades its own section only and never fails the cycle.
package dashboard

import (
	"context"
	"time"

	"kindledash/internal/model"

	appLog "kindledash/internal/log"
)

// WeatherFetcher is implemented by the weather adapter.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (*model.WeatherSnapshot, error)
}

// CalendarFetcher is implemented by the calendar adapter.
type CalendarFetcher interface {
	Fetch(ctx context.Context) ([]model.CalendarDay, error)
}

// TransitFetcher is implemented by the transit adapter.
type TransitFetcher interface {
	Fetch(ctx context.Context) (*model.TransitBoard, error)
}

// Service is the refresh-cycle orchestrator.
type Service struct {
	weather  WeatherFetcher
	calendar CalendarFetcher
	transit  TransitFetcher

	// now is overridable for tests.
	now func() time.Time
}

// NewService wires the three adapters into an orchestrator.
func NewService(w WeatherFetcher, c CalendarFetcher, t TransitFetcher) *Service {
	return &Service{weather: w, calendar: c, transit: t, now: time.Now}
}

// settled carries one adapter's outcome through the join channel.
type settled struct {
	section string
	apply   func(*model.Dashboard)
	err     error
}

// Refresh runs one full cycle. All three adapters are invoked concurrently
// and every one is waited for (success or failure) before the composite is
// assembled. Errors never escape; they are logged and recorded in
// Dashboard.Errors so the renderer can show the degraded fallback.
func (s *Service) Refresh(ctx context.Context) *model.Dashboard {
	now := s.now()
	out := &model.Dashboard{
		Now:    now,
		Quote:  dailyQuote(now),
		Errors: map[string]string{},
	}

	results := make(chan settled, 3)

	go func() {
		snap, err := s.weather.Fetch(ctx)
		results <- settled{"weather", func(d *model.Dashboard) { d.Weather = snap }, err}
	}()
	go func() {
		days, err := s.calendar.Fetch(ctx)
		results <- settled{"calendar", func(d *model.Dashboard) { d.Calendar = days }, err}
	}()
	go func() {
		board, err := s.transit.Fetch(ctx)
		results <- settled{"transit", func(d *model.Dashboard) { d.Transit = board }, err}
	}()

	for i := 0; i < 3; i++ {
		res := <-results
		if res.err != nil {
			appLog.Warn("section fetch failed; rendering fallback", res.err, "section", res.section)
			out.Errors[res.section] = res.err.Error()
			continue
		}
		res.apply(out)
	}

	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out
}
