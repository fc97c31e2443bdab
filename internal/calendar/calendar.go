// Package calendar is the agenda source adapter. It queries every
// configured calendar source concurrently (Google calendars and optional
// ICS feeds), merges the results by event ID, and groups them into
// day-labeled agenda sections. A single failing source degrades silently;
// only absent credentials fail the whole fetch.
package calendar

import (
	"context"
	"net/http"
	"sort"
	"time"

	appLog "kindledash/internal/log"
	"kindledash/internal/model"
	"kindledash/internal/provider"
	"kindledash/internal/timeutil"
)

// agendaWindow is how far ahead the agenda looks.
const agendaWindow = 7 * 24 * time.Hour

// perSourceLimit caps results per calendar source.
const perSourceLimit = 20

// rawEvent is the source-agnostic event shape before agenda assembly.
// Start/End are instants; all-day events carry synthetic local bounds
// (midnight .. 23:59:59).
type rawEvent struct {
	ID       string
	Title    string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// source is one queryable calendar.
type source interface {
	Name() string
	Events(ctx context.Context, from, to time.Time) ([]rawEvent, error)
}

// Client assembles the agenda from all configured sources.
type Client struct {
	sources []source
	loc     *time.Location

	// missingCred is non-empty when Google calendars are configured but a
	// credential is absent; Fetch surfaces it before any network call.
	missingCred string

	// now is overridable for tests.
	now func() time.Time
}

// Options configures NewClient.
type Options struct {
	HTTPClient   *http.Client
	Timezone     string
	CalendarIDs  []string
	ClientID     string
	ClientSecret string
	RefreshToken string
	ICSFeeds     []ICSFeed
}

// ICSFeed is one ICS subscription source.
type ICSFeed struct {
	ID  string
	URL string
}

// NewClient wires the configured Google calendars and ICS feeds into one
// agenda client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	loc := timeutil.LoadLocationOrLocal(opts.Timezone)

	c := &Client{
		loc: loc,
		now: time.Now,
	}

	if len(opts.CalendarIDs) > 0 {
		switch {
		case opts.ClientID == "":
			c.missingCred = "google.client_id"
		case opts.ClientSecret == "":
			c.missingCred = "google.client_secret"
		case opts.RefreshToken == "":
			c.missingCred = "google.refresh_token"
		default:
			g := newGoogleAuth(opts.ClientID, opts.ClientSecret, opts.RefreshToken, httpClient)
			for _, id := range opts.CalendarIDs {
				c.sources = append(c.sources, &googleSource{auth: g, calendarID: id, loc: loc})
			}
		}
	}
	for _, feed := range opts.ICSFeeds {
		if feed.URL == "" {
			continue
		}
		c.sources = append(c.sources, &icsSource{id: feed.ID, url: feed.URL, http: httpClient, loc: loc})
	}

	return c
}

// sourceResult wraps one source's settled outcome.
type sourceResult struct {
	name   string
	events []rawEvent
	err    error
}

// Fetch queries all sources concurrently, waiting for every one to settle,
// and returns the grouped agenda. Individual source failures are logged and
// contribute nothing.
func (c *Client) Fetch(ctx context.Context) ([]model.CalendarDay, error) {
	if c.missingCred != "" {
		return nil, &provider.ConfigError{Field: c.missingCred}
	}

	now := c.now()
	from := now
	to := now.Add(agendaWindow)

	results := make(chan sourceResult, len(c.sources))
	for _, src := range c.sources {
		go func(s source) {
			events, err := s.Events(ctx, from, to)
			results <- sourceResult{name: s.Name(), events: events, err: err}
		}(src)
	}

	// Settle-all join: collect every source's outcome, then merge in the
	// configured source order so duplicate-ID resolution stays deterministic.
	settled := make(map[string][]rawEvent, len(c.sources))
	for range c.sources {
		res := <-results
		if res.err != nil {
			appLog.Warn("calendar source failed; omitting its events", res.err, "source", res.name)
			continue
		}
		settled[res.name] = res.events
	}

	merged := make(map[string]rawEvent)
	for _, src := range c.sources {
		for _, ev := range settled[src.Name()] {
			// Cross-source duplicates by ID collapse; last write wins.
			merged[ev.ID] = ev
		}
	}

	events := make([]rawEvent, 0, len(merged))
	for _, ev := range merged {
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	return c.group(events, now), nil
}

// group assigns each event a day label from local calendar-date equality
// and folds consecutive same-label events into one agenda day.
func (c *Client) group(events []rawEvent, now time.Time) []model.CalendarDay {
	days := make([]model.CalendarDay, 0)

	for _, ev := range events {
		label := timeutil.DayLabel(ev.Start, now, c.loc)
		out := model.CalendarEvent{
			ID:       ev.ID,
			Title:    ev.Title,
			Location: ev.Location,
			IsAllDay: ev.AllDay,
			IsNow:    !ev.AllDay && !ev.Start.After(now) && now.Before(ev.End),
		}
		if !ev.AllDay {
			start := timeutil.Clock(ev.Start, c.loc)
			end := timeutil.Clock(ev.End, c.loc)
			out.StartTime = &start
			out.EndTime = &end
		}

		if n := len(days); n > 0 && days[n-1].Label == label {
			days[n-1].Events = append(days[n-1].Events, out)
			continue
		}
		days = append(days, model.CalendarDay{Label: label, Events: []model.CalendarEvent{out}})
	}

	return days
}
