package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	appLog "kindledash/internal/log"
	"kindledash/internal/provider"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleAPIBase  = "https://www.googleapis.com/calendar/v3"
)

// googleAuth holds the OAuth2 client-credential pair and refresh token
// shared by all Google calendar sources. Access tokens are minted lazily by
// the token source; no token state is persisted.
type googleAuth struct {
	conf         *oauth2.Config
	refreshToken string
	base         *http.Client

	// apiBase is overridable for tests.
	apiBase string
}

func newGoogleAuth(clientID, clientSecret, refreshToken string, base *http.Client) *googleAuth {
	return &googleAuth{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: googleTokenURL},
		},
		refreshToken: refreshToken,
		base:         base,
		apiBase:      googleAPIBase,
	}
}

// client returns an HTTP client that injects freshly refreshed access
// tokens, built on top of the shared base transport.
func (g *googleAuth) client(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	ts := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: g.refreshToken})
	return oauth2.NewClient(ctx, ts)
}

// googleSource queries one Google calendar's events.list endpoint.
type googleSource struct {
	auth       *googleAuth
	calendarID string
	loc        *time.Location
}

func (s *googleSource) Name() string { return "google:" + s.calendarID }

// googleEventTime is either a date-only (all-day) or date-time field.
type googleEventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

type googleEvent struct {
	ID       string          `json:"id"`
	Summary  string          `json:"summary"`
	Location string          `json:"location"`
	Start    googleEventTime `json:"start"`
	End      googleEventTime `json:"end"`
}

type googleEventList struct {
	Items []googleEvent `json:"items"`
}

// Events lists up to perSourceLimit event instances starting in [from, to),
// with recurring events expanded to single instances by the provider and
// pre-sorted by start time.
func (s *googleSource) Events(ctx context.Context, from, to time.Time) ([]rawEvent, error) {
	q := url.Values{}
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprintf("%d", perSourceLimit))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", s.auth.apiBase, url.PathEscape(s.calendarID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.auth.client(ctx).Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "calendar", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.ProviderError{Provider: "calendar", Status: resp.StatusCode}
	}

	var list googleEventList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &provider.ProviderError{Provider: "calendar", Err: err}
	}

	out := make([]rawEvent, 0, len(list.Items))
	for _, item := range list.Items {
		ev, ok := s.normalize(item)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// normalize converts one provider item, discarding records missing an ID,
// title, or usable start.
func (s *googleSource) normalize(item googleEvent) (rawEvent, bool) {
	if item.ID == "" || item.Summary == "" {
		return rawEvent{}, false
	}

	// All-day status comes from the presence of a date-only start field.
	allDay := item.Start.Date != "" && item.Start.DateTime == ""

	var start, end time.Time
	if allDay {
		d, err := time.ParseInLocation("2006-01-02", item.Start.Date, s.loc)
		if err != nil {
			appLog.Warn("calendar: dropping event with bad all-day start", err, "id", item.ID)
			return rawEvent{}, false
		}
		start = d // local midnight

		endDate := item.End.Date
		if endDate == "" {
			endDate = item.Start.Date
		}
		de, err := time.ParseInLocation("2006-01-02", endDate, s.loc)
		if err != nil {
			de = d
		}
		end = time.Date(de.Year(), de.Month(), de.Day(), 23, 59, 59, 0, s.loc)
	} else {
		var err error
		start, err = time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			appLog.Warn("calendar: dropping event with bad start time", err, "id", item.ID)
			return rawEvent{}, false
		}
		end, err = time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			end = start
		}
	}

	return rawEvent{
		ID:       item.ID,
		Title:    item.Summary,
		Location: item.Location,
		Start:    start,
		End:      end,
		AllDay:   allDay,
	}, true
}
