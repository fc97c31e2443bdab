// Package transit is the departure-board source adapter for a
// transport.rest-style stop departures endpoint. One GET fetches the next
// hour of departures for the configured stop; real-time timings are folded
// into a display string and service remarks become deduplicated alerts.
package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	appLog "kindledash/internal/log"
	"kindledash/internal/model"
	"kindledash/internal/provider"
	"kindledash/internal/timeutil"
)

const defaultBaseURL = "https://v6.bvg.transport.rest"

const (
	// windowMinutes is the departure lookahead requested from the provider.
	windowMinutes = 60
	// anchorLead shifts the query window into the future so departures that
	// have effectively already left are filtered out.
	anchorLead = 6 * time.Minute
	// fetchLimit is the provider-side result cap; boardLimit is what the
	// board shows. Alerts scan the full fetch, not just the kept rows.
	fetchLimit = 20
	boardLimit = 10
	alertLimit = 3
)

// allProducts is the full set of vehicle-category flags the endpoint
// accepts. Categories not configured are excluded at the query level.
var allProducts = []string{"suburban", "subway", "tram", "bus", "ferry", "regional", "express"}

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Client fetches and normalizes departures for one configured stop.
type Client struct {
	http     *http.Client
	baseURL  string
	stopID   string
	products map[string]bool
	loc      *time.Location

	// now is overridable for tests.
	now func() time.Time
}

// NewClient builds a transit client. products lists the vehicle categories
// of interest (e.g. "suburban", "regional").
func NewClient(httpClient *http.Client, stopID, tzName string, products []string) *Client {
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	enabled := make(map[string]bool, len(products))
	for _, p := range products {
		enabled[p] = true
	}
	return &Client{
		http:     httpClient,
		baseURL:  defaultBaseURL,
		stopID:   stopID,
		products: enabled,
		loc:      timeutil.LoadLocationOrLocal(tzName),
		now:      time.Now,
	}
}

// departure mirrors one provider departure entry.
type departure struct {
	TripID          string  `json:"tripId"`
	Direction       string  `json:"direction"`
	When            *string `json:"when"`
	PlannedWhen     *string `json:"plannedWhen"`
	Delay           *int    `json:"delay"` // seconds
	Platform        *string `json:"platform"`
	PlannedPlatform *string `json:"plannedPlatform"`
	Cancelled       bool    `json:"cancelled"`
	Line            struct {
		Name    string `json:"name"`
		Product string `json:"product"`
	} `json:"line"`
	Remarks []remark `json:"remarks"`
}

type remark struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Text    string `json:"text"`
	Summary string `json:"summary"`
}

// departuresEnvelope accepts the object-with-departures response shape.
type departuresEnvelope struct {
	Departures []departure `json:"departures"`
}

// Fetch performs one best-effort request and returns the normalized board.
// A missing stop ID is a configuration error and skips the network call.
func (c *Client) Fetch(ctx context.Context) (*model.TransitBoard, error) {
	if c.stopID == "" {
		return nil, &provider.ConfigError{Field: "transit.stop_id"}
	}

	now := c.now()

	q := url.Values{}
	q.Set("duration", fmt.Sprintf("%d", windowMinutes))
	q.Set("results", fmt.Sprintf("%d", fetchLimit))
	for _, p := range allProducts {
		q.Set(p, fmt.Sprintf("%t", c.products[p]))
	}
	q.Set("when", now.Add(anchorLead).UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/stops/%s/departures?%s", c.baseURL, url.PathEscape(c.stopID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "transit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.ProviderError{Provider: "transit", Status: resp.StatusCode}
	}

	raw, err := decodeDepartures(resp)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "transit", Err: err}
	}

	board := &model.TransitBoard{
		Departures: c.normalizeDepartures(raw, now),
		Alerts:     collectAlerts(raw),
	}
	appLog.Debug("transit fetch completed", "raw", len(raw), "kept", len(board.Departures), "alerts", len(board.Alerts))
	return board, nil
}

// decodeDepartures accepts either a bare array or {"departures": [...]}.
func decodeDepartures(resp *http.Response) ([]departure, error) {
	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	var list []departure
	if err := json.Unmarshal(payload, &list); err == nil {
		return list, nil
	}

	var envelope departuresEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.Departures, nil
}

// normalizeDepartures keeps up to boardLimit rows in provider order,
// dropping entries whose line name cannot be determined.
func (c *Client) normalizeDepartures(raw []departure, now time.Time) []model.Departure {
	out := make([]model.Departure, 0, boardLimit)
	for i, dep := range raw {
		if len(out) >= boardLimit {
			break
		}
		if dep.Line.Name == "" {
			appLog.Debug("transit: dropping departure without line name", "index", i)
			continue
		}

		id := dep.TripID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		product := dep.Line.Product
		if product == "" {
			product = "suburban"
		}
		direction := dep.Direction
		if direction == "" {
			direction = "—"
		}

		var delayMinutes *int
		if dep.Delay != nil {
			m := int(math.Round(float64(*dep.Delay) / 60))
			delayMinutes = &m
		}

		platform := dep.Platform
		if platform == nil {
			platform = dep.PlannedPlatform
		}

		out = append(out, model.Departure{
			ID:           id,
			LineName:     dep.Line.Name,
			LineProduct:  product,
			Direction:    direction,
			WhenDisplay:  c.whenDisplay(dep, now),
			DelayMinutes: delayMinutes,
			Platform:     platform,
			Cancelled:    dep.Cancelled,
		})
	}
	return out
}

// whenDisplay renders the departure timing: "Cancelled" beats everything;
// the real-time timestamp beats the planned one; neither present renders a
// placeholder dash. Countdown boundaries: ≤0 min "now", <60 min "N min",
// otherwise an absolute local HH:MM.
func (c *Client) whenDisplay(dep departure, now time.Time) string {
	if dep.Cancelled {
		return "Cancelled"
	}

	raw := dep.When
	if raw == nil {
		raw = dep.PlannedWhen
	}
	if raw == nil {
		return "—"
	}

	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		appLog.Warn("transit: unparseable departure time", err, "value", *raw)
		return "—"
	}

	minutes := int(math.Round(t.Sub(now).Minutes()))
	switch {
	case minutes <= 0:
		return "now"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	default:
		return timeutil.Clock(t, c.loc)
	}
}

// collectAlerts scans every raw departure's remarks (not just the kept
// rows), strips embedded markup, keeps only warning/disruption/status
// remarks, and deduplicates by cleaned text with first occurrence winning.
func collectAlerts(raw []departure) []model.TransitAlert {
	seen := make(map[string]bool)
	alerts := make([]model.TransitAlert, 0, alertLimit)

	for _, dep := range raw {
		for _, rm := range dep.Remarks {
			text := rm.Text
			if text == "" {
				text = rm.Summary
			}
			clean := strings.TrimSpace(markupPattern.ReplaceAllString(text, ""))
			if clean == "" {
				continue
			}

			// Routine hints are dropped.
			switch rm.Type {
			case "warning", "disruption", "status":
			default:
				continue
			}

			if seen[clean] {
				continue
			}
			seen[clean] = true

			id := rm.ID
			if id == "" {
				if len(clean) > 32 {
					id = clean[:32]
				} else {
					id = clean
				}
			}
			alerts = append(alerts, model.TransitAlert{ID: id, Text: clean, Type: rm.Type})
			if len(alerts) >= alertLimit {
				return alerts
			}
		}
	}
	return alerts
}
