package calendar

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "kindledash/internal/log"
	"kindledash/internal/provider"
)

// icsSource fetches one ICS subscription and expands its events into the
// agenda window. The feed joins the merge exactly like a Google calendar;
// recurring events contribute one rawEvent per occurrence.
type icsSource struct {
	id   string
	url  string
	http *http.Client
	loc  *time.Location
}

func (s *icsSource) Name() string { return "ics:" + s.id }

func (s *icsSource) Events(ctx context.Context, from, to time.Time) ([]rawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "calendar", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.ProviderError{Provider: "calendar", Status: resp.StatusCode}
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return nil, &provider.ProviderError{Provider: "calendar", Err: err}
	}

	cal, err := ical.ParseCalendar(&body)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "calendar", Err: err}
	}

	out := make([]rawEvent, 0)
	for _, ve := range cal.Events() {
		events := s.expandVEvent(ve, from, to)
		out = append(out, events...)
		if len(out) >= perSourceLimit {
			out = out[:perSourceLimit]
			break
		}
	}
	return out, nil
}

// expandVEvent converts one VEVENT into zero or more occurrences inside
// [from, to). Malformed events are logged and skipped, never fatal.
func (s *icsSource) expandVEvent(ve *ical.VEvent, from, to time.Time) []rawEvent {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil
	}
	uid := uidProp.Value

	var title, location string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		title = p.Value
	}
	if title == "" {
		return nil
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		appLog.Warn("ics: dropping event without usable DTSTART", err, "feed", s.id, "uid", uid)
		return nil
	}
	end, err := ve.GetEndAt()
	if err != nil || end.Before(start) {
		end = start
	}

	allDay := s.isAllDay(ve)
	if allDay {
		d := start.In(s.loc)
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
		last := start
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if t, err := parseICSTime(p.Value, s.loc); err == nil {
				ed := t.In(s.loc)
				last = time.Date(ed.Year(), ed.Month(), ed.Day(), 0, 0, 0, 0, s.loc)
				// DTEND on date-valued events is exclusive.
				if last.After(start) {
					last = last.AddDate(0, 0, -1)
				}
			}
		}
		end = last.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}

	base := rawEvent{
		ID:       s.id + "/" + uid,
		Title:    title,
		Location: location,
		Start:    start,
		End:      end,
		AllDay:   allDay,
	}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		if base.Start.Before(to) && !base.Start.Before(from) {
			return []rawEvent{base}
		}
		return nil
	}

	return s.expandRecurring(ve, base, rruleProp.Value, from, to)
}

// expandRecurring materializes RRULE occurrences within the window,
// honoring EXDATE exceptions. Each occurrence keeps the base duration and
// gets a per-instance ID suffix.
func (s *icsSource) expandRecurring(ve *ical.VEvent, base rawEvent, rawRule string, from, to time.Time) []rawEvent {
	r, err := rrule.StrToRRule(rawRule)
	if err != nil {
		appLog.Warn("ics: dropping event with unparseable RRULE", err, "feed", s.id, "rrule", rawRule)
		return nil
	}
	r.DTStart(base.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exDates(ve, base.Start.Location()) {
		set.ExDate(ex)
	}

	dur := base.End.Sub(base.Start)
	occTimes := set.Between(from.In(base.Start.Location()), to.In(base.Start.Location()), true)

	out := make([]rawEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		// Between includes the upper edge; the window is half-open.
		if !occStart.Before(to) {
			continue
		}
		occ := base
		occ.ID = base.ID + "/" + occStart.Format(time.RFC3339)
		occ.Start = occStart
		occ.End = occStart.Add(dur)
		out = append(out, occ)
	}
	return out
}

// isAllDay detects VALUE=DATE starts, or bare YYYYMMDD values without a
// time component.
func (s *icsSource) isAllDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(prop.Value, "T")
}

// exDates collects EXDATE values, best-effort. Unparseable entries are
// ignored.
func exDates(ve *ical.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out = append(out, t.In(loc))
			}
		}
	}
	return out
}

// parseICSTime parses the basic ICS date/date-time forms.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
