// Package model defines the normalized, renderer-agnostic data model
// produced by the source adapters. Every value is built fresh on each
// refresh cycle and never mutated afterwards.
package model

import "time"

// WeatherIcon is the shared classification vocabulary for weather
// conditions. Provider-specific codes are mapped onto it by the weather
// adapter; unknown codes map to IconCloudy.
type WeatherIcon string

const (
	IconSunny        WeatherIcon = "sunny"
	IconPartlyCloudy WeatherIcon = "partly-cloudy"
	IconCloudy       WeatherIcon = "cloudy"
	IconLightRain    WeatherIcon = "light-rain"
	IconRain         WeatherIcon = "rain"
	IconSnow         WeatherIcon = "snow"
)

// CurrentConditions is the "right now" weather reading.
type CurrentConditions struct {
	Temperature         int         `json:"temperature"`
	ApparentTemperature int         `json:"apparent_temperature"`
	Humidity            int         `json:"humidity"`
	WindSpeed           int         `json:"wind_speed"`
	Icon                WeatherIcon `json:"icon"`
	Description         string      `json:"description"`
}

// HourlyForecast is one entry of the 8-hour strip starting at the current
// local hour. PrecipProbability is nil when the provider reports exactly 0,
// so the renderer can distinguish "dry" from "0% shown".
type HourlyForecast struct {
	Hour              string      `json:"hour"` // "14"
	Temperature       int         `json:"temperature"`
	Icon              WeatherIcon `json:"icon"`
	PrecipProbability *int        `json:"precip_probability,omitempty"`
}

// DailyForecast is one of up to six forecast days.
type DailyForecast struct {
	Day         string      `json:"day"` // "Today", "Tomorr.", "Thu"
	Icon        WeatherIcon `json:"icon"`
	Description string      `json:"description"`
	TempLow     int         `json:"temp_low"`
	TempHigh    int         `json:"temp_high"`
}

// WeatherSnapshot is the weather adapter's output for one refresh cycle.
// TempRangeMin/TempRangeMax are derived bounds across the forecast lows and
// highs, used only for bar scaling by the renderer.
type WeatherSnapshot struct {
	Current      CurrentConditions `json:"current"`
	Hourly       []HourlyForecast  `json:"hourly"`
	Forecast     []DailyForecast   `json:"forecast"`
	Sunrise      string            `json:"sunrise"` // "07:12"
	Sunset       string            `json:"sunset"`  // "17:45"
	TempRangeMin int               `json:"temp_range_min"`
	TempRangeMax int               `json:"temp_range_max"`
}

// CalendarEvent is one agenda entry. StartTime/EndTime are local HH:MM
// strings and nil for all-day events.
type CalendarEvent struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Location  string  `json:"location,omitempty"`
	IsNow     bool    `json:"is_now"`
	IsAllDay  bool    `json:"is_all_day"`
}

// CalendarDay groups consecutive events sharing a day label. Events are in
// start-time order within the group.
type CalendarDay struct {
	Label  string          `json:"label"` // "Today", "Tomorrow", "Thu, 28 Feb"
	Events []CalendarEvent `json:"events"`
}

// Departure is one row of the transit board. WhenDisplay is one of an
// absolute local time, "N min", "now", "Cancelled", or "—".
type Departure struct {
	ID           string  `json:"id"`
	LineName     string  `json:"line_name"`
	LineProduct  string  `json:"line_product"`
	Direction    string  `json:"direction"`
	WhenDisplay  string  `json:"when_display"`
	DelayMinutes *int    `json:"delay_minutes"`
	Platform     *string `json:"platform"`
	Cancelled    bool    `json:"cancelled"`
}

// Delayed reports whether the row should carry a late chip. Cancelled
// departures and zero-minute delays never do.
func (d Departure) Delayed() bool {
	return !d.Cancelled && d.DelayMinutes != nil && *d.DelayMinutes > 0
}

// TransitAlert is a deduplicated service remark surfaced on the board.
type TransitAlert struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"` // "warning", "disruption", "status"
}

// TransitBoard is the transit adapter's output for one refresh cycle.
type TransitBoard struct {
	Departures []Departure    `json:"departures"`
	Alerts     []TransitAlert `json:"alerts"`
}

// Quote is the daily footer quote, picked by day of year.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// Dashboard is the composite handed to the presentation layer. A nil
// Weather/Transit or empty Calendar together with an entry in Errors means
// that section degraded for this cycle.
type Dashboard struct {
	Now      time.Time         `json:"now"`
	Weather  *WeatherSnapshot  `json:"weather"`
	Calendar []CalendarDay     `json:"calendar"`
	Transit  *TransitBoard     `json:"transit"`
	Quote    Quote             `json:"quote"`
	Errors   map[string]string `json:"errors,omitempty"`
}
