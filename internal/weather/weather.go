// Package weather is the Open-Meteo source adapter. One GET fetches
// current, hourly and 7-day daily conditions for a fixed coordinate; the
// response's parallel arrays are normalized into a model.WeatherSnapshot.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	appLog "kindledash/internal/log"
	"kindledash/internal/model"
	"kindledash/internal/provider"
	"kindledash/internal/timeutil"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Open-Meteo returns local wall-clock times without a UTC offset when a
// timezone parameter is sent.
const localTimeLayout = "2006-01-02T15:04"

const (
	hourlyWindow  = 8
	forecastDays  = 6
	requestedDays = 7
)

// Client fetches and normalizes weather for one fixed coordinate.
type Client struct {
	http     *http.Client
	baseURL  string
	lat, lon float64
	tzName   string
	loc      *time.Location

	// now is overridable for tests.
	now func() time.Time
}

// NewClient builds a weather client for the given coordinate and display
// timezone.
func NewClient(httpClient *http.Client, lat, lon float64, tzName string) *Client {
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	return &Client{
		http:    httpClient,
		baseURL: defaultBaseURL,
		lat:     lat,
		lon:     lon,
		tzName:  tzName,
		loc:     timeutil.LoadLocationOrLocal(tzName),
		now:     time.Now,
	}
}

// forecastResponse mirrors the Open-Meteo JSON shape: one object per
// variable set, each holding parallel arrays per field.
type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		Apparent    float64 `json:"apparent_temperature"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		WeatherCode []int     `json:"weather_code"`
		PrecipProb  []float64 `json:"precipitation_probability"`
	} `json:"hourly"`
	Daily struct {
		Time        []string  `json:"time"`
		WeatherCode []int     `json:"weather_code"`
		TempMax     []float64 `json:"temperature_2m_max"`
		TempMin     []float64 `json:"temperature_2m_min"`
		Sunrise     []string  `json:"sunrise"`
		Sunset      []string  `json:"sunset"`
	} `json:"daily"`
}

// Fetch performs one best-effort request and returns the normalized
// snapshot. A non-success status or undecodable body yields a
// *provider.ProviderError; there are no retries.
func (c *Client) Fetch(ctx context.Context) (*model.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%g", c.lat))
	values.Set("longitude", fmt.Sprintf("%g", c.lon))
	values.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m")
	values.Set("hourly", "temperature_2m,weather_code,precipitation_probability")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset")
	values.Set("timezone", c.tzName)
	values.Set("forecast_days", fmt.Sprintf("%d", requestedDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &provider.ProviderError{Provider: "weather", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.ProviderError{Provider: "weather", Status: resp.StatusCode}
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &provider.ProviderError{Provider: "weather", Err: err}
	}

	now := c.now().In(c.loc)
	snap := &model.WeatherSnapshot{
		Current: c.normalizeCurrent(payload),
		Hourly:  c.normalizeHourly(payload, now),
	}
	snap.Forecast = c.normalizeDaily(payload, now)
	snap.TempRangeMin, snap.TempRangeMax = tempRange(snap.Forecast)

	if len(payload.Daily.Sunrise) > 0 {
		snap.Sunrise = c.formatLocal(payload.Daily.Sunrise[0])
	}
	if len(payload.Daily.Sunset) > 0 {
		snap.Sunset = c.formatLocal(payload.Daily.Sunset[0])
	}

	appLog.Debug("weather fetch completed",
		"hourly", len(snap.Hourly),
		"forecast", len(snap.Forecast),
		"code", payload.Current.WeatherCode,
	)
	return snap, nil
}

func (c *Client) normalizeCurrent(p forecastResponse) model.CurrentConditions {
	info := classify(p.Current.WeatherCode)
	return model.CurrentConditions{
		Temperature:         roundInt(p.Current.Temperature),
		ApparentTemperature: roundInt(p.Current.Apparent),
		Humidity:            roundInt(p.Current.Humidity),
		WindSpeed:           roundInt(p.Current.WindSpeed),
		Icon:                info.Icon,
		Description:         info.Description,
	}
}

// normalizeHourly slices up to eight entries starting at the entry matching
// the current local hour and date. A short series yields fewer entries, no
// padding.
func (c *Client) normalizeHourly(p forecastResponse, now time.Time) []model.HourlyForecast {
	startIdx := 0
	for i, raw := range p.Hourly.Time {
		t, err := time.ParseInLocation(localTimeLayout, raw, c.loc)
		if err != nil {
			continue
		}
		if t.Hour() == now.Hour() && timeutil.SameLocalDay(t, now, c.loc) {
			startIdx = i
			break
		}
	}

	out := make([]model.HourlyForecast, 0, hourlyWindow)
	for i := startIdx; i < len(p.Hourly.Time) && i < startIdx+hourlyWindow; i++ {
		t, err := time.ParseInLocation(localTimeLayout, p.Hourly.Time[i], c.loc)
		if err != nil {
			continue
		}
		entry := model.HourlyForecast{
			Hour: t.Format("15"),
		}
		if i < len(p.Hourly.Temperature) {
			entry.Temperature = roundInt(p.Hourly.Temperature[i])
		}
		if i < len(p.Hourly.WeatherCode) {
			entry.Icon = classify(p.Hourly.WeatherCode[i]).Icon
		} else {
			entry.Icon = model.IconCloudy
		}
		// A probability of exactly 0 is rendered as absent, not a false 0%.
		if i < len(p.Hourly.PrecipProb) && p.Hourly.PrecipProb[i] > 0 {
			prob := roundInt(p.Hourly.PrecipProb[i])
			entry.PrecipProbability = &prob
		}
		out = append(out, entry)
	}
	return out
}

// normalizeDaily takes the first six days, labeling them by local calendar
// date equality. Each date is anchored at noon to stay clear of
// date-boundary timezone artifacts.
func (c *Client) normalizeDaily(p forecastResponse, now time.Time) []model.DailyForecast {
	out := make([]model.DailyForecast, 0, forecastDays)
	tomorrow := now.AddDate(0, 0, 1)

	for i := 0; i < len(p.Daily.Time) && i < forecastDays; i++ {
		d, err := time.ParseInLocation("2006-01-02", p.Daily.Time[i], c.loc)
		if err != nil {
			appLog.Warn("weather: skipping unparseable daily date", err, "value", p.Daily.Time[i])
			continue
		}
		noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, c.loc)

		var label string
		switch {
		case timeutil.SameLocalDay(noon, now, c.loc):
			label = "Today"
		case timeutil.SameLocalDay(noon, tomorrow, c.loc):
			label = "Tomorr."
		default:
			label = noon.Format("Mon")
		}

		info := codeInfo{model.IconCloudy, "Unknown"}
		if i < len(p.Daily.WeatherCode) {
			info = classify(p.Daily.WeatherCode[i])
		}

		day := model.DailyForecast{
			Day:         label,
			Icon:        info.Icon,
			Description: info.Description,
		}
		if i < len(p.Daily.TempMin) {
			day.TempLow = roundInt(p.Daily.TempMin[i])
		}
		if i < len(p.Daily.TempMax) {
			day.TempHigh = roundInt(p.Daily.TempMax[i])
		}
		out = append(out, day)
	}
	return out
}

// tempRange derives the bar-scaling bounds across the forecast lows and
// highs. An empty forecast collapses to a span of one.
func tempRange(forecast []model.DailyForecast) (int, int) {
	if len(forecast) == 0 {
		return 0, 1
	}
	min, max := forecast[0].TempLow, forecast[0].TempHigh
	for _, f := range forecast[1:] {
		if f.TempLow < min {
			min = f.TempLow
		}
		if f.TempHigh > max {
			max = f.TempHigh
		}
	}
	if max < min {
		max = min
	}
	return min, max
}

func (c *Client) formatLocal(raw string) string {
	t, err := time.ParseInLocation(localTimeLayout, raw, c.loc)
	if err != nil {
		return ""
	}
	return timeutil.Clock(t, c.loc)
}

func roundInt(f float64) int {
	return int(math.Round(f))
}
