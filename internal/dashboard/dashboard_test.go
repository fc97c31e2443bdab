package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindledash/internal/model"
	"kindledash/internal/provider"
)

type stubWeather struct {
	snap *model.WeatherSnapshot
	err  error
}

func (s stubWeather) Fetch(context.Context) (*model.WeatherSnapshot, error) { return s.snap, s.err }

type stubCalendar struct {
	days []model.CalendarDay
	err  error
}

func (s stubCalendar) Fetch(context.Context) ([]model.CalendarDay, error) { return s.days, s.err }

type stubTransit struct {
	board *model.TransitBoard
	err   error
}

func (s stubTransit) Fetch(context.Context) (*model.TransitBoard, error) { return s.board, s.err }

func TestRefreshAllSucceed(t *testing.T) {
	svc := NewService(
		stubWeather{snap: &model.WeatherSnapshot{Sunrise: "04:48"}},
		stubCalendar{days: []model.CalendarDay{{Label: "Today"}}},
		stubTransit{board: &model.TransitBoard{}},
	)

	d := svc.Refresh(context.Background())
	require.NotNil(t, d)
	assert.NotNil(t, d.Weather)
	assert.Len(t, d.Calendar, 1)
	assert.NotNil(t, d.Transit)
	assert.Nil(t, d.Errors)
	assert.NotEmpty(t, d.Quote.Text)
}

func TestRefreshWaitsForAllAndDegradesPerSection(t *testing.T) {
	// Weather fails; the other sections must still be populated and no
	// error may escape the entry point.
	svc := NewService(
		stubWeather{err: &provider.ProviderError{Provider: "weather", Status: 502}},
		stubCalendar{days: []model.CalendarDay{{Label: "Today"}}},
		stubTransit{board: &model.TransitBoard{Departures: []model.Departure{{ID: "t1"}}}},
	)

	d := svc.Refresh(context.Background())
	require.NotNil(t, d)
	assert.Nil(t, d.Weather)
	require.Len(t, d.Calendar, 1)
	require.NotNil(t, d.Transit)
	require.Contains(t, d.Errors, "weather")
	assert.Contains(t, d.Errors["weather"], "status 502")
}

func TestRefreshAllFail(t *testing.T) {
	svc := NewService(
		stubWeather{err: errors.New("weather down")},
		stubCalendar{err: errors.New("calendar down")},
		stubTransit{err: errors.New("transit down")},
	)

	d := svc.Refresh(context.Background())
	require.NotNil(t, d)
	assert.Nil(t, d.Weather)
	assert.Nil(t, d.Calendar)
	assert.Nil(t, d.Transit)
	assert.Len(t, d.Errors, 3)
	// Even a fully degraded cycle still carries the header data.
	assert.False(t, d.Now.IsZero())
	assert.NotEmpty(t, d.Quote.Text)
}

func TestDailyQuoteCyclesByDay(t *testing.T) {
	day1 := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	q1 := dailyQuote(day1)
	q2 := dailyQuote(day2)
	assert.NotEqual(t, q1, q2)

	// Same day, different clock time: same quote.
	assert.Equal(t, q1, dailyQuote(day1.Add(10*time.Hour)))

	// Wraps around the table length.
	assert.Equal(t, q1, dailyQuote(day1.AddDate(0, 0, len(quotes))))
}
