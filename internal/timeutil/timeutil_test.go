package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameLocalDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:00 and 01:00 on the same local day are >12h apart as instants
	// when one is expressed in UTC, but must compare equal by local date.
	early := time.Date(2024, 6, 1, 1, 0, 0, 0, berlin)
	late := time.Date(2024, 6, 1, 23, 0, 0, 0, berlin)
	assert.True(t, SameLocalDay(early, late, berlin))

	// 23:30 UTC on May 31 is already June 1 in Berlin (UTC+2).
	utcEvening := time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC)
	assert.True(t, SameLocalDay(utcEvening, early, berlin))
	assert.False(t, SameLocalDay(utcEvening, early, time.UTC))
}

func TestDayLabel(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2024, 2, 26, 9, 0, 0, 0, berlin) // a Monday

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"same day", time.Date(2024, 2, 26, 23, 0, 0, 0, berlin), "Today"},
		{"next day", time.Date(2024, 2, 27, 0, 30, 0, 0, berlin), "Tomorrow"},
		{"later this week", time.Date(2024, 2, 28, 12, 0, 0, 0, berlin), "Wed, 28 Feb"},
		{"utc instant on same local day", time.Date(2024, 2, 26, 22, 30, 0, 0, time.UTC), "Tomorrow"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DayLabel(tc.t, now, berlin))
		})
	}
}

func TestClock(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 13:05 UTC in summer is 15:05 in Berlin.
	instant := time.Date(2024, 7, 10, 13, 5, 0, 0, time.UTC)
	assert.Equal(t, "15:05", Clock(instant, berlin))
}

func TestLoadLocationOrLocal(t *testing.T) {
	assert.Equal(t, "Europe/Berlin", LoadLocationOrLocal("Europe/Berlin").String())
	assert.Equal(t, time.Local, LoadLocationOrLocal(""))
	assert.Equal(t, time.Local, LoadLocationOrLocal("Not/AZone"))
}
