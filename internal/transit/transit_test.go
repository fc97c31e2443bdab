package transit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindledash/internal/provider"
)

var boardNow = time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), "900100003", "Europe/Berlin", []string{"suburban", "regional"})
	c.baseURL = srv.URL
	c.now = func() time.Time { return boardNow }
	return c
}

func at(offset time.Duration) string {
	return boardNow.Add(offset).Format(time.RFC3339)
}

func TestWhenDisplayBoundaries(t *testing.T) {
	c := NewClient(nil, "900100003", "Europe/Berlin", nil)
	c.now = func() time.Time { return boardNow }

	str := func(s string) *string { return &s }

	tests := []struct {
		name string
		dep  departure
		want string
	}{
		{"cancelled wins over timing", departure{Cancelled: true, When: str(at(5 * time.Minute))}, "Cancelled"},
		{"exactly zero minutes", departure{When: str(at(0))}, "now"},
		{"slightly in the past", departure{When: str(at(-2 * time.Minute))}, "now"},
		{"59 minutes out", departure{When: str(at(59 * time.Minute))}, "59 min"},
		{"60 minutes out is absolute local time", departure{When: str(at(60 * time.Minute))}, "17:00"},
		{"actual beats planned", departure{When: str(at(10 * time.Minute)), PlannedWhen: str(at(3 * time.Minute))}, "10 min"},
		{"planned fallback", departure{PlannedWhen: str(at(3 * time.Minute))}, "3 min"},
		{"no timestamps at all", departure{}, "—"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.whenDisplay(tc.dep, boardNow))
		})
	}
}

func TestFetchBareArrayResponse(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, `[
			{"tripId":"t1","direction":"Airport","when":"%s","delay":300,"platform":"2","line":{"name":"S9","product":"suburban"}},
			{"tripId":"t2","direction":"Central","cancelled":true,"delay":300,"plannedWhen":"%s","line":{"name":"RE1","product":"regional"}},
			{"tripId":"t3","direction":"Nowhere","when":"%s","line":{"name":"","product":"suburban"}}
		]`, at(12*time.Minute), at(20*time.Minute), at(5*time.Minute))
	})

	board, err := c.Fetch(context.Background())
	require.NoError(t, err)

	// Category flags and the +6 min anchor are set at the query level.
	assert.Contains(t, gotQuery, "suburban=true")
	assert.Contains(t, gotQuery, "regional=true")
	assert.Contains(t, gotQuery, "bus=false")
	assert.Contains(t, gotQuery, "duration=60")

	// The nameless third entry is dropped.
	require.Len(t, board.Departures, 2)

	s9 := board.Departures[0]
	assert.Equal(t, "t1", s9.ID)
	assert.Equal(t, "12 min", s9.WhenDisplay)
	require.NotNil(t, s9.DelayMinutes)
	assert.Equal(t, 5, *s9.DelayMinutes)
	require.NotNil(t, s9.Platform)
	assert.Equal(t, "2", *s9.Platform)

	// Cancelled shows "Cancelled" regardless of its timing or delay fields.
	re1 := board.Departures[1]
	assert.True(t, re1.Cancelled)
	assert.Equal(t, "Cancelled", re1.WhenDisplay)
}

func TestFetchEnvelopeResponseAndCap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"departures":[`)
		for i := 0; i < 14; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"tripId":"t%d","direction":"Loop","when":"%s","line":{"name":"S%d","product":"suburban"}}`,
				i, at(time.Duration(i+1)*time.Minute), i)
		}
		fmt.Fprint(w, `]}`)
	})

	board, err := c.Fetch(context.Background())
	require.NoError(t, err)

	// Provider order preserved, capped at 10.
	require.Len(t, board.Departures, 10)
	assert.Equal(t, "t0", board.Departures[0].ID)
	assert.Equal(t, "t9", board.Departures[9].ID)
}

func TestFetchAlerts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[
			{"tripId":"t1","direction":"A","when":"%[1]s","line":{"name":"S1","product":"suburban"},
			 "remarks":[
				{"id":"r1","type":"warning","text":"<p>Elevator <b>out of service</b></p>"},
				{"id":"r2","type":"hint","text":"Bicycle conveyance limited"},
				{"id":"r3","type":"status","summary":"Construction until Monday"}
			 ]},
			{"tripId":"t2","direction":"B","when":"%[1]s","line":{"name":"S2","product":"suburban"},
			 "remarks":[
				{"id":"r4","type":"warning","text":"Elevator <i>out of service</i>"},
				{"id":"r5","type":"disruption","text":"Replacement bus between stops"},
				{"id":"r6","type":"disruption","text":"Signal failure at interlocking"},
				{"id":"r7","type":"warning","text":"One more alert that exceeds the cap"}
			 ]}
		]`, at(10*time.Minute))
	})

	board, err := c.Fetch(context.Background())
	require.NoError(t, err)

	// Markup is stripped, hints are excluded, identical cleaned text
	// collapses to the first occurrence, and the cap is three.
	require.Len(t, board.Alerts, 3)
	assert.Equal(t, "r1", board.Alerts[0].ID)
	assert.Equal(t, "Elevator out of service", board.Alerts[0].Text)
	assert.Equal(t, "Construction until Monday", board.Alerts[1].Text)
	assert.Equal(t, "Replacement bus between stops", board.Alerts[2].Text)
}

func TestFetchMissingStopID(t *testing.T) {
	c := NewClient(nil, "", "Europe/Berlin", nil)

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, provider.IsConfig(err))
}

func TestFetchUpstreamFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, provider.IsProvider(err))
}
