package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/httpc"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ArchiveClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewArchiveClient(srv.Client())
	c.baseURL = srv.URL
	c.httpCfg.Backoff = httpc.BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}
	return c
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var testBox = geo.BoundingBox{South: 20, West: 70, North: 30, East: 80}

func TestDailyRangeParsesSummaries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		// The query point is the box centroid.
		if q.Get("latitude") != "25.000000" || q.Get("longitude") != "75.000000" {
			t.Errorf("centroid: got %s,%s, want 25.000000,75.000000", q.Get("latitude"), q.Get("longitude"))
		}
		if q.Get("timezone") != "auto" {
			t.Errorf("timezone: got %q, want auto", q.Get("timezone"))
		}
		w.Write([]byte(`{
			"daily": {
				"time": ["2023-01-01", "2023-01-02"],
				"temperature_2m_mean": [5.1, 6.2],
				"temperature_2m_max": [9.0, 10.5],
				"temperature_2m_min": [1.2, 2.3],
				"precipitation_sum": [0.0, null],
				"wind_speed_10m_mean": [12.5, 14.0],
				"relative_humidity_2m_mean": [81, 76]
			}
		}`))
	})

	got, err := c.DailyRange(context.Background(), testBox, day("2023-01-01"), day("2023-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].Date != "2023-01-01" || got[0].TemperatureMean2m == nil || *got[0].TemperatureMean2m != 5.1 {
		t.Errorf("day one: got %+v", got[0])
	}
	// A JSON null metric stays nil, never becomes zero.
	if got[1].PrecipitationSum != nil {
		t.Errorf("null precipitation: got %v, want nil", *got[1].PrecipitationSum)
	}
	if got[1].RelativeHumidityMean == nil || *got[1].RelativeHumidityMean != 76 {
		t.Errorf("day two humidity: got %+v", got[1])
	}
}

// TestDailyRangeRaggedArrays verifies a metric array shorter than the date
// list degrades to nil markers instead of indexing out of bounds.
func TestDailyRangeRaggedArrays(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"daily": {
				"time": ["2023-01-01", "2023-01-02", "2023-01-03"],
				"temperature_2m_mean": [5.1, 6.2, 7.0],
				"relative_humidity_2m_mean": [81]
			}
		}`))
	})

	got, err := c.DailyRange(context.Background(), testBox, day("2023-01-01"), day("2023-01-03"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if got[0].RelativeHumidityMean == nil || *got[0].RelativeHumidityMean != 81 {
		t.Errorf("day one humidity: got %+v", got[0])
	}
	if got[1].RelativeHumidityMean != nil || got[2].RelativeHumidityMean != nil {
		t.Error("ragged humidity array must leave later days nil")
	}
	// Metrics never requested by the fixture are nil.
	if got[0].PrecipitationSum != nil {
		t.Error("absent metric array must stay nil")
	}
}

// TestDailyRangeNoDailySection verifies a response without the daily section
// maps to ErrNoData with no partial rows.
func TestDailyRangeNoDailySection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reason": "no data for this point"}`))
	})

	got, err := c.DailyRange(context.Background(), testBox, day("2023-01-01"), day("2023-01-02"))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no rows alongside ErrNoData, got %v", got)
	}
}

func TestDailyRangeTransportFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.DailyRange(context.Background(), testBox, day("2023-01-01"), day("2023-01-02"))
	if !errors.Is(err, httpc.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if errors.Is(err, ErrNoData) {
		t.Fatalf("transport failure must not look like no-data: %v", err)
	}
}
