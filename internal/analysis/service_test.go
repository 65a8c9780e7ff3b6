package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vg84526/airquality-analysis/internal/airquality"
	"github.com/vg84526/airquality-analysis/internal/common"
	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/store"
	"github.com/vg84526/airquality-analysis/internal/weather"
)

type fakeResolver struct {
	boxes map[string]geo.BoundingBox
}

func (f *fakeResolver) Resolve(ctx context.Context, name string) (geo.BoundingBox, error) {
	return f.ResolveWithMargin(ctx, name, 15)
}

func (f *fakeResolver) ResolveWithMargin(ctx context.Context, name string, marginKm float64) (geo.BoundingBox, error) {
	box, ok := f.boxes[name]
	if !ok {
		return geo.BoundingBox{}, fmt.Errorf("geocoding %q: %w", name, geo.ErrNotFound)
	}
	return box, nil
}

type fakeRegistry struct {
	sites []airquality.Site
}

func (f *fakeRegistry) Sites(ctx context.Context, box geo.BoundingBox) ([]airquality.Site, error) {
	return f.sites, nil
}

type fakeArchive struct {
	readings map[string][]airquality.RawReading // key: "siteID/YYYY-MM-DD"
}

func (f *fakeArchive) DayReadings(ctx context.Context, siteID int, day time.Time) ([]airquality.RawReading, error) {
	key := fmt.Sprintf("%d/%s", siteID, day.Format(common.DayFormat))
	rs, ok := f.readings[key]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", key, airquality.ErrNoObject)
	}
	return rs, nil
}

type fakeWeather struct {
	summaries []weather.DailySummary
	err       error
}

func (f *fakeWeather) DailyRange(ctx context.Context, box geo.BoundingBox, start, end time.Time) ([]weather.DailySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries, nil
}

func newTestService(resolver BoxResolver, registry airquality.SiteLister, archive airquality.DayReader, w WeatherSource, s ResultStore) *Service {
	return NewService(resolver, airquality.NewPipeline(registry, archive, 1), w, s)
}

func rawReading(day string, param string, value float64) airquality.RawReading {
	ts, err := time.Parse(common.DayFormat, day)
	if err != nil {
		panic(err)
	}
	return airquality.RawReading{SiteID: 1, Timestamp: ts, Parameter: param, Value: value, Unit: "µg/m³"}
}

// TestRunIsolatesUnresolvedLocations verifies a location the geocoder cannot
// match is reported per-location while the rest of the run proceeds.
func TestRunIsolatesUnresolvedLocations(t *testing.T) {
	resolver := &fakeResolver{boxes: map[string]geo.BoundingBox{
		"Delhi": {South: 20, West: 70, North: 30, East: 80},
	}}
	registry := &fakeRegistry{sites: []airquality.Site{{ID: 1}}}
	archive := &fakeArchive{readings: map[string][]airquality.RawReading{
		"1/2023-01-01": {rawReading("2023-01-01", "pm25", 10)},
	}}
	temp := 5.0
	weatherSrc := &fakeWeather{summaries: []weather.DailySummary{{Date: "2023-01-01", TemperatureMean2m: &temp}}}
	memStore := store.NewMemoryStore(10, 0)

	svc := newTestService(resolver, registry, archive, weatherSrc, memStore)

	report, err := svc.Run(context.Background(), Request{
		Locations: []string{"Delhi", "Atlantis"},
		StartDate: "2023-01-01",
		EndDate:   "2023-01-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Rows) != 1 || report.Rows[0].Location != "Delhi" {
		t.Fatalf("rows: got %+v, want one Delhi row", report.Rows)
	}
	if _, ok := report.Unresolved["Atlantis"]; !ok {
		t.Errorf("unresolved: got %v, want Atlantis entry", report.Unresolved)
	}
	if len(report.Weather["Delhi"]) != 1 {
		t.Errorf("weather: got %v, want one Delhi summary", report.Weather)
	}

	// The resolved location's slice is stored; the unresolved one is not.
	stored, err := memStore.GetLatest("Delhi")
	if err != nil {
		t.Fatalf("stored result: %v", err)
	}
	if len(stored.Rows) != 1 {
		t.Errorf("stored rows: got %+v", stored.Rows)
	}
	if _, err := memStore.GetLatest("Atlantis"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected no stored result for Atlantis, got %v", err)
	}
}

// TestRunEmptyResultKeepsSchema: every location resolves but nothing is
// published — the report still carries the fixed columns and zero rows.
func TestRunEmptyResultKeepsSchema(t *testing.T) {
	resolver := &fakeResolver{boxes: map[string]geo.BoundingBox{
		"Delhi": {South: 20, West: 70, North: 30, East: 80},
	}}
	registry := &fakeRegistry{sites: []airquality.Site{{ID: 1}}}
	archive := &fakeArchive{} // nothing published
	weatherSrc := &fakeWeather{err: weather.ErrNoData}

	svc := newTestService(resolver, registry, archive, weatherSrc, store.NewMemoryStore(10, 0))

	report, err := svc.Run(context.Background(), Request{
		Locations: []string{"Delhi"},
		StartDate: "2023-01-01",
		EndDate:   "2023-01-02",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Rows == nil || len(report.Rows) != 0 {
		t.Errorf("rows: got %v, want empty non-nil slice", report.Rows)
	}
	if len(report.Columns) != 5 {
		t.Errorf("columns: got %v, want fixed five-column schema", report.Columns)
	}
	if _, ok := report.WeatherIssues["Delhi"]; !ok {
		t.Errorf("weather issues: got %v, want Delhi entry", report.WeatherIssues)
	}
}

func TestRunValidatesInput(t *testing.T) {
	svc := newTestService(&fakeResolver{}, &fakeRegistry{}, &fakeArchive{}, &fakeWeather{}, store.NewMemoryStore(10, 0))

	cases := []struct {
		name string
		req  Request
	}{
		{"no locations", Request{StartDate: "2023-01-01", EndDate: "2023-01-02"}},
		{"blank locations", Request{Locations: []string{" "}, StartDate: "2023-01-01", EndDate: "2023-01-02"}},
		{"bad start date", Request{Locations: []string{"Delhi"}, StartDate: "01/01/2023", EndDate: "2023-01-02"}},
		{"bad end date", Request{Locations: []string{"Delhi"}, StartDate: "2023-01-01", EndDate: "tomorrow"}},
		{"reversed range", Request{Locations: []string{"Delhi"}, StartDate: "2023-01-02", EndDate: "2023-01-01"}},
	}
	for _, tc := range cases {
		if _, err := svc.Run(context.Background(), tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
