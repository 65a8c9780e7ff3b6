package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vg84526/airquality-analysis/internal/airquality"
	"github.com/vg84526/airquality-analysis/internal/common"
	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/store"
	"github.com/vg84526/airquality-analysis/internal/weather"
)

// BoxResolver turns location names into expanded bounding boxes.
type BoxResolver interface {
	Resolve(ctx context.Context, name string) (geo.BoundingBox, error)
	ResolveWithMargin(ctx context.Context, name string, marginKm float64) (geo.BoundingBox, error)
}

// WeatherSource provides daily weather summaries for a box's centroid.
type WeatherSource interface {
	DailyRange(ctx context.Context, box geo.BoundingBox, start, end time.Time) ([]weather.DailySummary, error)
}

// ResultStore retains completed per-location results for API reads.
type ResultStore interface {
	Save(location string, result store.StoredResult)
	GetLatest(location string) (store.StoredResult, error)
}

// Service runs the full analysis: resolve names, fetch and aggregate air
// quality readings, attach weather summaries, store the per-location slices.
type Service struct {
	resolver BoxResolver
	pipeline *airquality.Pipeline
	weather  WeatherSource
	store    ResultStore
}

func NewService(resolver BoxResolver, pipeline *airquality.Pipeline, weatherSrc WeatherSource, resultStore ResultStore) *Service {
	return &Service{
		resolver: resolver,
		pipeline: pipeline,
		weather:  weatherSrc,
		store:    resultStore,
	}
}

// Request describes one analysis run.
type Request struct {
	Locations  []string
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, inclusive
	Parameters []string
}

// Report is the outcome of one analysis run. Rows is never nil and Columns
// is always the fixed five-column schema even when every location came back
// empty. Locations that could not be resolved or queried appear in
// Unresolved/WeatherIssues with a reason; they never abort the run.
type Report struct {
	GeneratedAt   time.Time                         `json:"generated_at"`
	StartDate     string                            `json:"start_date"`
	EndDate       string                            `json:"end_date"`
	Columns       []string                          `json:"columns"`
	Rows          []airquality.DailyAggregate       `json:"rows"`
	Weather       map[string][]weather.DailySummary `json:"weather,omitempty"`
	Unresolved    map[string]string                 `json:"unresolved,omitempty"`
	WeatherIssues map[string]string                 `json:"weather_issues,omitempty"`
	Diagnostics   airquality.Diagnostics            `json:"diagnostics"`
}

// Run executes the pipeline for req. Only input validation errors are
// returned; every per-location or per-unit failure degrades to report
// metadata alongside whatever partial results were obtained.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	locations, start, end, err := validate(req)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Columns:     airquality.ResultColumns,
		Rows:        []airquality.DailyAggregate{},
	}

	// Resolve every name first; failures are per-location, not fatal.
	var resolved []geo.Location
	for _, name := range locations {
		box, err := s.resolver.Resolve(ctx, name)
		if err != nil {
			if errors.Is(err, geo.ErrNotFound) {
				log.Printf("analysis: no geocoding match for %q", name)
			} else {
				log.Printf("analysis: geocoding failed for %q: %v", name, err)
			}
			if report.Unresolved == nil {
				report.Unresolved = make(map[string]string)
			}
			report.Unresolved[name] = err.Error()
			continue
		}
		resolved = append(resolved, geo.Location{Name: name, Box: box})
	}

	if len(resolved) > 0 {
		result, err := s.pipeline.Run(ctx, resolved, start, end, req.Parameters)
		if err != nil {
			return nil, err
		}
		report.Rows = result.Rows
		report.Diagnostics = result.Diagnostics
	}

	for _, loc := range resolved {
		summaries, err := s.weather.DailyRange(ctx, loc.Box, start, end)
		if err != nil {
			log.Printf("analysis: weather summary failed for %q: %v", loc.Name, err)
			if report.WeatherIssues == nil {
				report.WeatherIssues = make(map[string]string)
			}
			report.WeatherIssues[loc.Name] = err.Error()
			continue
		}
		if report.Weather == nil {
			report.Weather = make(map[string][]weather.DailySummary)
		}
		report.Weather[loc.Name] = summaries
	}

	s.storeReport(report, resolved)

	return report, nil
}

// storeReport saves each resolved location's slice of the report.
func (s *Service) storeReport(report *Report, resolved []geo.Location) {
	if s.store == nil {
		return
	}

	byLocation := make(map[string][]airquality.DailyAggregate, len(resolved))
	for _, row := range report.Rows {
		byLocation[row.Location] = append(byLocation[row.Location], row)
	}

	for _, loc := range resolved {
		rows := byLocation[loc.Name]
		if rows == nil {
			rows = []airquality.DailyAggregate{}
		}
		s.store.Save(loc.Name, store.StoredResult{
			Location:    loc.Name,
			GeneratedAt: report.GeneratedAt,
			StartDate:   report.StartDate,
			EndDate:     report.EndDate,
			Columns:     report.Columns,
			Rows:        rows,
			Weather:     report.Weather[loc.Name],
			Diagnostics: report.Diagnostics,
		})
	}
}

// Geocode exposes the resolver with an optional margin override
// (marginKm <= 0 keeps the configured default).
func (s *Service) Geocode(ctx context.Context, name string, marginKm float64) (geo.BoundingBox, error) {
	if marginKm > 0 {
		return s.resolver.ResolveWithMargin(ctx, name, marginKm)
	}
	return s.resolver.Resolve(ctx, name)
}

// WeatherDaily resolves a location name and returns its daily weather
// summaries for the inclusive date range.
func (s *Service) WeatherDaily(ctx context.Context, name, startDate, endDate string) ([]weather.DailySummary, error) {
	start, err := common.ParseDay(startDate)
	if err != nil {
		return nil, err
	}
	end, err := common.ParseDay(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	box, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.weather.DailyRange(ctx, box, start, end)
}

// Latest returns the most recent stored result for a location.
func (s *Service) Latest(location string) (store.StoredResult, error) {
	return s.store.GetLatest(location)
}

func validate(req Request) ([]string, time.Time, time.Time, error) {
	var locations []string
	for _, name := range req.Locations {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			locations = append(locations, trimmed)
		}
	}
	if len(locations) == 0 {
		return nil, time.Time{}, time.Time{}, errors.New("at least one location is required")
	}

	start, err := common.ParseDay(req.StartDate)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	end, err := common.ParseDay(req.EndDate)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("end date %s precedes start date %s", req.EndDate, req.StartDate)
	}

	return locations, start, end, nil
}
