package airquality

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vg84526/airquality-analysis/internal/common"
	"github.com/vg84526/airquality-analysis/internal/geo"
)

// SiteLister discovers monitoring sites inside a bounding box.
type SiteLister interface {
	Sites(ctx context.Context, box geo.BoundingBox) ([]Site, error)
}

// DayReader retrieves all raw readings for one site on one calendar day.
// It returns ErrNoObject when the archive has nothing for that day.
type DayReader interface {
	DayReadings(ctx context.Context, siteID int, day time.Time) ([]RawReading, error)
}

// Result is the outcome of one pipeline run. Columns is always the fixed
// five-column schema and Rows is always non-nil, so an empty run still has a
// stable shape.
type Result struct {
	Columns     []string         `json:"columns"`
	Rows        []DailyAggregate `json:"rows"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

// Pipeline turns (bounding box, location name) pairs and a date range into
// per-parameter daily time series: site discovery per box, then per-site
// per-day archive fetches, then daily aggregation merged across locations.
type Pipeline struct {
	registry    SiteLister
	archive     DayReader
	concurrency int
}

// NewPipeline creates a Pipeline. concurrency bounds the number of site/day
// fetches in flight; values below 1 mean strictly sequential fetching.
func NewPipeline(registry SiteLister, archive DayReader, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		registry:    registry,
		archive:     archive,
		concurrency: concurrency,
	}
}

// Run fetches and aggregates readings for every location over the inclusive
// [start, end] date range, optionally filtered to the given parameters.
//
// Only input validation is fatal. A location whose site discovery fails is
// recorded in Diagnostics.FailedLocations and skipped; a site/day unit that
// fails or is absent upstream is recorded likewise and never aborts the rest
// of the run.
func (p *Pipeline) Run(ctx context.Context, locations []geo.Location, start, end time.Time, parameters []string) (*Result, error) {
	if len(locations) == 0 {
		return nil, errors.New("at least one location is required")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			end.Format(common.DayFormat), start.Format(common.DayFormat))
	}

	result := &Result{
		Columns: ResultColumns,
		Rows:    []DailyAggregate{},
	}

	for _, loc := range locations {
		sites, err := p.registry.Sites(ctx, loc.Box)
		if err != nil {
			log.Printf("pipeline: site discovery failed for %s: %v", loc.Name, err)
			result.Diagnostics.FailedLocations = append(result.Diagnostics.FailedLocations, loc.Name)
			continue
		}
		log.Printf("pipeline: found %d sites for %s (bbox %s)", len(sites), loc.Name, loc.Box.RegistryOrder())

		readings, diag := p.fetchReadings(ctx, sites, start, end)
		result.Diagnostics.merge(diag)

		result.Rows = append(result.Rows, Aggregate(readings, parameters, loc.Name)...)
	}

	return result, nil
}

// fetchReadings pulls every site/day unit in the window, at most
// p.concurrency in flight. Each unit fails in isolation.
func (p *Pipeline) fetchReadings(ctx context.Context, sites []Site, start, end time.Time) ([]RawReading, Diagnostics) {
	type unit struct {
		siteID int
		day    time.Time
	}

	var units []unit
	for _, s := range sites {
		for _, day := range common.DaysBetween(start, end) {
			units = append(units, unit{siteID: s.ID, day: day})
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []RawReading
		diag     Diagnostics
	)
	sem := make(chan struct{}, p.concurrency)

	for _, u := range units {
		u := u
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			unitKey := fmt.Sprintf("%d/%s", u.siteID, u.day.Format(common.DayFormat))
			rs, err := p.archive.DayReadings(ctx, u.siteID, u.day)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, ErrNoObject):
				diag.MissingUnits = append(diag.MissingUnits, unitKey)
			case err != nil:
				log.Printf("pipeline: fetch failed for unit %s: %v", unitKey, err)
				diag.FailedUnits = append(diag.FailedUnits, unitKey)
			default:
				readings = append(readings, rs...)
			}
		}()
	}
	wg.Wait()

	sort.Strings(diag.FailedUnits)
	sort.Strings(diag.MissingUnits)

	return readings, diag
}
