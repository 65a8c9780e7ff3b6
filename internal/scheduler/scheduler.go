package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vg84526/airquality-analysis/internal/analysis"
	"github.com/vg84526/airquality-analysis/internal/common"
)

// Scheduler periodically runs the analysis pipeline for configured locations
// over a trailing date window.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	service    *analysis.Service
	locations  []string
	parameters []string
	windowDays int
	interval   time.Duration
}

// New creates a new Scheduler. windowDays is the length of the trailing
// window each run covers, ending yesterday (the archive is historical; today
// has no complete day yet).
func New(locations, parameters []string, windowDays int, interval time.Duration, service *analysis.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		service:    service,
		locations:  locations,
		parameters: parameters,
		windowDays: windowDays,
		interval:   interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		log.Println("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running analysis job")

		end := time.Now().UTC().AddDate(0, 0, -1)
		days := s.windowDays
		if days < 1 {
			days = 1
		}
		start := end.AddDate(0, 0, -(days - 1))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		report, err := s.service.Run(ctx, analysis.Request{
			Locations:  s.locations,
			StartDate:  start.Format(common.DayFormat),
			EndDate:    end.Format(common.DayFormat),
			Parameters: s.parameters,
		})
		if err != nil {
			log.Printf("scheduler: analysis failed: %v", err)
			return
		}

		log.Printf("scheduler: completed analysis job: %d rows, %d failed units, %d missing units",
			len(report.Rows), len(report.Diagnostics.FailedUnits), len(report.Diagnostics.MissingUnits))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
