package store

import (
	"errors"
	"sync"
	"time"

	"github.com/vg84526/airquality-analysis/internal/airquality"
	"github.com/vg84526/airquality-analysis/internal/weather"
)

var (
	// ErrNotFound is returned when no stored result covers a location.
	ErrNotFound = errors.New("no analysis result for location")
)

// StoredResult is one location's slice of a completed analysis run, retained
// so the API can serve it. Raw fetched data is never stored.
type StoredResult struct {
	Location    string                      `json:"location"`
	GeneratedAt time.Time                   `json:"generated_at"` // always UTC
	StartDate   string                      `json:"start_date"`
	EndDate     string                      `json:"end_date"`
	Columns     []string                    `json:"columns"`
	Rows        []airquality.DailyAggregate `json:"rows"`
	Weather     []weather.DailySummary      `json:"weather,omitempty"`
	Diagnostics airquality.Diagnostics      `json:"diagnostics"`
}

// resultHistory holds a time-ordered list of results for one location.
type resultHistory struct {
	Results []StoredResult
}

// MemoryStore is a concurrency-safe in-memory store of analysis results
// keyed by location name.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*resultHistory

	// retention configuration
	maxHistory int           // max number of results per location
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*resultHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a new result for a location and enforces retention.
func (s *MemoryStore) Save(location string, result StoredResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[location]
	if !ok {
		history = &resultHistory{}
		s.data[location] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results); i++ {
			if !history.Results[i].GeneratedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Results) {
			history.Results = history.Results[i:]
		}
	}
}

// GetLatest returns the most recent result for a location.
func (s *MemoryStore) GetLatest(location string) (StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[location]
	if !ok || len(history.Results) == 0 {
		return StoredResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}
