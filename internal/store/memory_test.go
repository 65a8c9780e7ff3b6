package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestGetLatestReturnsMostRecent(t *testing.T) {
	s := NewMemoryStore(10, 0)

	for i := 0; i < 3; i++ {
		s.Save("Delhi", StoredResult{
			Location:    "Delhi",
			GeneratedAt: time.Now().UTC(),
			StartDate:   fmt.Sprintf("2023-01-0%d", i+1),
		})
	}

	got, err := s.GetLatest("Delhi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StartDate != "2023-01-03" {
		t.Errorf("latest: got %q, want 2023-01-03", got.StartDate)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	s := NewMemoryStore(10, 0)
	if _, err := s.GetLatest("Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)

	for i := 0; i < 5; i++ {
		s.Save("Delhi", StoredResult{GeneratedAt: time.Now().UTC(), StartDate: fmt.Sprintf("run-%d", i)})
	}

	history := s.data["Delhi"]
	if len(history.Results) != 2 {
		t.Fatalf("retained: got %d, want 2", len(history.Results))
	}
	if history.Results[1].StartDate != "run-4" {
		t.Errorf("newest retained: got %q, want run-4", history.Results[1].StartDate)
	}
}

func TestRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)

	s.Save("Delhi", StoredResult{GeneratedAt: time.Now().UTC().Add(-2 * time.Hour), StartDate: "old"})
	s.Save("Delhi", StoredResult{GeneratedAt: time.Now().UTC(), StartDate: "new"})

	got, err := s.GetLatest("Delhi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StartDate != "new" {
		t.Errorf("latest: got %q, want new", got.StartDate)
	}
	if len(s.data["Delhi"].Results) != 1 {
		t.Errorf("retained: got %d, want 1 after age cutoff", len(s.data["Delhi"].Results))
	}
}
