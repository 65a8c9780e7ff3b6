package airquality

import "time"

// RawReading is a single sensor observation as published in the archive.
// Readings are retrieved in bulk per site per day and never mutated.
type RawReading struct {
	SiteID    int
	Timestamp time.Time
	Parameter string
	Value     float64
	Unit      string
}

// DailyAggregate is the mean of all readings for one parameter on one
// calendar day at one location. Exactly one row exists per
// (parameter, date, location) triple; days with no valid readings are
// omitted, not zero-filled.
type DailyAggregate struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Parameter string  `json:"parameter"`
	Unit      string  `json:"unit"`
	Value     float64 `json:"value"`
	Location  string  `json:"location"`
}

// ResultColumns is the fixed schema of an aggregate result. It holds even
// when a run produces zero rows.
var ResultColumns = []string{"date", "parameter", "unit", "value", "location"}

// Site is a monitoring station registered in the site registry.
type Site struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Diagnostics records the parts of a run that produced no data. They are
// reported alongside partial results, never as an error.
type Diagnostics struct {
	// FailedUnits lists site/day fetches that errored (network, malformed
	// archive entry). Each entry is "siteID/YYYY-MM-DD".
	FailedUnits []string `json:"failed_units,omitempty"`
	// MissingUnits lists site/day combinations with no published archive
	// object. Absence is expected and is not an error.
	MissingUnits []string `json:"missing_units,omitempty"`
	// FailedLocations lists locations whose site discovery failed outright.
	FailedLocations []string `json:"failed_locations,omitempty"`
}

func (d *Diagnostics) merge(other Diagnostics) {
	d.FailedUnits = append(d.FailedUnits, other.FailedUnits...)
	d.MissingUnits = append(d.MissingUnits, other.MissingUnits...)
	d.FailedLocations = append(d.FailedLocations, other.FailedLocations...)
}
