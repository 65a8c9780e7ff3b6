package airquality

import (
	"sort"

	"github.com/vg84526/airquality-analysis/internal/common"
)

// Aggregate collapses raw readings into one DailyAggregate per
// (parameter, calendar day), tagged with the location name. Timestamps are
// truncated to the calendar day in their own offset; time-of-day is
// discarded. Values are averaged arithmetically. The unit is carried from
// the first reading seen for the group and is not validated across readings:
// if the upstream archive mixes units within one parameter/day, the mean is
// taken as-is.
//
// When allow is non-empty only those parameters are aggregated; otherwise
// all parameters present in the input are used. Groups with no valid
// readings simply never appear — missing days are omitted, not zero-filled.
func Aggregate(readings []RawReading, allow []string, location string) []DailyAggregate {
	var allowed map[string]bool
	if len(allow) > 0 {
		allowed = make(map[string]bool, len(allow))
		for _, p := range allow {
			allowed[p] = true
		}
	}

	type groupKey struct {
		parameter string
		date      string
	}
	type group struct {
		sum   float64
		count int
		unit  string
	}

	groups := make(map[groupKey]*group)
	for _, r := range readings {
		if allowed != nil && !allowed[r.Parameter] {
			continue
		}

		k := groupKey{parameter: r.Parameter, date: r.Timestamp.Format(common.DayFormat)}
		g, ok := groups[k]
		if !ok {
			g = &group{unit: r.Unit}
			groups[k] = g
		}
		g.sum += r.Value
		g.count++
	}

	rows := make([]DailyAggregate, 0, len(groups))
	for k, g := range groups {
		if g.count == 0 {
			continue
		}
		rows = append(rows, DailyAggregate{
			Date:      k.date,
			Parameter: k.parameter,
			Unit:      g.unit,
			Value:     g.sum / float64(g.count),
			Location:  location,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Parameter < rows[j].Parameter
	})

	return rows
}
