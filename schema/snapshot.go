package schema

import (
	"sort"
	"time"
)

// DayFormat is the date layout used by every upstream dataset.
const DayFormat = "2006-01-02"

// RawSnapshot is a dataset exactly as fetched: ordered rows of untyped
// cells under a header row. It is immutable once built.
type RawSnapshot struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewRawSnapshot builds a snapshot and indexes its header.
func NewRawSnapshot(columns []string, rows [][]string) *RawSnapshot {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &RawSnapshot{
		Columns: columns,
		Rows:    rows,
		index:   index,
	}
}

// Column returns the position of a named column.
func (r *RawSnapshot) Column(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// TypedRow is one observation of a WindowedSnapshot: a day, an age
// bracket code and the metric cells cast to their semantic types.
type TypedRow struct {
	Day     time.Time
	AgeCode int
	Counts  map[string]int64
	Rates   map[string]float64
}

// Metric returns the value of a metric column regardless of whether it
// was typed as a count or as a rate.
func (t TypedRow) Metric(column string) (float64, bool) {
	if v, ok := t.Rates[column]; ok {
		return v, true
	}
	if v, ok := t.Counts[column]; ok {
		return float64(v), true
	}
	return 0, false
}

// WindowedSnapshot is the typed, filtered and windowed form of a raw
// snapshot for exactly one zone. Rows are sorted ascending by day, with
// at most one row per (day, age code).
type WindowedSnapshot struct {
	Zone string
	Rows []TypedRow
}

// Days returns the distinct days present, ascending.
func (w *WindowedSnapshot) Days() []time.Time {
	seen := map[time.Time]struct{}{}
	days := make([]time.Time, 0, len(w.Rows))
	for _, r := range w.Rows {
		if _, ok := seen[r.Day]; ok {
			continue
		}
		seen[r.Day] = struct{}{}
		days = append(days, r.Day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// AgeCodes returns the distinct age bracket codes present, ascending.
func (w *WindowedSnapshot) AgeCodes() []int {
	seen := map[int]struct{}{}
	codes := make([]int, 0, 8)
	for _, r := range w.Rows {
		if _, ok := seen[r.AgeCode]; ok {
			continue
		}
		seen[r.AgeCode] = struct{}{}
		codes = append(codes, r.AgeCode)
	}
	sort.Ints(codes)
	return codes
}

// MaxDay returns the latest day present.
func (w *WindowedSnapshot) MaxDay() (time.Time, bool) {
	var max time.Time
	for _, r := range w.Rows {
		if r.Day.After(max) {
			max = r.Day
		}
	}
	return max, !max.IsZero()
}

// Value looks up one metric cell by day and age code.
func (w *WindowedSnapshot) Value(day time.Time, age int, column string) (float64, bool) {
	for _, r := range w.Rows {
		if r.Day.Equal(day) && r.AgeCode == age {
			return r.Metric(column)
		}
	}
	return 0, false
}
