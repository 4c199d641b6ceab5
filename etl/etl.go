package etl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/schema"
)

const (
	logPrefix = "etl"

	dayColumn  = "jour"
	ratePrefix = "couv_"
)

// Filter is an optional equality pre-filter applied before the zone
// selection, e.g. keeping only the sexe=0 aggregate rows of the
// hospital dataset.
type Filter struct {
	Column string
	Value  string
}

// Params drives one Transform pass.
type Params struct {
	// Zone is the label carried by the output snapshot.
	Zone string
	// ZoneColumn names the selector column. ZoneValues follows the
	// DatasetDescriptor convention: one value selects a single zone,
	// several values select a composite zone whose rows are summed per
	// (day, age code), an empty list selects every row (country rollup).
	ZoneColumn string
	ZoneValues []string
	// AgeColumn names the age bracket column. Empty means the dataset
	// carries no age dimension; every row lands in code 0.
	AgeColumn string
	// Metrics lists the metric columns to retain. couv_* columns are
	// typed as rates, everything else as counts.
	Metrics []string
	// WindowDays is the retention window: rows older than Now minus
	// WindowDays are dropped.
	WindowDays int
	Now        time.Time
	Filter     *Filter
}

func (p Params) composite() bool {
	return len(p.ZoneValues) != 1
}

// Transform casts, filters and windows a raw snapshot for one zone. It
// is pure: the input snapshot is only read, never mutated, and the same
// inputs always produce the same output.
func Transform(raw *schema.RawSnapshot, p Params) (*schema.WindowedSnapshot, error) {
	zoneIdx, ok := raw.Column(p.ZoneColumn)
	if !ok {
		return nil, fmt.Errorf("%w: missing zone column %q", schema.ErrDataShape, p.ZoneColumn)
	}
	dayIdx, ok := raw.Column(dayColumn)
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", schema.ErrDataShape, dayColumn)
	}

	ageIdx := -1
	if p.AgeColumn != "" {
		if ageIdx, ok = raw.Column(p.AgeColumn); !ok {
			return nil, fmt.Errorf("%w: missing age column %q", schema.ErrDataShape, p.AgeColumn)
		}
	}

	metricIdx := make(map[string]int, len(p.Metrics))
	for _, m := range p.Metrics {
		idx, ok := raw.Column(m)
		if !ok {
			return nil, fmt.Errorf("%w: missing metric column %q", schema.ErrDataShape, m)
		}
		metricIdx[m] = idx
	}

	filterIdx := -1
	if p.Filter != nil {
		if filterIdx, ok = raw.Column(p.Filter.Column); !ok {
			return nil, fmt.Errorf("%w: missing filter column %q", schema.ErrDataShape, p.Filter.Column)
		}
	}

	cutoff := p.Now.AddDate(0, 0, -p.WindowDays)

	type key struct {
		day time.Time
		age int
	}
	merged := map[key]*schema.TypedRow{}

	for _, row := range raw.Rows {
		if filterIdx >= 0 && row[filterIdx] != p.Filter.Value {
			continue
		}
		if !zoneMatch(row[zoneIdx], p.ZoneValues) {
			continue
		}

		day, err := ParseDay(row[dayIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", schema.ErrDataShape, dayColumn, err)
		}
		if !day.After(cutoff) {
			continue
		}

		age := 0
		if ageIdx >= 0 {
			age, err = strconv.Atoi(strings.TrimSpace(row[ageIdx]))
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", schema.ErrDataShape, p.AgeColumn, err)
			}
		}

		typed := schema.TypedRow{
			Day:     day,
			AgeCode: age,
			Counts:  map[string]int64{},
			Rates:   map[string]float64{},
		}
		for m, idx := range metricIdx {
			cell := strings.TrimSpace(row[idx])
			if strings.HasPrefix(m, ratePrefix) {
				v, err := parseRate(cell)
				if err != nil {
					return nil, fmt.Errorf("%w: column %q: %v", schema.ErrDataShape, m, err)
				}
				typed.Rates[m] = v
			} else {
				v, err := parseCount(cell)
				if err != nil {
					return nil, fmt.Errorf("%w: column %q: %v", schema.ErrDataShape, m, err)
				}
				typed.Counts[m] = v
			}
		}

		k := key{day: day, age: age}
		prev, seen := merged[k]
		switch {
		case !seen:
			row := typed
			merged[k] = &row
		case p.composite():
			// Composite zone: sub-zone rows summed per (day, age code).
			for m, v := range typed.Counts {
				prev.Counts[m] += v
			}
			for m, v := range typed.Rates {
				prev.Rates[m] += v
			}
		default:
			// Duplicate day for a single zone: the later row wins, the
			// upstream occasionally republishes corrected values.
			log.WithFields(log.Fields{
				"prefix": logPrefix,
				"zone":   p.Zone,
				"day":    day.Format(schema.DayFormat),
				"age":    age,
			}).Debug("duplicate row replaced")
			*prev = typed
		}
	}

	rows := make([]schema.TypedRow, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Day.Equal(rows[j].Day) {
			return rows[i].Day.Before(rows[j].Day)
		}
		return rows[i].AgeCode < rows[j].AgeCode
	})

	return &schema.WindowedSnapshot{
		Zone: p.Zone,
		Rows: rows,
	}, nil
}

// zoneMatch compares a cell against the selector values both as text
// and as numbers, since a department number may be encoded as either
// depending on the dataset.
func zoneMatch(cell string, values []string) bool {
	if len(values) == 0 {
		return true
	}
	cell = strings.TrimSpace(cell)
	for _, v := range values {
		if cell == v {
			return true
		}
		cn, errC := strconv.ParseFloat(cell, 64)
		vn, errV := strconv.ParseFloat(v, 64)
		if errC == nil && errV == nil && cn == vn {
			return true
		}
	}
	return false
}

// ParseDay parses an upstream day cell, tolerating a trailing timestamp.
func ParseDay(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if len(cell) > len(schema.DayFormat) {
		cell = cell[:len(schema.DayFormat)]
	}
	return time.Parse(schema.DayFormat, cell)
}

func parseCount(cell string) (int64, error) {
	if cell == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return v, nil
	}
	// Some exports serialize counts as floats.
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseRate(cell string) (float64, error) {
	if cell == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
}
