package etl_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-covid/vigie/etl"
	"github.com/vigie-covid/vigie/schema"
)

var now = time.Date(2024, 3, 10, 20, 30, 0, 0, time.UTC)

func vaccinSnapshot() *schema.RawSnapshot {
	return schema.NewRawSnapshot(
		[]string{"dep", "clage_vacsi", "jour", "n_dose1", "couv_dose1"},
		[][]string{
			{"92", "0", "2024-03-08", "120", "91.2"},
			{"92", "24", "2024-03-08", "30", "45.1"},
			{"75", "0", "2024-03-08", "999", "88.8"},
			{"92", "0", "2024-03-09", "140", "91.3"},
			{"92", "24", "2024-03-09", "31", "45.2"},
			{"92", "0", "2023-12-01", "1", "50.0"},
		},
	)
}

func params() etl.Params {
	return etl.Params{
		Zone:       "Hauts-de-Seine",
		ZoneColumn: "dep",
		ZoneValues: []string{"92"},
		AgeColumn:  "clage_vacsi",
		Metrics:    []string{"n_dose1", "couv_dose1"},
		WindowDays: 60,
		Now:        now,
	}
}

func TestTransform(t *testing.T) {
	ws, err := etl.Transform(vaccinSnapshot(), params())
	require.Nil(t, err, "wrong Transform")

	assert.Equal(t, "Hauts-de-Seine", ws.Zone)
	assert.Len(t, ws.Rows, 4, "zone filter and retention window")

	cutoff := now.AddDate(0, 0, -60)
	for _, r := range ws.Rows {
		assert.True(t, r.Day.After(cutoff), "row older than the retention window")
	}

	assert.Equal(t, []int{0, 24}, ws.AgeCodes())
	days := ws.Days()
	require.Len(t, days, 2)
	assert.True(t, days[0].Before(days[1]), "days not ascending")

	v, ok := ws.Value(days[1], 0, "couv_dose1")
	assert.True(t, ok)
	assert.Equal(t, 91.3, v)

	n, ok := ws.Value(days[1], 0, "n_dose1")
	assert.True(t, ok)
	assert.Equal(t, float64(140), n)
}

// A department number may come through as text in one dataset and as a
// number in another; both encodings must select into one snapshot.
func TestTransformMixedZoneEncoding(t *testing.T) {
	raw := schema.NewRawSnapshot(
		[]string{"dep", "jour", "hosp"},
		[][]string{
			{"92", "2024-03-09", "10"},
			{"92.0", "2024-03-08", "12"},
			{"75", "2024-03-09", "99"},
		},
	)

	ws, err := etl.Transform(raw, etl.Params{
		Zone:       "92",
		ZoneColumn: "dep",
		ZoneValues: []string{"92"},
		Metrics:    []string{"hosp"},
		WindowDays: 60,
		Now:        now,
	})
	require.Nil(t, err)
	assert.Len(t, ws.Rows, 2, "both encodings of 92 selected")
}

// Narrowing the retention window only ever removes rows.
func TestTransformNarrowerWindowIsSubset(t *testing.T) {
	p := params()
	wide, err := etl.Transform(vaccinSnapshot(), p)
	require.Nil(t, err)

	p.WindowDays = 1
	narrow, err := etl.Transform(vaccinSnapshot(), p)
	require.Nil(t, err)

	assert.True(t, len(narrow.Rows) < len(wide.Rows))
	for _, r := range narrow.Rows {
		v, ok := wide.Value(r.Day, r.AgeCode, "n_dose1")
		assert.True(t, ok)
		assert.Equal(t, v, float64(r.Counts["n_dose1"]))
	}
}

func TestTransformComposite(t *testing.T) {
	raw := schema.NewRawSnapshot(
		[]string{"dep", "sexe", "jour", "hosp", "rea"},
		[][]string{
			{"75", "0", "2024-03-09", "100", "10"},
			{"75", "1", "2024-03-09", "60", "6"},
			{"92", "0", "2024-03-09", "40", "4"},
			{"93", "0", "2024-03-09", "20", "2"},
			{"92", "0", "2024-03-08", "38", "5"},
			{"13", "0", "2024-03-09", "500", "50"},
		},
	)

	ws, err := etl.Transform(raw, etl.Params{
		Zone:       "IDF",
		ZoneColumn: "dep",
		ZoneValues: []string{"75", "92", "93"},
		Metrics:    []string{"hosp", "rea"},
		WindowDays: 60,
		Now:        now,
		Filter:     &etl.Filter{Column: "sexe", Value: "0"},
	})
	require.Nil(t, err)

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	v, ok := ws.Value(day, 0, "hosp")
	assert.True(t, ok)
	assert.Equal(t, float64(160), v, "sub-zone rows summed, sexe!=0 dropped")

	v, _ = ws.Value(day, 0, "rea")
	assert.Equal(t, float64(16), v)
}

func TestTransformAllRows(t *testing.T) {
	raw := schema.NewRawSnapshot(
		[]string{"dep", "jour", "hosp"},
		[][]string{
			{"75", "2024-03-09", "100"},
			{"92", "2024-03-09", "40"},
			{"2A", "2024-03-09", "7"},
		},
	)

	ws, err := etl.Transform(raw, etl.Params{
		Zone:       "France",
		ZoneColumn: "dep",
		Metrics:    []string{"hosp"},
		WindowDays: 60,
		Now:        now,
	})
	require.Nil(t, err)

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	v, _ := ws.Value(day, 0, "hosp")
	assert.Equal(t, float64(147), v, "country rollup sums every department")
}

func TestTransformMissingColumn(t *testing.T) {
	raw := schema.NewRawSnapshot(
		[]string{"dep", "jour"},
		[][]string{{"92", "2024-03-09"}},
	)

	_, err := etl.Transform(raw, etl.Params{
		Zone:       "92",
		ZoneColumn: "dep",
		ZoneValues: []string{"92"},
		Metrics:    []string{"hosp"},
		WindowDays: 60,
		Now:        now,
	})
	assert.True(t, errors.Is(err, schema.ErrDataShape))

	_, err = etl.Transform(raw, etl.Params{
		Zone:       "92",
		ZoneColumn: "departement",
		WindowDays: 60,
		Now:        now,
	})
	assert.True(t, errors.Is(err, schema.ErrDataShape))
}

func TestTransformBadCast(t *testing.T) {
	raw := schema.NewRawSnapshot(
		[]string{"dep", "jour", "hosp"},
		[][]string{{"92", "2024-03-09", "n/a"}},
	)

	_, err := etl.Transform(raw, etl.Params{
		Zone:       "92",
		ZoneColumn: "dep",
		ZoneValues: []string{"92"},
		Metrics:    []string{"hosp"},
		WindowDays: 60,
		Now:        now,
	})
	assert.True(t, errors.Is(err, schema.ErrDataShape))
}
