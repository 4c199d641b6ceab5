package render_test

import (
	"errors"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigie-covid/vigie/render"
	"github.com/vigie-covid/vigie/schema"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func row(d, age int, column string, v float64) schema.TypedRow {
	return schema.TypedRow{
		Day:     day(d),
		AgeCode: age,
		Rates:   map[string]float64{column: v},
	}
}

func config(dir string) schema.RenderConfig {
	return schema.RenderConfig{
		Name:      "Couverture vaccinale par tranche d'âges",
		ShortName: "Vaccin_Age",
		Metrics: []schema.MetricSpec{
			{Column: "couv_dose1", Label: "1ère dose", Color: "#0000FF"},
		},
		GridCols: 5,
		Scale:    schema.PercentScale,
		Percent:  true,
		OutDir:   dir,
	}
}

func zone() schema.DatasetDescriptor {
	return schema.DatasetDescriptor{
		Key:         "fra",
		DisplayName: "France",
		Preposition: "en",
		Color:       "#70E6E4",
	}
}

// A snapshot with only two distinct days must still produce a figure:
// the display window adapts instead of assuming 45 points.
func TestRenderTwoDays(t *testing.T) {
	ws := &schema.WindowedSnapshot{
		Zone: "France",
		Rows: []schema.TypedRow{
			row(8, 0, "couv_dose1", 91.2),
			row(9, 0, "couv_dose1", 91.3),
			row(8, 24, "couv_dose1", 45.1),
			row(9, 24, "couv_dose1", 45.2),
		},
	}

	art, err := render.Render(ws, config(t.TempDir()), zone())
	require.Nil(t, err, "wrong Render")

	assert.Equal(t, day(9), art.AsOf)
	assert.Equal(t, "samedi 9 mars 2024", art.AsOfLabel)

	fact, ok := art.Facts["couv_dose1"]
	require.True(t, ok)
	assert.InDelta(t, 91.3, fact.Value, 1e-9)
	assert.InDelta(t, 0.1, fact.Delta, 1e-6)

	f, err := os.Open(art.Path)
	require.Nil(t, err, "figure not persisted")
	defer f.Close()
	img, err := png.Decode(f)
	require.Nil(t, err, "figure is not a PNG")
	assert.True(t, img.Bounds().Dx() > 0)
}

// A bracket with a single point cannot be drawn; it is dropped from the
// grid while the remaining panels render.
func TestRenderDropsShortPanel(t *testing.T) {
	ws := &schema.WindowedSnapshot{
		Zone: "France",
		Rows: []schema.TypedRow{
			row(8, 0, "couv_dose1", 91.2),
			row(9, 0, "couv_dose1", 91.3),
			row(9, 24, "couv_dose1", 45.2),
		},
	}

	art, err := render.Render(ws, config(t.TempDir()), zone())
	require.Nil(t, err)
	assert.NotEmpty(t, art.Path)
}

func TestRenderEmptySnapshot(t *testing.T) {
	ws := &schema.WindowedSnapshot{Zone: "France"}
	_, err := render.Render(ws, config(t.TempDir()), zone())
	assert.True(t, errors.Is(err, schema.ErrRender))
}

func TestRenderCountFacts(t *testing.T) {
	cfg := schema.RenderConfig{
		Name:      "Hôpital",
		ShortName: "Hospitalisation",
		Metrics: []schema.MetricSpec{
			{Column: "hosp", Label: "Hospitalisations", Color: "#0000FF"},
			{Column: "rea", Label: "Réanimations", Color: "#FF0000", Width: 2.5},
		},
		GridCols: 1,
		Scale:    schema.ThirdOfMaxScale,
		OutDir:   t.TempDir(),
	}

	ws := &schema.WindowedSnapshot{
		Zone: "Hauts-de-Seine",
		Rows: []schema.TypedRow{
			{Day: day(8), Counts: map[string]int64{"hosp": 120, "rea": 12}},
			{Day: day(9), Counts: map[string]int64{"hosp": 110, "rea": 15}},
		},
	}

	art, err := render.Render(ws, cfg, schema.DatasetDescriptor{
		DisplayName: "Hauts-de-Seine",
		Preposition: "dans les",
		Color:       "#FBE3E1",
	})
	require.Nil(t, err)

	assert.Equal(t, schema.Fact{Value: 110, Delta: -10}, art.Facts["hosp"])
	assert.Equal(t, schema.Fact{Value: 15, Delta: 3}, art.Facts["rea"])
}

// A count snapshot can legitimately be all zeros (a quiet department);
// no Y ceiling can be derived then, and the render must still produce a
// figure instead of blowing up inside the chart axis setup.
func TestRenderAllZeroCounts(t *testing.T) {
	cfg := schema.RenderConfig{
		Name:      "Hôpital",
		ShortName: "Hospitalisation",
		Metrics: []schema.MetricSpec{
			{Column: "hosp", Label: "Hospitalisations", Color: "#0000FF"},
		},
		GridCols: 1,
		Scale:    schema.ThirdOfMaxScale,
		OutDir:   t.TempDir(),
	}

	ws := &schema.WindowedSnapshot{
		Zone: "Lozère",
		Rows: []schema.TypedRow{
			{Day: day(8), Counts: map[string]int64{"hosp": 0}},
			{Day: day(9), Counts: map[string]int64{"hosp": 0}},
		},
	}

	art, err := render.Render(ws, cfg, schema.DatasetDescriptor{
		DisplayName: "Lozère",
		Preposition: "dans la",
		Color:       "#FBE3E1",
	})
	require.Nil(t, err, "all-zero counts must render")

	f, err := os.Open(art.Path)
	require.Nil(t, err, "figure not persisted")
	defer f.Close()
	_, err = png.Decode(f)
	assert.Nil(t, err, "figure is not a PNG")

	assert.Equal(t, schema.Fact{Value: 0, Delta: 0}, art.Facts["hosp"])
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "91,3%", render.FormatPercent(91.3))
	assert.Equal(t, "100%", render.FormatPercent(100))
	assert.Equal(t, "mardi 9 janvier 2024", render.FormatDayLong(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "+12", render.FormatSigned(12))
	assert.NotEmpty(t, render.FormatCount(12345))
}
