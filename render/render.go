package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/vigie-covid/vigie/agelabel"
	"github.com/vigie-covid/vigie/schema"
)

const (
	logPrefix = "render"

	// displayDays bounds what a single figure shows; it is independent
	// of the ETL retention window.
	displayDays = 45

	defaultPanelWidth  = 340
	defaultPanelHeight = 260
)

// Render turns one windowed snapshot into a panel grid image persisted
// on disk, plus the extracted latest facts. One panel per age bracket,
// the aggregate bracket first with a heavier border; every panel
// overlays all configured metrics.
//
// A panel that cannot be rendered is dropped from the grid with a
// warning; the render fails only when no panel could be produced or
// when the grid cannot be assembled or persisted.
func Render(ws *schema.WindowedSnapshot, cfg schema.RenderConfig, zone schema.DatasetDescriptor) (*schema.Artifact, error) {
	days := ws.Days()
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: %s: snapshot holds no days", schema.ErrRender, cfg.ShortName)
	}
	displayed := days
	if len(displayed) > displayDays {
		displayed = displayed[len(displayed)-displayDays:]
	}

	codes := ws.AgeCodes()
	labels, err := agelabel.Labels(codes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: labeling age brackets: %v", schema.ErrRender, cfg.ShortName, err)
	}

	yRange := scaleRange(ws, cfg, displayed, codes[0])

	var panels []image.Image
	for i, code := range codes {
		img, err := renderPanel(ws, cfg, displayed, code, labels[code], yRange, i == 0)
		if err != nil {
			log.WithFields(log.Fields{
				"prefix": logPrefix,
				"report": cfg.ShortName,
				"zone":   ws.Zone,
				"panel":  labels[code],
				"error":  err,
			}).Warn("panel dropped")
			continue
		}
		panels = append(panels, img)
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("%w: %s: no panel could be rendered", schema.ErrRender, cfg.ShortName)
	}

	asOf := displayed[len(displayed)-1]
	asOfLabel := FormatDayLong(asOf)

	grid, err := compose(panels, cfg, zone, asOfLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: assembling grid: %v", schema.ErrRender, cfg.ShortName, err)
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrRender, cfg.ShortName, err)
	}
	path := filepath.Join(cfg.OutDir, fmt.Sprintf("%s - %s.png", cfg.ShortName, zone.DisplayName))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", schema.ErrRender, cfg.ShortName, err)
	}
	defer f.Close()
	if err := png.Encode(f, grid); err != nil {
		return nil, fmt.Errorf("%w: %s: encoding figure: %v", schema.ErrRender, cfg.ShortName, err)
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"report": cfg.ShortName,
		"zone":   ws.Zone,
		"panels": len(panels),
		"path":   path,
	}).Info("figure rendered")

	return &schema.Artifact{
		Path:      path,
		AsOf:      asOf,
		AsOfLabel: asOfLabel,
		Facts:     extractFacts(ws, cfg, displayed, codes[0]),
	}, nil
}

// scaleRange applies the configured Y axis policy: a fixed 0-100
// ceiling for percentage series, or one third of the aggregate series
// maximum for counts so outlier panels do not dwarf the rest.
func scaleRange(ws *schema.WindowedSnapshot, cfg schema.RenderConfig, displayed []time.Time, aggCode int) *chart.ContinuousRange {
	if cfg.Scale == schema.PercentScale {
		return &chart.ContinuousRange{Min: 0, Max: 100}
	}

	var max float64
	for _, m := range cfg.Metrics {
		for _, day := range displayed {
			if v, ok := ws.Value(day, aggCode, m.Column); ok && v > max {
				max = v
			}
		}
	}
	if max <= 0 {
		return nil
	}
	return &chart.ContinuousRange{Min: 0, Max: max / 3}
}

func seriesFor(ws *schema.WindowedSnapshot, displayed []time.Time, code int, column string) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, len(displayed))
	ys := make([]float64, 0, len(displayed))
	for _, day := range displayed {
		if v, ok := ws.Value(day, code, column); ok {
			xs = append(xs, day)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

func renderPanel(ws *schema.WindowedSnapshot, cfg schema.RenderConfig, displayed []time.Time, code int, title string, yRange *chart.ContinuousRange, aggregate bool) (image.Image, error) {
	var series []chart.Series
	for _, m := range cfg.Metrics {
		xs, ys := seriesFor(ws, displayed, code, m.Column)
		if len(xs) < 2 {
			// go-chart cannot draw a line through fewer than two points.
			continue
		}

		stroke := colorFromHex(m.Color, chart.ColorBlue)
		series = append(series, chart.TimeSeries{
			Name:    m.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor:     stroke,
				StrokeWidth:     m.Width,
				StrokeDashArray: m.DashArray,
			},
		})
		series = append(series, annotations(cfg, xs, ys, stroke))
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("fewer than two points for every metric")
	}

	width, height := cfg.PanelWidth, cfg.PanelHeight
	if width == 0 {
		width = defaultPanelWidth
	}
	if height == 0 {
		height = defaultPanelHeight
	}

	ch := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 10},
		Width:      width,
		Height:     height,
		Background: chart.Style{
			Padding: chart.Box{Top: 26, Left: 10, Right: 14, Bottom: 8},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
			Style:          chart.Style{FontSize: 7},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{FontSize: 7},
		},
		Series: series,
	}
	// A typed nil assigned to the Range interface would still be
	// dereferenced by go-chart; leave the field unset when no ceiling
	// could be derived.
	if yRange != nil {
		ch.YAxis.Range = yRange
	}
	if aggregate {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// annotations marks the first and last displayed point of a series with
// its formatted value; count series also carry the delta against the
// previous point on the last annotation.
func annotations(cfg schema.RenderConfig, xs []time.Time, ys []float64, stroke drawing.Color) chart.Series {
	last := len(ys) - 1
	lastLabel := FormatValue(cfg, ys[last])
	if !cfg.Percent && last > 0 {
		lastLabel += " (" + FormatSigned(ys[last]-ys[last-1]) + ")"
	}

	return chart.AnnotationSeries{
		Annotations: []chart.Value2{
			{
				XValue: chart.TimeToFloat64(xs[0]),
				YValue: ys[0],
				Label:  FormatValue(cfg, ys[0]),
			},
			{
				XValue: chart.TimeToFloat64(xs[last]),
				YValue: ys[last],
				Label:  lastLabel,
			},
		},
		Style: chart.Style{
			StrokeColor: stroke,
			FontColor:   stroke,
			FontSize:    7,
		},
	}
}

// extractFacts records, for every configured metric, the final value of
// the aggregate series and its delta against the previous point. The
// publisher turns these into text summaries.
func extractFacts(ws *schema.WindowedSnapshot, cfg schema.RenderConfig, displayed []time.Time, aggCode int) map[string]schema.Fact {
	facts := make(map[string]schema.Fact, len(cfg.Metrics))
	for _, m := range cfg.Metrics {
		_, ys := seriesFor(ws, displayed, aggCode, m.Column)
		if len(ys) == 0 {
			continue
		}
		f := schema.Fact{Value: ys[len(ys)-1]}
		if len(ys) > 1 {
			f.Delta = ys[len(ys)-1] - ys[len(ys)-2]
		}
		facts[m.Column] = f
	}
	return facts
}

func colorFromHex(hex string, fallback drawing.Color) drawing.Color {
	if len(hex) == 0 {
		return fallback
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return fallback
	}
	return drawing.ColorFromHex(hex)
}
