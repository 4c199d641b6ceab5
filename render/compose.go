package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/vigie-covid/vigie/schema"
)

const (
	headerHeight = 96
	footerHeight = 88
	gridMargin   = 10
	gridGap      = 6
	borderWidth  = 3
)

// compose lays the rendered panels out on a colored grid with a title
// header and a footnote strip, and frames the aggregate panel with a
// heavier border.
func compose(panels []image.Image, cfg schema.RenderConfig, zone schema.DatasetDescriptor, asOfLabel string) (image.Image, error) {
	cols := cfg.GridCols
	if cols <= 0 || cols > len(panels) {
		cols = len(panels)
	}
	rows := (len(panels) + cols - 1) / cols

	pw := panels[0].Bounds().Dx()
	ph := panels[0].Bounds().Dy()

	width := gridMargin*2 + cols*pw + (cols-1)*gridGap
	height := headerHeight + rows*ph + (rows-1)*gridGap + footerHeight + gridMargin

	background := colorFromHex(zone.Color, drawing.ColorWhite)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	header, err := textStrip(width, headerHeight, background, []stripLine{
		{body: cfg.Name, size: 16, x: gridMargin + 4, y: 34},
		{
			body: fmt.Sprintf("%s %s depuis %d jours jusqu'au %s",
				zone.Preposition, zone.DisplayName, displayDays, asOfLabel),
			size: 11, x: gridMargin + 4, y: 58,
		},
	})
	if err != nil {
		return nil, err
	}
	draw.Draw(canvas, image.Rect(0, 0, width, headerHeight), header, image.Point{}, draw.Over)

	for i, panel := range panels {
		x := gridMargin + (i%cols)*(pw+gridGap)
		y := headerHeight + (i/cols)*(ph+gridGap)
		rect := image.Rect(x, y, x+pw, y+ph)
		draw.Draw(canvas, rect, panel, panel.Bounds().Min, draw.Over)
		if i == 0 {
			// The aggregate panel is emphasized to set it apart.
			drawBorder(canvas, rect, borderWidth)
		}
	}

	var footLines []stripLine
	y := 22
	for _, line := range splitFootnote(cfg.Footnote) {
		footLines = append(footLines, stripLine{body: line, size: 9, x: gridMargin + 4, y: y})
		y += 14
	}
	footLines = append(footLines,
		stripLine{body: "Source : Santé publique France", size: 9, x: gridMargin + 4, y: y},
		stripLine{body: "Dernière donnée : " + asOfLabel, size: 9, x: gridMargin + 4, y: y + 14},
	)
	footer, err := textStrip(width, footerHeight, background, footLines)
	if err != nil {
		return nil, err
	}
	footTop := height - footerHeight - gridMargin
	draw.Draw(canvas, image.Rect(0, footTop, width, footTop+footerHeight), footer, image.Point{}, draw.Over)

	return canvas, nil
}

func splitFootnote(footnote string) []string {
	if footnote == "" {
		return nil
	}
	return strings.Split(footnote, "\n")
}

type stripLine struct {
	body  string
	size  float64
	x, y  int
	color drawing.Color
}

// textStrip rasterizes a block of text lines over a solid background
// using the chart renderer, so the figure text uses the same font as
// the panels.
func textStrip(width, height int, background drawing.Color, lines []stripLine) (image.Image, error) {
	r, err := chart.PNG(width, height)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)

	r.SetFillColor(background)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	for _, l := range lines {
		c := l.color
		if c.IsZero() {
			c = chart.ColorBlack
		}
		r.SetFontSize(l.size)
		r.SetFontColor(c)
		r.Text(l.body, l.x, l.y)
	}

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

func drawBorder(canvas *image.RGBA, rect image.Rectangle, width int) {
	black := image.NewUniform(chart.ColorBlack)
	// top, bottom, left, right
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width), black, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y), black, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y), black, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y), black, image.Point{}, draw.Src)
}
