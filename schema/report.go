package schema

import "time"

// DatasetDescriptor binds one report zone to its upstream dataset and
// its display attributes. Descriptors are defined at configuration time
// and never mutated.
type DatasetDescriptor struct {
	// Key is the short zone identifier (fra, reg, dep, idf...).
	Key string
	// Locator is the stable URL of the delimited dataset.
	Locator string
	// ZoneColumn names the selector column inside the dataset.
	ZoneColumn string
	// ZoneValues holds the selector value of the zone. More than one
	// value marks a composite zone whose sub-zone rows are summed per
	// (day, age code); an empty list selects every row.
	ZoneValues []string
	// Color is the background color of the rendered figure, #RRGGBB.
	Color string
	// Preposition is the locale preposition used in the figure title
	// ("en" France, "dans les" Hauts-de-Seine).
	Preposition string
	// DisplayName is the human readable zone name.
	DisplayName string
	// Reference marks the descriptor probed by the freshness check.
	Reference bool
}

// ScalePolicy selects how the Y axis ceiling of every panel is chosen.
type ScalePolicy int

const (
	// PercentScale fixes the ceiling at 100.
	PercentScale ScalePolicy = iota
	// ThirdOfMaxScale derives the ceiling from one third of the all-ages
	// series maximum, so outlier panels do not dwarf the rest.
	ThirdOfMaxScale
)

// MetricSpec describes one plotted metric column.
type MetricSpec struct {
	Column string
	Label  string
	// Color is a #RRGGBB stroke color.
	Color string
	// DashArray is the stroke dash pattern, nil for a solid line.
	DashArray []float64
	// Width is the stroke width, 0 for the default.
	Width float64
}

// RenderConfig is the immutable per report type rendering configuration.
type RenderConfig struct {
	// Name is the long report title shown on the figure.
	Name string
	// ShortName prefixes output file names and log entries.
	ShortName string
	Metrics   []MetricSpec
	// GridCols is the number of panel columns; rows are derived from the
	// number of age brackets present.
	GridCols int
	// PanelWidth and PanelHeight size each panel in pixels; zero picks
	// the defaults.
	PanelWidth  int
	PanelHeight int
	Scale       ScalePolicy
	// Percent formats annotated values as percentages with a locale
	// decimal comma instead of grouped integers.
	Percent  bool
	Footnote string
	// OutDir is the per report output directory, created on demand.
	OutDir string
}

// Fact is the extracted latest value of one metric, with its delta
// against the previous displayed point.
type Fact struct {
	Value float64
	Delta float64
}

// Artifact is one rendered image on disk plus the facts extracted while
// rendering it. Never mutated after creation.
type Artifact struct {
	Path string
	// AsOf is the latest day present in the displayed window.
	AsOf time.Time
	// AsOfLabel is AsOf formatted for display.
	AsOfLabel string
	// Facts maps metric column to its latest value and delta.
	Facts map[string]Fact
}

// Slot addresses the destination message of a publish: an existing
// message to edit, or a bare channel when MessageID is empty, meaning a
// new message is sent.
type Slot struct {
	ChannelID string
	MessageID string
}
