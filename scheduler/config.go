package scheduler

import (
	"time"

	"github.com/vigie-covid/vigie/etl"
	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/schema"
)

// GIFSpec makes a report a multi-zone animated one: per-zone figures
// are aggregated into a single composite published to one slot.
type GIFSpec struct {
	Path          string
	FrameDuration time.Duration
}

// MessageSpec templates the published embed. Title may contain a single
// %s expanded with the zone display name for per-zone publishes.
type MessageSpec struct {
	Title       string
	Description string
	URL         string
	Color       int
	// Fields are static extra blocks (command help, rotation note).
	Fields []messenger.EmbedField
	// FactsAsFields renders the per-metric latest values as one embed
	// field, one line per metric in configuration order.
	FactsAsFields bool
}

// Config is the full static configuration of one report scheduler.
type Config struct {
	// Name identifies the report in logs and the admin API.
	Name string

	// Descriptors lists the zones in publish order. The descriptor
	// marked Reference (or the first one) is used for the freshness
	// probe.
	Descriptors []schema.DatasetDescriptor

	Render    schema.RenderConfig
	AgeColumn string
	Filter    *etl.Filter

	// WindowDays is the ETL retention window.
	WindowDays int
	// LagDays is the expected calendar offset between today and the
	// newest day of the dataset; it varies per report with no general
	// rule, so it stays explicit configuration.
	LagDays int

	Active ActiveWindow

	// GIF, when set, aggregates all zones into one composite published
	// to Slot. When nil, each zone publishes to its own ZoneSlots entry.
	GIF       *GIFSpec
	Slot      schema.Slot
	ZoneSlots map[string]schema.Slot

	Message MessageSpec

	// EphemeralChannel receives on-demand single-zone replies.
	EphemeralChannel string

	// Tick is the idle poll cadence; Cooldown the pause after a
	// successful cycle, freshness cannot change until the next calendar
	// day. InterZonePause spaces zone renders and publishes to avoid
	// bursting the messaging surface; PublishPause follows the final
	// publish of a cycle.
	Tick           time.Duration
	Cooldown       time.Duration
	InterZonePause time.Duration
	PublishPause   time.Duration
}

func (c Config) reference() schema.DatasetDescriptor {
	for _, d := range c.Descriptors {
		if d.Reference {
			return d
		}
	}
	return c.Descriptors[0]
}

func (c Config) metricColumns() []string {
	cols := make([]string, 0, len(c.Render.Metrics))
	for _, m := range c.Render.Metrics {
		cols = append(cols, m.Column)
	}
	return cols
}
