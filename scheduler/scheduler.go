package scheduler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/etl"
	"github.com/vigie-covid/vigie/external/datasource"
	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/gifseq"
	"github.com/vigie-covid/vigie/publisher"
	"github.com/vigie-covid/vigie/render"
	"github.com/vigie-covid/vigie/schema"
)

const logPrefix = "scheduler"

// departmentPattern accepts the department numbers a user may request
// on demand, including the Corsican 2A/2B codes.
var departmentPattern = regexp.MustCompile(`^(2A|2B|[0-9]{1,3})$`)

// Scheduler drives one report through the freshness-gated pipeline:
// poll on a cadence inside the active window, gate on upstream
// freshness, then fetch, transform, render, aggregate and publish.
// Schedulers for different reports share nothing but read-only
// configuration and may interleave freely.
type Scheduler struct {
	cfg    Config
	source datasource.Source
	pub    *publisher.Publisher
	clock  Clock
	log    *log.Entry
}

// New wires a scheduler for one report.
func New(cfg Config, source datasource.Source, pub *publisher.Publisher, clock Clock) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		source: source,
		pub:    pub,
		clock:  clock,
		log:    log.WithFields(log.Fields{"prefix": logPrefix, "report": cfg.Name}),
	}
}

// Name returns the report name.
func (s *Scheduler) Name() string {
	return s.cfg.Name
}

// EphemeralChannel returns the channel receiving on-demand replies.
func (s *Scheduler) EphemeralChannel() string {
	return s.cfg.EphemeralChannel
}

// Run loops until ctx is done. Any cycle error is absorbed: recoverable
// ones back off until the next tick, the rest are reported and the
// loop keeps going.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started")
	for {
		if !sleep(ctx, s.cfg.Tick) {
			s.log.Info("scheduler stopped")
			return
		}

		now := s.clock.Now()
		if !s.cfg.Active.Contains(now) {
			continue
		}

		err := s.cycle(ctx)
		switch {
		case err == nil:
			if !sleep(ctx, s.cfg.Cooldown) {
				s.log.Info("scheduler stopped")
				return
			}
		case errors.Is(err, context.Canceled):
			s.log.Info("scheduler stopped")
			return
		case errors.Is(err, schema.ErrFreshness):
			s.log.WithField("error", err).Info("backing off until next tick")
		case errors.Is(err, schema.ErrFetch):
			s.log.WithField("error", err).Warn("backing off until next tick")
		default:
			sentry.CaptureException(err)
			s.log.WithField("error", err).Error("cycle aborted")
		}
	}
}

// cycle runs one freshness-gated pass. A panic anywhere in the stages
// surfaces as an ordinary cycle error, so one bad upstream day can
// never take the loop down.
func (s *Scheduler) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	start := time.Now()
	if err := s.checkFreshness(ctx); err != nil {
		return err
	}
	if err := s.RunNow(ctx); err != nil {
		return err
	}
	s.log.WithField("duration", time.Since(start)).Info("cycle finished")
	return nil
}

// checkFreshness fetches the reference dataset and compares its newest
// day against the expected one.
func (s *Scheduler) checkFreshness(ctx context.Context) error {
	raw, err := s.source.Fetch(ctx, s.cfg.reference().Locator)
	if err != nil {
		return err
	}
	observed, err := datasource.MaxDay(raw)
	if err != nil {
		return err
	}

	expected := dateOnly(s.clock.Now().AddDate(0, 0, -s.cfg.LagDays))
	if !observed.Equal(expected) {
		return fmt.Errorf("%w: expected %s, observed %s", schema.ErrFreshness,
			expected.Format(schema.DayFormat), observed.Format(schema.DayFormat))
	}
	return nil
}

// RunNow executes one full pass over every configured zone, bypassing
// the freshness gate. It is also the admin force-run entry point.
func (s *Scheduler) RunNow(ctx context.Context) error {
	cache := map[string]*schema.RawSnapshot{}
	var artifacts []*schema.Artifact

	for i, desc := range s.cfg.Descriptors {
		artifact, err := s.renderZone(ctx, cache, desc)
		if err != nil {
			return err
		}

		if s.cfg.GIF != nil {
			artifacts = append(artifacts, artifact)
		} else {
			slot, ok := s.cfg.ZoneSlots[desc.Key]
			if !ok {
				return fmt.Errorf("%w: no slot configured for zone %s", schema.ErrPublish, desc.Key)
			}
			if err := s.pub.Publish(ctx, slot, artifact, s.zoneMessage(desc, artifact)); err != nil {
				return err
			}
		}

		if i < len(s.cfg.Descriptors)-1 {
			if !sleep(ctx, s.cfg.InterZonePause) {
				return ctx.Err()
			}
		}
	}

	if s.cfg.GIF != nil {
		composite, err := gifseq.Aggregate(artifacts, s.cfg.GIF.FrameDuration, s.cfg.GIF.Path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", schema.ErrRender, s.cfg.Name, err)
		}
		if err := s.pub.Publish(ctx, s.cfg.Slot, composite, s.compositeMessage(composite)); err != nil {
			return err
		}
	}

	if !sleep(ctx, s.cfg.PublishPause) {
		return ctx.Err()
	}
	return nil
}

// RunZone renders a single zone for an on-demand request and returns
// the artifact with its reply message. The zone may be a configured
// descriptor key or a raw department number.
func (s *Scheduler) RunZone(ctx context.Context, zone string) (*schema.Artifact, publisher.Message, error) {
	desc, err := s.descriptorFor(zone)
	if err != nil {
		return nil, publisher.Message{}, err
	}

	cache := map[string]*schema.RawSnapshot{}
	artifact, err := s.renderZone(ctx, cache, desc)
	if err != nil {
		return nil, publisher.Message{}, err
	}
	return artifact, s.zoneMessage(desc, artifact), nil
}

func (s *Scheduler) descriptorFor(zone string) (schema.DatasetDescriptor, error) {
	if zone == "" {
		return s.cfg.reference(), nil
	}
	for _, d := range s.cfg.Descriptors {
		if d.Key == zone {
			return d, nil
		}
		if len(d.ZoneValues) == 1 && d.ZoneValues[0] == zone {
			return d, nil
		}
	}

	// A bare department number piggybacks on the department descriptor.
	if departmentPattern.MatchString(zone) {
		for _, d := range s.cfg.Descriptors {
			if d.ZoneColumn == "dep" && len(d.ZoneValues) == 1 {
				d.ZoneValues = []string{zone}
				d.DisplayName = zone
				d.Preposition = "dans le"
				return d, nil
			}
		}
	}
	return schema.DatasetDescriptor{}, fmt.Errorf("%w: %q", schema.ErrUnknownZone, zone)
}

func (s *Scheduler) renderZone(ctx context.Context, cache map[string]*schema.RawSnapshot, desc schema.DatasetDescriptor) (*schema.Artifact, error) {
	raw, ok := cache[desc.Locator]
	if !ok {
		var err error
		if raw, err = s.source.Fetch(ctx, desc.Locator); err != nil {
			return nil, err
		}
		cache[desc.Locator] = raw
	}

	ws, err := etl.Transform(raw, etl.Params{
		Zone:       desc.DisplayName,
		ZoneColumn: desc.ZoneColumn,
		ZoneValues: desc.ZoneValues,
		AgeColumn:  s.cfg.AgeColumn,
		Metrics:    s.cfg.metricColumns(),
		WindowDays: s.cfg.WindowDays,
		Now:        s.clock.Now(),
		Filter:     s.cfg.Filter,
	})
	if err != nil {
		return nil, err
	}

	return render.Render(ws, s.cfg.Render, desc)
}

func (s *Scheduler) zoneMessage(desc schema.DatasetDescriptor, artifact *schema.Artifact) publisher.Message {
	title := s.cfg.Message.Title
	if strings.Contains(title, "%s") {
		title = fmt.Sprintf(title, desc.DisplayName)
	}

	msg := publisher.Message{
		Title:       title,
		Description: s.cfg.Message.Description,
		URL:         s.cfg.Message.URL,
		Footer:      "Données du " + artifact.AsOfLabel + "\nSanté publique France",
		Color:       colorInt(desc.Color, s.cfg.Message.Color),
		Fields:      s.cfg.Message.Fields,
	}
	if s.cfg.Message.FactsAsFields {
		msg.Fields = append([]messenger.EmbedField{s.factsField(artifact)}, s.cfg.Message.Fields...)
	}
	return msg
}

func (s *Scheduler) compositeMessage(composite *schema.Artifact) publisher.Message {
	return publisher.Message{
		Title:       s.cfg.Message.Title,
		Description: s.cfg.Message.Description,
		URL:         s.cfg.Message.URL,
		Footer:      "Données du " + composite.AsOfLabel + "\nSanté publique France",
		Color:       s.cfg.Message.Color,
		Fields:      s.cfg.Message.Fields,
	}
}

// factsField lists the latest value of every metric, one line per
// metric in configuration order.
func (s *Scheduler) factsField(artifact *schema.Artifact) messenger.EmbedField {
	value := ""
	for _, m := range s.cfg.Render.Metrics {
		fact, ok := artifact.Facts[m.Column]
		if !ok {
			continue
		}
		value += m.Label + " : " + render.FormatValue(s.cfg.Render, fact.Value) + "\n"
	}
	return messenger.EmbedField{Name: "​", Value: value}
}

func colorInt(hex string, fallback int) int {
	if len(hex) == 7 && hex[0] == '#' {
		if v, err := strconv.ParseInt(hex[1:], 16, 32); err == nil {
			return int(v)
		}
	}
	return fallback
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sleep pauses for d, returning false when ctx ended first. Every pause
// point of the pipeline goes through here so cancellation is honored
// between stages.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
