package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vigie-covid/vigie/etl"
	"github.com/vigie-covid/vigie/schema"
)

const (
	logPrefix = "datasource"

	dayColumn = "jour"
	separator = ';'
)

// Source fetches a delimited tabular dataset from a stable locator.
type Source interface {
	Fetch(ctx context.Context, locator string) (*schema.RawSnapshot, error)
}

type httpSource struct {
	client *http.Client
}

// New returns an HTTP backed Source. A nil client falls back to a
// default with a generous timeout, the upstream CSV exports are large.
func New(client *http.Client) Source {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &httpSource{client: client}
}

func (s *httpSource) Fetch(ctx context.Context, locator string) (*schema.RawSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}

	resp, err := s.client.Do(req)
	if nil != err {
		log.WithFields(log.Fields{
			"prefix":  logPrefix,
			"locator": locator,
			"error":   err,
		}).Error("get dataset")
		return nil, fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", schema.ErrFetch, resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	r.Comma = separator
	r.ReuseRecord = false

	records, err := r.ReadAll()
	if nil != err {
		log.WithFields(log.Fields{
			"prefix":  logPrefix,
			"locator": locator,
			"error":   err,
		}).Error("read dataset")
		return nil, fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%w: dataset has no data rows", schema.ErrDataShape)
	}

	log.WithFields(log.Fields{
		"prefix":  logPrefix,
		"locator": locator,
		"rows":    len(records) - 1,
	}).Debug("dataset fetched")

	return schema.NewRawSnapshot(records[0], records[1:]), nil
}

// MaxDay extracts the latest day present in a raw snapshot. It is the
// freshness probe: the scheduler compares it against the expected day.
func MaxDay(raw *schema.RawSnapshot) (time.Time, error) {
	idx, ok := raw.Column(dayColumn)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing column %q", schema.ErrDataShape, dayColumn)
	}

	var max time.Time
	for _, row := range raw.Rows {
		day, err := etl.ParseDay(row[idx])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: column %q: %v", schema.ErrDataShape, dayColumn, err)
		}
		if day.After(max) {
			max = day
		}
	}
	return max, nil
}
