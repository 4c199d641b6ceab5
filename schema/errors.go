package schema

import "errors"

var (
	// ErrFetch indicates a transport level failure while downloading a
	// dataset. Recoverable, the scheduler retries on the next tick.
	ErrFetch = errors.New("dataset fetch failed")

	// ErrFreshness indicates the upstream dataset has not been refreshed
	// for the expected day yet. Recoverable.
	ErrFreshness = errors.New("dataset not fresh yet")

	// ErrDataShape indicates a required column is missing or a cell failed
	// its semantic cast. Retrying without an upstream fix will not help.
	ErrDataShape = errors.New("unexpected dataset shape")

	// ErrRender indicates a whole report render failed.
	ErrRender = errors.New("report render failed")

	// ErrPublish indicates a message slot could not be updated.
	ErrPublish = errors.New("publish failed")

	// ErrEmptySequence is returned when aggregating zero artifacts.
	ErrEmptySequence = errors.New("empty artifact sequence")

	// ErrUnknownZone is returned for an on-demand request naming a zone
	// that matches no configured selector.
	ErrUnknownZone = errors.New("unknown zone")
)
