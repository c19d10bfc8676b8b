// Package progress defines the events emitted by the progress poller.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes which part of a poll tick an Event describes.
type Stage string

// Supported poll stages.
const (
	StagePollStart Stage = "POLL_START"
	StagePollDone  Stage = "POLL_DONE"
	StagePollError Stage = "POLL_ERROR"
	StagePollStale Stage = "POLL_STALE"
)

// Event captures the outcome of one poll tick.
type Event struct {
	// Seq is the poll sequence number, starting at 1.
	Seq uint64
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Progress is the decoded percentage for done and stale events.
	Progress float64
	// Active mirrors the decoded activity flag.
	Active bool
	// Rendered is false when the indicator container was not on the page.
	Rendered bool
	// Dur is the request latency for done, error and stale events.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.Seq == 0 {
		return errors.New("sequence is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StagePollStart, StagePollDone, StagePollStale:
	case StagePollError:
		if e.Note == "" {
			return errors.New("poll error requires note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Progress < 0 || e.Progress > 100 {
		return fmt.Errorf("progress %v out of range", e.Progress)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Result maps terminal stages to a metric label; it is empty for POLL_START.
func (e Event) Result() string {
	switch e.Stage {
	case StagePollDone:
		return "ok"
	case StagePollError:
		return "error"
	case StagePollStale:
		return "stale"
	default:
		return ""
	}
}
