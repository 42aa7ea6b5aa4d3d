package fulfillment

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Poll Watermarks
// ---------------------------------------------------------------------------

// WatermarkTracker bounds the incremental shipment poll
type WatermarkTracker interface {
	// Filter returns the shipment predicate for a poll starting at since
	Filter(since time.Time) Filter
	// Next returns the watermark to hand back to the hub after a poll.
	// The result is never before since.
	Next(now, since time.Time) time.Time
}

// WatermarkKind names a WatermarkTracker implementation
type WatermarkKind string

const (
	WatermarkShipDate WatermarkKind = "shipdate"
	WatermarkCreation WatermarkKind = "creation"
)

// IsValid returns true if the kind is known
func (k WatermarkKind) IsValid() bool {
	return k == WatermarkShipDate || k == WatermarkCreation
}

// DefaultRemoteClockOffset corrects remote timestamps that carry Pacific
// daylight time labelled as UTC.
const DefaultRemoteClockOffset = -7 * time.Hour

// NewWatermarkTracker creates the tracker for kind
func NewWatermarkTracker(kind WatermarkKind, offset time.Duration) (WatermarkTracker, error) {
	switch kind {
	case WatermarkShipDate, "":
		return ShipDateWatermark{}, nil
	case WatermarkCreation:
		return CreationWatermark{Offset: offset}, nil
	default:
		return nil, fmt.Errorf("fulfillment: unknown watermark kind %q", kind)
	}
}

// CreationWatermark polls on shipment creation time at sub-day resolution
type CreationWatermark struct {
	Offset time.Duration
}

// Filter implements WatermarkTracker
func (w CreationWatermark) Filter(since time.Time) Filter {
	return Where(FieldCreateDate, OpGe, DateTime(since))
}

// Next implements WatermarkTracker
func (w CreationWatermark) Next(now, since time.Time) time.Time {
	next := now.Add(w.Offset).UTC().Truncate(time.Second)
	return clampWatermark(next, since)
}

// ShipDateWatermark polls on modification day for shipments with a ship date.
// Remote timestamps are only trusted to the day, so every poll re-reads the
// current day and consumers see duplicates rather than gaps.
type ShipDateWatermark struct{}

// Filter implements WatermarkTracker
func (ShipDateWatermark) Filter(since time.Time) Filter {
	return Where(FieldModifyDate, OpGe, DateTime(StartOfUTCDay(since))).
		And(FieldShipDate, OpNe, Null())
}

// Next implements WatermarkTracker
func (ShipDateWatermark) Next(now, since time.Time) time.Time {
	return clampWatermark(StartOfUTCDay(now), since)
}

// StartOfUTCDay truncates t to midnight of its UTC calendar day
func StartOfUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func clampWatermark(next, since time.Time) time.Time {
	if next.Before(since) {
		return since.UTC()
	}
	return next
}

// FormatWatermark renders a watermark in the format handed back to the hub
func FormatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseWatermark parses the hub's since parameter
func ParseWatermark(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidWatermark)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05 -0700", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWatermark, raw)
}
