package tenant

import (
	"strings"
	"time"
)

// WindowState is the result of checking an instant against a Window.
type WindowState int

const (
	WindowOpen WindowState = iota
	WindowNotStarted
	WindowEnded
)

func (s WindowState) String() string {
	switch s {
	case WindowNotStarted:
		return "not_started"
	case WindowEnded:
		return "ended"
	default:
		return "open"
	}
}

// Window is a closed interval. A nil bound is unbounded on that side.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Check places now relative to the window. Both bounds are inclusive.
func (w Window) Check(now time.Time) WindowState {
	if w.Start != nil && now.Before(*w.Start) {
		return WindowNotStarted
	}
	if w.End != nil && now.After(*w.End) {
		return WindowEnded
	}
	return WindowOpen
}

var awareLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// ParseBoundary interprets a window bound in the tenant's location.
//
//	"2024-06-01"                start of day (or end of day when end is set)
//	"2024-06-01T10:00:00"       wall clock in loc
//	"2024-06-01T10:00:00Z"      absolute instant
//	"2024-06-01T10:00:00+02:00" absolute instant
//
// Empty or unparseable input yields nil, i.e. no bound.
func ParseBoundary(value string, end bool, loc *time.Location) *time.Time {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	if strings.HasSuffix(v, "z") {
		v = v[:len(v)-1] + "Z"
	}

	if d, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		if end {
			d = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999999999, loc)
		}
		return &d
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.In(loc)
			return &t
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return &t
		}
	}
	return nil
}
