/*
Package tenant normalizes a tenant's loosely-typed configuration document.

PURPOSE:
  Tenant administration stores configuration as a free-form JSON document.
  This package turns it into a validated Config used by the stamp engine's
  eligibility checks: timezone, language, campaign window and coupon-usage
  window.

TIMEZONE RESOLUTION:
  1. Explicit offset "UTC±HH:MM" (range -12:00..+14:00)
  2. Named zone ("Asia/Tokyo")
  3. Resolver default, computed once at startup from the operator setting
     or the fixed fallback UTC+09:00
  Invalid input at any stage falls through to the next stage.

LENIENT vs STRICT:
  Reads are lenient: unknown languages, modes and themes fall back to
  defaults. Administrative updates (update.go) are strict and return
  ValidationError.

SEE ALSO:
  - window.go: Campaign / coupon-usage windows and boundary parsing
  - config.go: Document and Config
  - update.go: Administrative campaign updates
*/
package tenant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// FallbackTimezone is used when the operator supplies no usable default.
const FallbackTimezone = "UTC+09:00"

const (
	minOffsetMinutes = -12 * 60
	maxOffsetMinutes = 14 * 60
)

var offsetPattern = regexp.MustCompile(`^UTC([+-])(\d{1,2})(?::(\d{2}))?$`)

// ParseOffset parses "UTC+09:00", "UTC-5" or "UTC+05:30" into a fixed zone.
func ParseOffset(value string) (*time.Location, bool) {
	minutes, ok := offsetMinutes(value)
	if !ok {
		return nil, false
	}
	return time.FixedZone(FormatOffset(minutes), minutes*60), true
}

func offsetMinutes(value string) (int, bool) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if minutes > 59 {
		return 0, false
	}
	total := hours*60 + minutes
	if m[1] == "-" {
		total = -total
	}
	if total < minOffsetMinutes || total > maxOffsetMinutes {
		return 0, false
	}
	return total, true
}

// FormatOffset renders an offset in minutes as "UTC±HH:MM".
func FormatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}

// LoadZone looks up a named zone. "Local" is refused so that tenant
// behaviour never depends on the host.
func LoadZone(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// CoerceOffset normalizes an offset or zone name to "UTC±HH:MM", using the
// zone's offset at the given instant. Returns false when neither form is
// valid or the zone's offset is outside the accepted range.
func CoerceOffset(value string, at time.Time) (string, bool) {
	if minutes, ok := offsetMinutes(value); ok {
		return FormatOffset(minutes), true
	}
	loc, ok := LoadZone(value)
	if !ok {
		return "", false
	}
	_, secs := at.In(loc).Zone()
	if secs%60 != 0 {
		return "", false
	}
	minutes := secs / 60
	if minutes < minOffsetMinutes || minutes > maxOffsetMinutes {
		return "", false
	}
	return FormatOffset(minutes), true
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver holds the tenant-independent default timezone. Build one at
// startup and pass it to whatever needs tenant configuration.
type Resolver struct {
	defaultLoc   *time.Location
	defaultLabel string
}

// NewResolver resolves the operator default once: offset, then named zone,
// then FallbackTimezone.
func NewResolver(operatorDefault string) *Resolver {
	if loc, ok := ParseOffset(operatorDefault); ok {
		label, _ := CoerceOffset(operatorDefault, time.Now())
		return &Resolver{defaultLoc: loc, defaultLabel: label}
	}
	if loc, ok := LoadZone(operatorDefault); ok {
		label, ok := CoerceOffset(operatorDefault, time.Now())
		if !ok {
			label = FallbackTimezone
		}
		return &Resolver{defaultLoc: loc, defaultLabel: label}
	}
	loc, _ := ParseOffset(FallbackTimezone)
	return &Resolver{defaultLoc: loc, defaultLabel: FallbackTimezone}
}

// Default returns the default location.
func (r *Resolver) Default() *time.Location { return r.defaultLoc }

// DefaultLabel returns the default as "UTC±HH:MM".
func (r *Resolver) DefaultLabel() string { return r.defaultLabel }

// Location resolves a tenant timezone value. Never fails.
func (r *Resolver) Location(value string) *time.Location {
	if loc, ok := ParseOffset(value); ok {
		return loc
	}
	if loc, ok := LoadZone(value); ok {
		return loc
	}
	return r.defaultLoc
}

// Label resolves a tenant timezone value to its display form.
func (r *Resolver) Label(value string, at time.Time) string {
	if label, ok := CoerceOffset(value, at); ok {
		return label
	}
	return r.defaultLabel
}

// ValidateTimezone is the strict form used by administrative updates.
func ValidateTimezone(value string, at time.Time) (string, error) {
	label, ok := CoerceOffset(value, at)
	if !ok {
		return "", &ValidationError{
			Field:   "campaign_timezone",
			Message: "invalid campaign timezone; use 'UTC±HH:MM' within -12:00 to +14:00",
		}
	}
	return label, nil
}
