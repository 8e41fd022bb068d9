package billing

import (
	"time"

	"github.com/agencydesk/backend/internal/domain/identity"
)

// Clock resolves absolute instants into an agency's local calendar terms.
// All due-date arithmetic in the pipeline goes through a Clock so that each
// agency's own time zone and daily cutoff govern its own installments. Pure
// value, no I/O.
type Clock struct {
	loc          *time.Location
	cutoffHour   int
	cutoffMinute int
}

// NewClock builds a clock from an IANA zone name and an "HH:MM" cutoff.
// Unknown zones fall back to UTC and unparseable cutoffs to 17:00, matching
// the defaulting rules on agency settings.
func NewClock(timezone, dailyCutoff string) Clock {
	loc, err := time.LoadLocation(timezone)
	if timezone == "" || err != nil {
		loc = time.UTC
	}
	hour, minute, err := identity.ParseCutoff(dailyCutoff)
	if err != nil {
		hour, minute, _ = identity.ParseCutoff(identity.DefaultDailyCutoff)
	}
	return Clock{loc: loc, cutoffHour: hour, cutoffMinute: minute}
}

// ClockFor builds a clock from an agency's automation settings
func ClockFor(settings identity.AutomationSettings) Clock {
	s := settings.Normalized()
	return NewClock(s.Timezone, s.DailyCutoff)
}

// Location returns the agency's time zone
func (c Clock) Location() *time.Location {
	return c.loc
}

// LocalToday returns the agency-local calendar date of ref as a date value
func (c Clock) LocalToday(ref time.Time) time.Time {
	return DateOf(ref.In(c.loc))
}

// LocalTomorrow returns the agency-local calendar date one day after ref
func (c Clock) LocalTomorrow(ref time.Time) time.Time {
	return c.LocalToday(ref).AddDate(0, 0, 1)
}

// CutoffPassed reports whether ref is at or past today's local cutoff
func (c Clock) CutoffPassed(ref time.Time) bool {
	local := ref.In(c.loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), c.cutoffHour, c.cutoffMinute, 0, 0, c.loc)
	return !local.Before(cutoff)
}

// NextCutoff returns the instant of tomorrow's local cutoff. Constructing
// the instant from local wall-clock components keeps it correct across DST
// transitions between ref and the cutoff.
func (c Clock) NextCutoff(ref time.Time) time.Time {
	local := ref.In(c.loc)
	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), c.cutoffHour, c.cutoffMinute, 0, 0, c.loc)
}

// DateOf truncates t to its calendar date, normalized to midnight UTC.
// Due dates and local "today" values are compared in this form so that two
// dates are equal iff they name the same calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
