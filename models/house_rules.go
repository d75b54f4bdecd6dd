package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// HouseRules are the restaurant's booking rules: opening hours, the weekly
// closed day and the local time zone.
type HouseRules struct {
	Location    *time.Location
	OpensAt     time.Duration // offset from midnight
	LastSeating time.Duration // offset from midnight, inclusive
	ClosedDay   *time.Weekday
	Now         func() time.Time
}

// NewHouseRules parses the textual settings. closedWeekday may be empty or
// "none" for a restaurant open every day.
func NewHouseRules(timezone, opensAt, lastSeating, closedWeekday string) (HouseRules, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return HouseRules{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	open, _, err := ParseClock(opensAt)
	if err != nil {
		return HouseRules{}, fmt.Errorf("invalid opening time %q", opensAt)
	}
	last, _, err := ParseClock(lastSeating)
	if err != nil {
		return HouseRules{}, fmt.Errorf("invalid last seating time %q", lastSeating)
	}
	if last < open {
		return HouseRules{}, fmt.Errorf("last seating %s is before opening %s", lastSeating, opensAt)
	}

	rules := HouseRules{Location: loc, OpensAt: open, LastSeating: last, Now: time.Now}
	if day := strings.TrimSpace(closedWeekday); day != "" && !strings.EqualFold(day, "none") {
		wd, err := parseWeekday(day)
		if err != nil {
			return HouseRules{}, err
		}
		rules.ClosedDay = &wd
	}
	return rules, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}

// ParseClock accepts HH:MM or HH:MM:SS and returns the offset from midnight
// plus the normalised HH:MM form.
func ParseClock(s string) (time.Duration, string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return 0, "", err
		}
	}
	offset := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return offset, t.Format(ClockLayout), nil
}

// ParseDate parses a YYYY-MM-DD date at midnight in the restaurant's zone.
func (r HouseRules) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), r.location())
}

// Slot combines a date and clock offset into a wall-clock instant.
func (r HouseRules) Slot(date time.Time, clock time.Duration) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.location()).Add(clock)
}

// Today is the current date in the restaurant's zone.
func (r HouseRules) Today() string {
	return r.now().In(r.location()).Format(DateLayout)
}

// IsClosed reports whether date falls on the weekly closed day.
func (r HouseRules) IsClosed(date time.Time) bool {
	return r.ClosedDay != nil && date.Weekday() == *r.ClosedDay
}

// InService reports whether clock is within opening time and last seating.
func (r HouseRules) InService(clock time.Duration) bool {
	return clock >= r.OpensAt && clock <= r.LastSeating
}

// InFuture reports whether the slot is after now.
func (r HouseRules) InFuture(slot time.Time) bool {
	return slot.After(r.now())
}

// ServiceHours renders the opening window, e.g. "10:30 AM and 9:30 PM".
func (r HouseRules) ServiceHours() string {
	midnight := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s and %s",
		midnight.Add(r.OpensAt).Format("3:04 PM"),
		midnight.Add(r.LastSeating).Format("3:04 PM"))
}

func (r HouseRules) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r HouseRules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// LocalNow is the current time in the restaurant's time zone.
func (r HouseRules) LocalNow() time.Time {
	return r.now().In(r.location())
}
