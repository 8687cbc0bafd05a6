package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DailyCode is the sentinel weekday set meaning "every day".
const DailyCode = "daily"

// WeekdayCodes lists the weekday codes Monday first, the order forms and
// stored values use.
var WeekdayCodes = []string{"mo", "tu", "we", "th", "fr", "sa", "su"}

var codeToWeekday = map[string]time.Weekday{
	"mo": time.Monday,
	"tu": time.Tuesday,
	"we": time.Wednesday,
	"th": time.Thursday,
	"fr": time.Friday,
	"sa": time.Saturday,
	"su": time.Sunday,
}

var (
	ErrInvalidWeekday   = errors.New("invalid weekday code")
	ErrInvalidClockTime = errors.New("time must be in HH:MM format")
	ErrEndBeforeStart   = errors.New("end time must be after start time")
)

// DaySet is the set of weekdays a batch meets on. The zero value is the
// unscheduled set.
type DaySet struct {
	mask  uint8
	daily bool
}

// Daily is the "every day" set.
var Daily = DaySet{daily: true}

// ParseDaySet parses a comma separated list of weekday codes or "daily".
// An empty string yields the unscheduled set.
func ParseDaySet(s string) (DaySet, error) {
	var set DaySet
	for _, raw := range strings.Split(s, ",") {
		code := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case code == "":
			continue
		case code == DailyCode:
			set.daily = true
		default:
			wd, ok := codeToWeekday[code]
			if !ok {
				return DaySet{}, fmt.Errorf("%w: %q", ErrInvalidWeekday, code)
			}
			set.mask |= 1 << uint(wd)
		}
	}
	return set, nil
}

// DaySetOf parses stored values, ignoring codes it does not know.
func DaySetOf(s string) DaySet {
	var set DaySet
	for _, raw := range strings.Split(s, ",") {
		code := strings.ToLower(strings.TrimSpace(raw))
		if code == DailyCode {
			set.daily = true
		} else if wd, ok := codeToWeekday[code]; ok {
			set.mask |= 1 << uint(wd)
		}
	}
	return set
}

// DaySetFromCodes builds a set from checkbox values.
func DaySetFromCodes(codes []string) (DaySet, error) {
	return ParseDaySet(strings.Join(codes, ","))
}

// IsEmpty reports the unscheduled set: no weekdays and not daily.
func (s DaySet) IsEmpty() bool {
	return !s.daily && s.mask == 0
}

func (s DaySet) IsDaily() bool {
	return s.daily
}

// Has reports whether wd is explicitly in the set or the set is daily.
func (s DaySet) Has(wd time.Weekday) bool {
	return s.daily || s.mask&(1<<uint(wd)) != 0
}

// RunsOn reports whether a scheduled batch meets on d. Unscheduled sets never
// "run" on a particular date.
func (s DaySet) RunsOn(d Date) bool {
	return s.Has(d.Weekday())
}

// CountsAsClassDay is RunsOn for reports: an unscheduled batch counts every
// calendar day.
func (s DaySet) CountsAsClassDay(d Date) bool {
	return s.IsEmpty() || s.RunsOn(d)
}

// Codes returns the selected weekday codes Monday first. Daily sets return
// every code.
func (s DaySet) Codes() []string {
	codes := make([]string, 0, 7)
	for _, code := range WeekdayCodes {
		if s.Has(codeToWeekday[code]) {
			codes = append(codes, code)
		}
	}
	return codes
}

// String is the stored form.
func (s DaySet) String() string {
	if s.daily {
		return DailyCode
	}
	return strings.Join(s.Codes(), ",")
}

// ClockTime is a wall-clock HH:MM. The zero value means "not set".
type ClockTime struct {
	minutes int
	set     bool
}

// ParseClockTime parses HH:MM. An empty string yields an unset time.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockTime{}, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime{minutes: t.Hour()*60 + t.Minute(), set: true}, nil
}

// ClockTimeOf parses stored values; malformed input yields an unset time.
func ClockTimeOf(s string) ClockTime {
	ct, err := ParseClockTime(s)
	if err != nil {
		return ClockTime{}
	}
	return ct
}

// NewClockTime builds a set time from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{minutes: hour*60 + minute, set: true}
}

func (c ClockTime) IsSet() bool {
	return c.set
}

func (c ClockTime) Minutes() int {
	return c.minutes
}

func (c ClockTime) String() string {
	if !c.set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.minutes/60, c.minutes%60)
}

// On returns the instant c falls on day d in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.minutes/60, c.minutes%60, 0, 0, loc)
}

// Schedule is a batch's weekday set and optional time window.
type Schedule struct {
	Days  DaySet
	Start ClockTime
	End   ClockTime
}

// NewSchedule validates form input. When both times are present the end must
// be strictly after the start.
func NewSchedule(days, start, end string) (Schedule, error) {
	set, err := ParseDaySet(days)
	if err != nil {
		return Schedule{}, err
	}
	st, err := ParseClockTime(start)
	if err != nil {
		return Schedule{}, err
	}
	en, err := ParseClockTime(end)
	if err != nil {
		return Schedule{}, err
	}
	if st.IsSet() && en.IsSet() && en.minutes <= st.minutes {
		return Schedule{}, ErrEndBeforeStart
	}
	return Schedule{Days: set, Start: st, End: en}, nil
}

// ScheduleOf builds a schedule from stored columns without validation.
func ScheduleOf(days, start, end string) Schedule {
	return Schedule{Days: DaySetOf(days), Start: ClockTimeOf(start), End: ClockTimeOf(end)}
}

// TimeRange renders "09:00 - 10:30", "09:00" or "".
func (s Schedule) TimeRange() string {
	if !s.Start.IsSet() {
		return ""
	}
	if s.End.IsSet() {
		return s.Start.String() + " - " + s.End.String()
	}
	return s.Start.String()
}

// ClassDays counts the class days of days between from and to inclusive.
func ClassDays(days DaySet, from, to Date) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if days.CountsAsClassDay(d) {
			n++
		}
	}
	return n
}
