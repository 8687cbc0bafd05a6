package domain

import (
	"fmt"
	"math"
)

// Percentage is round(attended/expected*100) clamped to [0, 100]. Zero expected
// yields 0. Halves round away from zero.
func Percentage(attended, expected int) int {
	if expected <= 0 || attended <= 0 {
		return 0
	}
	p := int(math.Round(float64(attended) * 100 / float64(expected)))
	if p > 100 {
		return 100
	}
	return p
}

// PercentOneDecimal formats the CSV report column: "66.7%", or "0%" when the
// student has no records.
func PercentOneDecimal(attended, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(attended)*100/float64(total))
}

// ExpectedSessions is enrolled students times scheduled class days in
// [from, to]. to is clamped to today so future days never count.
func ExpectedSessions(enrolled int, days DaySet, from, to, today Date) int {
	if to.After(today) {
		to = today
	}
	return enrolled * ClassDays(days, from, to)
}

// Tally counts statuses over a set of attendance rows.
type Tally struct {
	Present int
	Late    int
	Absent  int
}

func (t *Tally) Add(s Status) {
	switch s {
	case StatusPresent:
		t.Present++
	case StatusLate:
		t.Late++
	case StatusAbsent:
		t.Absent++
	}
}

// Attended is present plus late.
func (t Tally) Attended() int {
	return t.Present + t.Late
}

// Recorded is the number of rows counted.
func (t Tally) Recorded() int {
	return t.Present + t.Late + t.Absent
}

// Percentage is over recorded days only.
func (t Tally) Percentage() int {
	return Percentage(t.Attended(), t.Recorded())
}

// TallyRange tallies the statuses in records that fall within [from, to].
func TallyRange(records map[Date]Status, from, to Date) Tally {
	var t Tally
	for d, s := range records {
		if d.Before(from) || d.After(to) {
			continue
		}
		t.Add(s)
	}
	return t
}

// GridCell is one day of a student's monthly grid. Status is nil for a day
// without a record.
type GridCell struct {
	Date   Date
	Status *Status
}

// Label is the cell text used by templates and the PDF.
func (c GridCell) Label() string {
	if c.Status == nil {
		return "-"
	}
	return c.Status.String()
}

// MonthGrid is a student's month to date.
type MonthGrid struct {
	Month      Date
	Cells      []GridCell
	Tally      Tally
	Percentage int
}

// BuildMonthGrid lays out today's month from day 1 through today. Days with no
// record are excluded from the percentage.
func BuildMonthGrid(today Date, records map[Date]Status) MonthGrid {
	first := today.FirstOfMonth()
	grid := MonthGrid{Month: first}
	for d := first; !d.After(today); d = d.AddDays(1) {
		cell := GridCell{Date: d}
		if s, ok := records[d]; ok {
			s := s
			cell.Status = &s
			grid.Tally.Add(s)
		}
		grid.Cells = append(grid.Cells, cell)
	}
	grid.Percentage = grid.Tally.Percentage()
	return grid
}

// ValidateReportDate clamps a requested batch-report date into the current
// month, never after today. Zero or out-of-range input yields today.
func ValidateReportDate(requested, today Date) Date {
	if requested.IsZero() || requested.After(today) || requested.Before(today.FirstOfMonth()) {
		return today
	}
	return requested
}
