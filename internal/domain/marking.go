package domain

import (
	"errors"
	"time"
)

// Status is the tri-state attendance code stored per student per day.
type Status int

const (
	StatusAbsent  Status = 0
	StatusPresent Status = 1
	StatusLate    Status = 2
)

func (s Status) Valid() bool {
	return s >= StatusAbsent && s <= StatusLate
}

// Attended reports present or late.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "Absent"
	case StatusPresent:
		return "Present"
	case StatusLate:
		return "Late"
	default:
		return "Unknown"
	}
}

var (
	ErrDateNotMarkable = errors.New("attendance can only be marked for today or yesterday")
	ErrAlreadyMarked   = errors.New("attendance already marked for this date")
	ErrBatchNotStarted = errors.New("batch has not started yet")
	ErrNothingToSave   = errors.New("no attendance entries to save")
)

// CheckMarkableDate accepts today and yesterday only.
func CheckMarkableDate(date, today Date) error {
	if date == today || date == today.AddDays(-1) {
		return nil
	}
	return ErrDateNotMarkable
}

// CheckBatchStarted gates marking for today on the batch start time. Yesterday
// is always open, as are batches without a start time or without a weekday set.
func CheckBatchStarted(s Schedule, date Date, now time.Time) error {
	if date != DateOf(now) || !s.Start.IsSet() || s.Days.IsEmpty() {
		return nil
	}
	if now.Before(s.Start.On(date, now.Location())) {
		return ErrBatchNotStarted
	}
	return nil
}

// MarkEntry is one requested (student, status) pair.
type MarkEntry struct {
	StudentID int64  `json:"student_id"`
	Status    Status `json:"status"`
}

// RosterEntry is what the planner needs to know about a student.
type RosterEntry struct {
	StudentID int64
	BatchID   int64
	Schedule  Schedule
	// Marked is true when a row already exists for the target date.
	Marked bool
}

// SkipReason explains why an entry was not inserted.
type SkipReason string

const (
	SkipInvalidStatus    SkipReason = "invalid_status"
	SkipNotOwned         SkipReason = "not_owned"
	SkipAlreadyMarked    SkipReason = "already_marked"
	SkipBatchNotStarted  SkipReason = "batch_not_started"
	SkipDuplicateRequest SkipReason = "duplicate_entry"
)

// Skipped is an entry the planner rejected.
type Skipped struct {
	StudentID int64
	Reason    SkipReason
}

// MarkPlan splits a request into rows to insert and skipped entries.
type MarkPlan struct {
	Date    Date
	Accept  []MarkEntry
	Skipped []Skipped
}

// PlanMarking applies the per-entry rules. roster holds the caller's own
// students only; an id absent from it is not owned. Date eligibility is checked
// separately by CheckMarkableDate.
func PlanMarking(date Date, now time.Time, entries []MarkEntry, roster map[int64]RosterEntry) MarkPlan {
	plan := MarkPlan{Date: date}
	seen := make(map[int64]struct{}, len(entries))

	for _, e := range entries {
		skip := func(r SkipReason) {
			plan.Skipped = append(plan.Skipped, Skipped{StudentID: e.StudentID, Reason: r})
		}

		if !e.Status.Valid() {
			skip(SkipInvalidStatus)
			continue
		}
		r, ok := roster[e.StudentID]
		if !ok {
			skip(SkipNotOwned)
			continue
		}
		if _, dup := seen[e.StudentID]; dup {
			skip(SkipDuplicateRequest)
			continue
		}
		if r.Marked {
			skip(SkipAlreadyMarked)
			continue
		}
		if err := CheckBatchStarted(r.Schedule, date, now); err != nil {
			skip(SkipBatchNotStarted)
			continue
		}

		seen[e.StudentID] = struct{}{}
		plan.Accept = append(plan.Accept, e)
	}
	return plan
}

// FailureReason describes an all-skipped plan. Already-marked wins over
// not-started so a repeat save reads as a lock.
func FailureReason(skipped []Skipped) error {
	var notStarted bool
	for _, s := range skipped {
		switch s.Reason {
		case SkipAlreadyMarked, SkipDuplicateRequest:
			return ErrAlreadyMarked
		case SkipBatchNotStarted:
			notStarted = true
		}
	}
	if notStarted {
		return ErrBatchNotStarted
	}
	return ErrNothingToSave
}

// FullySaved reports whether every student on a non-empty roster has a row
// for the date. marked holds the ids with a row.
func FullySaved(roster []int64, marked map[int64]bool) bool {
	if len(roster) == 0 {
		return false
	}
	for _, id := range roster {
		if !marked[id] {
			return false
		}
	}
	return true
}

// SavedBatches derives the fully-saved flag per batch from roster membership
// (student id -> batch id) and the set of marked students.
func SavedBatches(membership map[int64]int64, marked map[int64]bool) map[int64]bool {
	rosters := make(map[int64][]int64)
	for studentID, batchID := range membership {
		rosters[batchID] = append(rosters[batchID], studentID)
	}
	out := make(map[int64]bool, len(rosters))
	for batchID, ids := range rosters {
		out[batchID] = FullySaved(ids, marked)
	}
	return out
}
