package domain

import (
	"sort"
	"time"
)

// Batch slot windows, in minutes from now until today's start time.
const (
	SlotLookbackMinutes  = 15
	SlotLookaheadMinutes = 240

	ReminderFromMinutes = 14
	ReminderToMinutes   = 16

	// Homework reminders fire 9 to 11 minutes after the start.
	HomeworkReminderFromMinutes = -11
	HomeworkReminderToMinutes   = -9
)

// BatchSlot is a batch placed on today's timeline.
type BatchSlot struct {
	BatchID      int64
	Name         string
	Schedule     Schedule
	MinutesUntil float64
}

// Current is -15..0 minutes: started within the last quarter hour.
func (s BatchSlot) Current() bool {
	return s.MinutesUntil <= 0 && s.MinutesUntil >= -SlotLookbackMinutes
}

// Upcoming is any slot still ahead.
func (s BatchSlot) Upcoming() bool {
	return s.MinutesUntil > 0
}

// DueForReminder is the 14..16 minute pre-start window.
func (s BatchSlot) DueForReminder() bool {
	return s.MinutesUntil >= ReminderFromMinutes && s.MinutesUntil <= ReminderToMinutes
}

// DueForHomeworkReminder is the window shortly after the start.
func (s BatchSlot) DueForHomeworkReminder() bool {
	return s.MinutesUntil >= HomeworkReminderFromMinutes && s.MinutesUntil <= HomeworkReminderToMinutes
}

// PlaceSlot returns the batch's slot for today when it runs today, has a start
// time, and starts within -15..+240 minutes of now.
func PlaceSlot(batchID int64, name string, s Schedule, now time.Time) (BatchSlot, bool) {
	today := DateOf(now)
	if !s.Start.IsSet() || s.Days.IsEmpty() || !s.Days.RunsOn(today) {
		return BatchSlot{}, false
	}
	diff := s.Start.On(today, now.Location()).Sub(now).Minutes()
	if diff < -SlotLookbackMinutes || diff > SlotLookaheadMinutes {
		return BatchSlot{}, false
	}
	return BatchSlot{BatchID: batchID, Name: name, Schedule: s, MinutesUntil: diff}, true
}

// SortSlots orders slots by minutes until start.
func SortSlots(slots []BatchSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].MinutesUntil < slots[j].MinutesUntil
	})
}

// HomeworkCutoff is the oldest due date still visible: due dates before it
// are expired.
func HomeworkCutoff(today Date) Date {
	return today.AddDays(-1)
}

// HomeworkExpired reports whether a row with this due date is purged.
func HomeworkExpired(due, today Date) bool {
	return !due.IsZero() && due.Before(HomeworkCutoff(today))
}

// NewHomeworkWindow is how recently homework must have been created to be
// announced as new.
const NewHomeworkWindow = 5 * time.Minute

func IsNewHomework(createdAt, now time.Time) bool {
	return now.Sub(createdAt) <= NewHomeworkWindow
}

func IsDueTomorrow(due, today Date) bool {
	return due == today.AddDays(1)
}

// IsDueVerySoon is true 25 to 35 minutes before the batch start on the due
// date, for homework due today or tomorrow.
func IsDueVerySoon(due Date, batchStart ClockTime, now time.Time) bool {
	today := DateOf(now)
	if !batchStart.IsSet() || (due != today && due != today.AddDays(1)) {
		return false
	}
	diff := batchStart.On(due, now.Location()).Sub(now)
	return diff >= 25*time.Minute && diff <= 35*time.Minute
}

// UpcomingClass is one future meeting of a batch.
type UpcomingClass struct {
	BatchName string
	At        time.Time
	Schedule  Schedule
}

// DateDisplay is "Today", "Tomorrow", or "Monday, January 2".
func (u UpcomingClass) DateDisplay(now time.Time) string {
	d := DateOf(u.At)
	today := DateOf(now)
	switch d {
	case today:
		return "Today"
	case today.AddDays(1):
		return "Tomorrow"
	default:
		return u.At.Format("Monday, January 2")
	}
}

const (
	upcomingHorizonDays = 14
	upcomingMaxClasses  = 5
)

// NextClasses lists up to five meetings in the next 14 days that start
// strictly after now. Batches need both a start time and a weekday set.
func NextClasses(batchName string, s Schedule, now time.Time) []UpcomingClass {
	if !s.Start.IsSet() || s.Days.IsEmpty() {
		return nil
	}
	today := DateOf(now)
	var out []UpcomingClass
	for i := 0; i < upcomingHorizonDays && len(out) < upcomingMaxClasses; i++ {
		d := today.AddDays(i)
		if !s.Days.RunsOn(d) {
			continue
		}
		at := s.Start.On(d, now.Location())
		if at.After(now) {
			out = append(out, UpcomingClass{BatchName: batchName, At: at, Schedule: s})
		}
	}
	return out
}

// Polling hours for students whose batch start has not passed or is unset.
const (
	pollFromHour = 8
	pollToHour   = 22
)

// ShouldPollAttendance tells the student page whether to keep asking for
// today's record: only while none exists, and either the batch start has passed
// or it is daytime.
func ShouldPollAttendance(recordExists bool, batchStart ClockTime, now time.Time) bool {
	if recordExists {
		return false
	}
	if batchStart.IsSet() && !now.Before(batchStart.On(DateOf(now), now.Location())) {
		return true
	}
	return now.Hour() >= pollFromHour && now.Hour() < pollToHour
}
