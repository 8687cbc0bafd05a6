package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

func (f *fixture) portalService(clock *domain.Clock) *PortalService {
	return NewPortalService(f.students(), f.batches(), f.attendance(), f.homework(), clock, f.logger)
}

func TestPortalDashboard(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "mo,we,fr", "10:15", "11:15")
	other := f.db.addBatch(tutor.ID, "Evening", "", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusPresent)
	f.db.mark(asha.ID, date(t, "2024-03-01"), domain.StatusAbsent)
	f.db.mark(asha.ID, date(t, "2024-02-28"), domain.StatusLate)
	f.db.mark(asha.ID, date(t, "2024-01-15"), domain.StatusPresent)
	f.db.addHomework(&models.Homework{UserID: tutor.ID, BatchID: helpers.OptionalID(b.ID), Title: "Mine", SubmissionDate: date(t, "2024-03-05").UTC()})
	f.db.addHomework(&models.Homework{UserID: tutor.ID, BatchID: helpers.OptionalID(other.ID), Title: "Theirs", SubmissionDate: date(t, "2024-03-05").UTC()})
	f.db.addHomework(&models.Homework{UserID: tutor.ID, StudentID: helpers.OptionalID(asha.ID), Title: "Personal", SubmissionDate: date(t, "2024-03-05").UTC()})
	f.db.addHomework(&models.Homework{UserID: tutor.ID, Title: "Unscoped", SubmissionDate: date(t, "2024-03-05").UTC()})

	d, err := f.portalService(at(9, 45)).Dashboard(context.Background(), asha)
	require.NoError(t, err)
	require.NotNil(t, d.TodayStatus)
	assert.Equal(t, domain.StatusPresent, *d.TodayStatus)
	assert.Equal(t, 3, d.Stats.Tally.Recorded())
	assert.Equal(t, 67, d.Stats.Percentage)

	titles := make([]string, 0, len(d.RecentHomework))
	for _, h := range d.RecentHomework {
		titles = append(titles, h.Title)
	}
	assert.ElementsMatch(t, []string{"Mine", "Personal"}, titles)

	require.Len(t, d.Upcoming, 5)
	assert.Equal(t, "Today", d.Upcoming[0].DateDisplay(d.Now))
	assert.Equal(t, time.Wednesday, d.Upcoming[1].At.Weekday())
}

func TestPortalHomeworkReminders(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "mo", "10:15", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	now := at(9, 45).Now()
	f.db.addHomework(&models.Homework{UserID: tutor.ID, BatchID: helpers.OptionalID(b.ID), Title: "Today", SubmissionDate: date(t, "2024-03-04").UTC(), CreatedAt: now.Add(-time.Hour)})
	f.db.addHomework(&models.Homework{UserID: tutor.ID, StudentID: helpers.OptionalID(asha.ID), Title: "Tomorrow", SubmissionDate: date(t, "2024-03-05").UTC(), CreatedAt: now.Add(-2 * time.Minute)})

	resp, err := f.portalService(at(9, 45)).HomeworkReminders(context.Background(), asha)
	require.NoError(t, err)
	require.Len(t, resp.NewHomework, 1)
	assert.Equal(t, "Tomorrow", resp.NewHomework[0].Title)
	require.Len(t, resp.DueSoon, 1)
	assert.Equal(t, "Tomorrow", resp.DueSoon[0].Title)
	require.Len(t, resp.DueVerySoon, 1)
	assert.Equal(t, "Today", resp.DueVerySoon[0].Title)
}

func TestPortalAttendanceNotificationsOncePerDay(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "mo", "09:00", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	svc := f.portalService(at(9, 30))

	resp, err := svc.AttendanceNotifications(context.Background(), asha, false)
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)
	assert.True(t, resp.ShouldPoll)

	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusLate)
	resp, err = svc.AttendanceNotifications(context.Background(), asha, false)
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "attendance_marked", resp.Notifications[0].Type)
	assert.Equal(t, "Your attendance has been marked as Late for today", resp.Notifications[0].Message)
	assert.False(t, resp.ShouldPoll)

	resp, err = svc.AttendanceNotifications(context.Background(), asha, true)
	require.NoError(t, err)
	assert.Empty(t, resp.Notifications)
}

func TestPortalStudentReloadsDeletedStudent(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	svc := f.portalService(at(9, 30))

	st, err := svc.Student(context.Background(), tutor.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", st.Name)

	delete(f.db.students, asha.ID)
	_, err = svc.Student(context.Background(), tutor.ID, asha.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
