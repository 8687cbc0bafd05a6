package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

func (f *fixture) dashboardService(clock *domain.Clock) *DashboardService {
	return NewDashboardService(f.tutors(), f.batches(), f.students(), f.attendance(), f.homework(), clock, f.logger)
}

func TestDashboardPlacesBatches(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	soon := f.db.addBatch(tutor.ID, "Nine", "mo", "09:00", "10:00")
	running := f.db.addBatch(tutor.ID, "Early", "mo", "08:35", "09:30")
	muted := f.db.addBatch(tutor.ID, "Muted", "mo", "09:00", "")
	f.db.batches[muted.ID].NotificationsEnabled = false
	asha := f.db.addStudent(tutor.ID, soon.ID, "Asha", "9000000001")
	f.db.addStudent(tutor.ID, running.ID, "Ravi", "9000000002")
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusLate)

	d, err := f.dashboardService(at(8, 45)).Dashboard(context.Background(), tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.StudentCount)
	assert.Equal(t, 3, d.BatchCount)
	assert.Equal(t, int64(1), d.TodayAttended)
	assert.Equal(t, 50, d.TodayPercentage)
	require.Len(t, d.Current, 1)
	assert.Equal(t, "Early", d.Current[0].Name)
	require.Len(t, d.Upcoming, 1)
	assert.Equal(t, "Nine", d.Upcoming[0].Name)
}

func TestUpcomingReminders(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	soon := f.db.addBatch(tutor.ID, "Nine", "mo", "09:00", "10:00")
	running := f.db.addBatch(tutor.ID, "Early", "mo", "08:35", "09:30")
	f.db.addStudent(tutor.ID, soon.ID, "Asha", "9000000001")
	f.db.addHomework(&models.Homework{UserID: tutor.ID, BatchID: helpers.OptionalID(running.ID), Title: "Worksheet", SubmissionDate: date(t, "2024-03-05").UTC()})

	resp, err := f.dashboardService(at(8, 45)).Upcoming(context.Background(), tutor.ID)
	require.NoError(t, err)
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, "Nine", resp.Reminders[0].Name)
	assert.Equal(t, 15, resp.Reminders[0].MinutesUntil)
	assert.Equal(t, 1, resp.Reminders[0].StudentCount)

	require.Len(t, resp.Current, 1)
	require.Len(t, resp.HomeworkReminders, 1)
	assert.Equal(t, "Early", resp.HomeworkReminders[0].Name)
	require.Len(t, resp.HomeworkReminders[0].Homework, 1)
	assert.Equal(t, "2024-03-05", resp.HomeworkReminders[0].Homework[0].SubmissionDate)
}

func TestUpcomingEmptyListsAreNotNil(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")

	resp, err := f.dashboardService(at(8, 45)).Upcoming(context.Background(), tutor.ID)
	require.NoError(t, err)
	assert.NotNil(t, resp.Reminders)
	assert.NotNil(t, resp.Current)
	assert.NotNil(t, resp.HomeworkReminders)
}
