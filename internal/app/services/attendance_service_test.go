package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/notify"
)

func (f *fixture) attendanceService(clock *domain.Clock) *AttendanceService {
	return NewAttendanceService(f.students(), f.batches(), f.attendance(), f.notifier, db.RetryPolicy{Attempts: 1}, clock, f.metrics, f.logger)
}

func markRequest(day string, entries ...domain.MarkEntry) dto.SaveAttendanceRequest {
	return dto.SaveAttendanceRequest{Date: day, Entries: entries}
}

func TestSaveAttendanceWaitsForBatchStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	morning := f.db.addBatch(tutor.ID, "Morning", "mo,tu,we,th,fr", "09:00", "")
	asha := f.db.addStudent(tutor.ID, morning.ID, "Asha", "9000000001")
	req := markRequest("2024-03-04", domain.MarkEntry{StudentID: asha.ID, Status: domain.StatusPresent})

	saved, err := f.attendanceService(at(8, 0)).Save(ctx, tutor.ID, req)
	require.Error(t, err)
	assert.Equal(t, 0, saved)
	assert.ErrorIs(t, err, ErrAttendanceLocked)
	assert.Equal(t, "Batch has not started yet", apperrors.Message(err, ""))

	svc := f.attendanceService(at(9, 1))
	saved, err = svc.Save(ctx, tutor.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	saved, err = svc.Save(ctx, tutor.ID, req)
	require.Error(t, err)
	assert.Equal(t, 0, saved)
	assert.Equal(t, "Attendance already marked for this date", apperrors.Message(err, ""))

	status, ok := f.db.attendance[asha.ID][date(t, "2024-03-04")]
	require.True(t, ok)
	assert.Equal(t, domain.StatusPresent, status)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AttendanceSaved))
}

func TestSaveAttendanceRejectsDatesOutsideWindow(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Evening", "", "", "")
	st := f.db.addStudent(tutor.ID, b.ID, "Ravi", "9000000002")
	svc := f.attendanceService(at(10, 0))

	for _, day := range []string{"2024-03-02", "2024-03-05", "not-a-date"} {
		_, err := svc.Save(context.Background(), tutor.ID, markRequest(day, domain.MarkEntry{StudentID: st.ID, Status: domain.StatusPresent}))
		require.Error(t, err, day)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest, day)
	}
	assert.Empty(t, f.db.attendance)
}

func TestSaveAttendanceYesterdayIgnoresStartTime(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "mo,tu,we,th,fr,sa,su", "09:00", "10:00")
	st := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")

	saved, err := f.attendanceService(at(7, 0)).Save(context.Background(), tutor.ID,
		markRequest("2024-03-03", domain.MarkEntry{StudentID: st.ID, Status: domain.StatusLate}))
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}

func TestSaveAttendanceSkipsOtherTutorsStudents(t *testing.T) {
	f := newFixture(t)
	mine := f.db.addTutor("9876543210", "Bright Minds")
	other := f.db.addTutor("9876543211", "Other Classes")
	b1 := f.db.addBatch(mine.ID, "Morning", "", "", "")
	b2 := f.db.addBatch(other.ID, "Other", "", "", "")
	asha := f.db.addStudent(mine.ID, b1.ID, "Asha", "9000000001")
	stranger := f.db.addStudent(other.ID, b2.ID, "Stranger", "9000000009")

	saved, err := f.attendanceService(at(10, 0)).Save(context.Background(), mine.ID, markRequest("2024-03-04",
		domain.MarkEntry{StudentID: asha.ID, Status: domain.StatusAbsent},
		domain.MarkEntry{StudentID: stranger.ID, Status: domain.StatusPresent},
		domain.MarkEntry{StudentID: asha.ID, Status: domain.StatusPresent},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.Equal(t, domain.StatusAbsent, f.db.attendance[asha.ID][date(t, "2024-03-04")])
	assert.Empty(t, f.db.attendance[stranger.ID])
}

func TestSaveAttendanceNotifiesStudents(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")

	_, err := f.attendanceService(at(10, 0)).Save(context.Background(), tutor.ID,
		markRequest("2024-03-04", domain.MarkEntry{StudentID: asha.ID, Status: domain.StatusLate}))
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, notify.Recipient{Kind: notify.StudentRecipient, ID: asha.ID}, n.Recipient)
	assert.Equal(t, notify.CategoryAttendance, n.Category)
	assert.Contains(t, n.Body, "Late")
	assert.NotNil(t, f.db.students[asha.ID].LastAttendanceNotification)
}

func TestAttendancePageFlagsSavedBatches(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	morning := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	evening := f.db.addBatch(tutor.ID, "Evening", "", "", "")
	asha := f.db.addStudent(tutor.ID, morning.ID, "Asha", "9000000001")
	f.db.addStudent(tutor.ID, evening.ID, "Ravi", "9000000002")
	f.db.addStudent(tutor.ID, evening.ID, "Meena", "9000000003")
	today := date(t, "2024-03-04")
	f.db.mark(asha.ID, today, domain.StatusPresent)

	page, err := f.attendanceService(at(10, 0)).Page(context.Background(), tutor.ID, domain.Date{}, 0)
	require.NoError(t, err)
	assert.Equal(t, today, page.Date)
	assert.True(t, page.Editable)
	require.Len(t, page.Groups, 2)
	assert.True(t, page.Groups[0].Saved)
	assert.True(t, page.Groups[0].Students[0].Locked())
	assert.False(t, page.Groups[1].Saved)

	page, err = f.attendanceService(at(10, 0)).Page(context.Background(), tutor.ID, date(t, "2024-02-20"), evening.ID)
	require.NoError(t, err)
	assert.False(t, page.Editable)
	require.Len(t, page.Groups, 1)
	assert.Equal(t, evening.ID, page.Groups[0].Batch.ID)
}
