package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/domain"
)

func (f *fixture) reportService(clock *domain.Clock) *ReportService {
	return NewReportService(f.tutors(), f.batches(), f.students(), f.attendance(), clock, f.logger)
}

func TestBatchReportPercentageAgainstClassDays(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Monday Maths", "mo", "09:00", "10:00")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")

	// five Mondays fall inside the 30-day window ending Monday 2024-03-04
	f.db.mark(asha.ID, date(t, "2024-02-05"), domain.StatusPresent)
	f.db.mark(asha.ID, date(t, "2024-02-12"), domain.StatusAbsent)
	f.db.mark(asha.ID, date(t, "2024-02-19"), domain.StatusPresent)
	f.db.mark(asha.ID, date(t, "2024-02-26"), domain.StatusAbsent)
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusLate)

	report, err := f.reportService(at(12, 0)).BatchReport(context.Background(), tutor.ID, b.ID, date(t, "2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, 5, report.Expected)
	assert.Equal(t, 3, report.Attended)
	assert.Equal(t, 60, report.Percentage)
	require.Len(t, report.Students, 1)
	assert.Equal(t, 60, report.Students[0].Percentage)
	assert.Equal(t, 1, report.TotalLate)
	assert.Equal(t, date(t, "2024-02-04"), report.From)
	assert.Len(t, report.Dates, 4)
}

func TestBatchReportStudentPercentageOverRecordedDays(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Monday Maths", "mo", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	f.db.mark(asha.ID, date(t, "2024-02-26"), domain.StatusPresent)
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusPresent)

	report, err := f.reportService(at(12, 0)).BatchReport(context.Background(), tutor.ID, b.ID, domain.Date{})
	require.NoError(t, err)
	assert.Equal(t, 100, report.Students[0].Percentage)
	assert.Equal(t, 40, report.Percentage)
	assert.Equal(t, date(t, "2024-03-04"), report.Selected)
	assert.Equal(t, 1, report.TotalPresent)
}

func TestBatchReportUnknownBatch(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	other := f.db.addTutor("9876543211", "Other")
	b := f.db.addBatch(other.ID, "Theirs", "", "", "")

	_, err := f.reportService(at(12, 0)).BatchReport(context.Background(), tutor.ID, b.ID, domain.Date{})
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestOverviewSkipsEmptyBatches(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	daily := f.db.addBatch(tutor.ID, "Daily", "", "", "")
	f.db.addBatch(tutor.ID, "Empty", "mo", "", "")
	asha := f.db.addStudent(tutor.ID, daily.ID, "Asha", "9000000001")
	f.db.mark(asha.ID, date(t, "2024-03-01"), domain.StatusPresent)
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusAbsent)
	f.db.mark(asha.ID, date(t, "2024-02-28"), domain.StatusPresent)

	overview, err := f.reportService(at(12, 0)).Overview(context.Background(), tutor.ID)
	require.NoError(t, err)
	require.Len(t, overview.Batches, 1)
	sum := overview.Batches[0]
	assert.Equal(t, "Daily", sum.Batch.Name)
	assert.Equal(t, 4, sum.Expected)
	assert.Equal(t, 1, sum.Attended)
	assert.Equal(t, 25, sum.Percentage)
	assert.Equal(t, 0, sum.PresentToday)
	assert.Equal(t, 1, sum.AbsentToday)

	require.Len(t, overview.Students, 1)
	assert.Equal(t, 4, overview.Students[0].ClassDays)
	assert.Equal(t, 25, overview.Students[0].Percentage)
}

func TestStudentReportMonthGridAndPDF(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Daily", "", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	f.db.mark(asha.ID, date(t, "2024-03-02"), domain.StatusPresent)
	svc := f.reportService(at(12, 0))

	report, err := svc.StudentReport(context.Background(), tutor.ID, asha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Grid.Tally.Present)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteStudentPDF(context.Background(), tutor.ID, asha.ID, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	_, err = svc.StudentReport(context.Background(), tutor.ID+100, asha.ID)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
