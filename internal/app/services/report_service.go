package services

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/export"
)

// BatchDetailDays is the look-back window of the batch detail report,
// today included.
const BatchDetailDays = 30

// ReportService aggregates attendance into summaries
type ReportService struct {
	tutors     TutorStore
	batches    BatchStore
	students   StudentStore
	attendance AttendanceStore
	clock      *domain.Clock
	logger     zerolog.Logger
}

// NewReportService creates a new ReportService
func NewReportService(tutors TutorStore, batches BatchStore, students StudentStore, attendance AttendanceStore, clock *domain.Clock, logger zerolog.Logger) *ReportService {
	return &ReportService{
		tutors:     tutors,
		batches:    batches,
		students:   students,
		attendance: attendance,
		clock:      clock,
		logger:     logger,
	}
}

// BatchSummary is one row of the month-to-date batch report.
type BatchSummary struct {
	Batch        *models.Batch
	StudentCount int
	Expected     int
	Attended     int
	Percentage   int
	PresentToday int
	AbsentToday  int
}

// StudentSummary is one row of the month-to-date student report.
type StudentSummary struct {
	Student    *models.Student
	ClassDays  int
	Attended   int
	Percentage int
}

// Overview is the reports landing page.
type Overview struct {
	Month    domain.Date
	Today    domain.Date
	Batches  []BatchSummary
	Students []StudentSummary
}

// Overview computes month-to-date summaries for every batch with students and
// every student. Percentages are against expected class days.
func (s *ReportService) Overview(ctx context.Context, tutorID int64) (*Overview, error) {
	today := s.clock.Today()
	first := today.FirstOfMonth()

	batches, err := s.batches.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error listing batches: %w", err)
	}
	students, err := s.students.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	rows, err := s.attendance.Range(ctx, tutorID, first, today)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}

	attended := make(map[int64]int)
	todayStatus := make(map[int64]domain.Status)
	for _, r := range rows {
		if r.Status.Attended() {
			attended[r.StudentID]++
		}
		if r.Date == today {
			todayStatus[r.StudentID] = r.Status
		}
	}

	schedules := make(map[int64]domain.Schedule, len(batches))
	roster := make(map[int64][]*models.Student)
	for _, b := range batches {
		schedules[b.ID] = b.Schedule()
	}

	out := &Overview{Month: first, Today: today}
	for _, st := range students {
		roster[st.BatchID] = append(roster[st.BatchID], st)

		days := domain.ClassDays(schedules[st.BatchID].Days, first, today)
		out.Students = append(out.Students, StudentSummary{
			Student:    st,
			ClassDays:  days,
			Attended:   attended[st.ID],
			Percentage: domain.Percentage(attended[st.ID], days),
		})
	}

	for _, b := range batches {
		members := roster[b.ID]
		if len(members) == 0 {
			continue
		}
		sum := BatchSummary{
			Batch:        b,
			StudentCount: len(members),
			Expected:     domain.ExpectedSessions(len(members), schedules[b.ID].Days, first, today, today),
		}
		for _, st := range members {
			sum.Attended += attended[st.ID]
			if status, ok := todayStatus[st.ID]; ok {
				if status.Attended() {
					sum.PresentToday++
				} else {
					sum.AbsentToday++
				}
			}
		}
		sum.Percentage = domain.Percentage(sum.Attended, sum.Expected)
		out.Batches = append(out.Batches, sum)
	}
	return out, nil
}

// StudentWindow is one student's line of the batch detail report.
type StudentWindow struct {
	Student    *models.Student
	Tally      domain.Tally
	Percentage int
	// Selected is the status on the selected date, nil without a record.
	Selected *domain.Status
}

// BatchReport is the batch detail page.
type BatchReport struct {
	Batch    *models.Batch
	From     domain.Date
	Today    domain.Date
	Selected domain.Date
	// Dates lists the month's days up to today for the date picker.
	Dates    []domain.Date
	Students []StudentWindow

	Expected   int
	Attended   int
	Percentage int

	TotalPresent int
	TotalAbsent  int
	TotalLate    int
}

// BatchReport builds the last-30-day detail of a batch. Student percentages
// are over recorded days; the batch percentage is against expected sessions.
// The selected date is clamped into the current month.
func (s *ReportService) BatchReport(ctx context.Context, tutorID, batchID int64, selected domain.Date) (*BatchReport, error) {
	today := s.clock.Today()
	from := today.AddDays(-(BatchDetailDays - 1))

	batch, err := s.getBatch(ctx, tutorID, batchID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListByBatch(ctx, tutorID, batchID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	selected = domain.ValidateReportDate(selected, today)
	rangeFrom := from
	if selected.Before(rangeFrom) {
		rangeFrom = selected
	}

	ids := make([]int64, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	perStudent := make(map[int64]map[domain.Date]domain.Status, len(students))
	if len(ids) > 0 {
		rows, err := s.attendance.Range(ctx, tutorID, rangeFrom, today, ids...)
		if err != nil {
			return nil, fmt.Errorf("error loading attendance: %w", err)
		}
		for _, r := range rows {
			if perStudent[r.StudentID] == nil {
				perStudent[r.StudentID] = make(map[domain.Date]domain.Status)
			}
			perStudent[r.StudentID][r.Date] = r.Status
		}
	}

	report := &BatchReport{
		Batch:    batch,
		From:     from,
		Today:    today,
		Selected: selected,
	}
	for d := today.FirstOfMonth(); !d.After(today); d = d.AddDays(1) {
		report.Dates = append(report.Dates, d)
	}

	for _, st := range students {
		records := perStudent[st.ID]
		tally := domain.TallyRange(records, from, today)
		line := StudentWindow{Student: st, Tally: tally, Percentage: tally.Percentage()}
		if status, ok := records[selected]; ok {
			status := status
			line.Selected = &status
			switch status {
			case domain.StatusPresent:
				report.TotalPresent++
			case domain.StatusLate:
				report.TotalLate++
			case domain.StatusAbsent:
				report.TotalAbsent++
			}
		}
		report.Attended += tally.Attended()
		report.Students = append(report.Students, line)
	}

	batch.StudentCount = len(students)
	report.Expected = domain.ExpectedSessions(len(students), batch.Schedule().Days, from, today, today)
	report.Percentage = domain.Percentage(report.Attended, report.Expected)
	return report, nil
}

// StudentReport is a student's month grid.
type StudentReport struct {
	Student *models.Student
	Grid    domain.MonthGrid
}

// StudentReport builds the current-month grid of a tutor's student.
func (s *ReportService) StudentReport(ctx context.Context, tutorID, studentID int64) (*StudentReport, error) {
	st, err := s.students.GetByID(ctx, tutorID, studentID)
	if err != nil {
		return nil, studentLookupError(err)
	}
	return s.monthGrid(ctx, st)
}

// MonthGrid builds the current-month grid of any student, for the portal.
func (s *ReportService) MonthGrid(ctx context.Context, st *models.Student) (*StudentReport, error) {
	return s.monthGrid(ctx, st)
}

func (s *ReportService) monthGrid(ctx context.Context, st *models.Student) (*StudentReport, error) {
	today := s.clock.Today()
	records, err := s.attendance.ForStudent(ctx, st.ID, today.FirstOfMonth(), today)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}
	return &StudentReport{Student: st, Grid: domain.BuildMonthGrid(today, records)}, nil
}

// WriteStudentPDF renders the month grid of a tutor's student as a PDF.
func (s *ReportService) WriteStudentPDF(ctx context.Context, tutorID, studentID int64, w io.Writer) error {
	report, err := s.StudentReport(ctx, tutorID, studentID)
	if err != nil {
		return err
	}
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return fmt.Errorf("error loading tutor: %w", err)
	}
	return export.WriteAttendancePDF(w, export.AttendanceSheet{
		TuitionName: tutor.TuitionName,
		StudentName: report.Student.Name,
		BatchName:   report.Student.BatchName,
		Phone:       report.Student.Phone,
		Grid:        report.Grid,
	})
}

func (s *ReportService) getBatch(ctx context.Context, tutorID, batchID int64) (*models.Batch, error) {
	b, err := s.batches.GetByID(ctx, tutorID, batchID)
	if err != nil {
		return nil, batchLookupError(err)
	}
	return b, nil
}
