package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/export"
)

// ExportWindowDays is the default look-back of the attendance exports.
const ExportWindowDays = 30

// ExportService builds the downloadable tables
type ExportService struct {
	batches    BatchStore
	students   StudentStore
	attendance AttendanceStore
	clock      *domain.Clock
	logger     zerolog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(batches BatchStore, students StudentStore, attendance AttendanceStore, clock *domain.Clock, logger zerolog.Logger) *ExportService {
	return &ExportService{
		batches:    batches,
		students:   students,
		attendance: attendance,
		clock:      clock,
		logger:     logger,
	}
}

// Export is a table with its download name, without extension.
type Export struct {
	Name  string
	Table export.Table
}

// Students is the roster, name-sorted.
func (s *ExportService) Students(ctx context.Context, tutorID int64) (*Export, error) {
	students, err := s.students.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	t := export.Table{
		Sheet:  "Students",
		Header: []string{"Name", "Phone", "Batch", "Standard", "School", "Address", "Added Date"},
	}
	for _, st := range students {
		t.Append(st.Name, st.Phone, st.BatchName, st.Standard, st.School, st.Address,
			st.CreatedAt.In(s.clock.Location()).Format(domain.DateLayout))
	}
	return &Export{Name: "students_" + s.clock.Today().String(), Table: t}, nil
}

// AttendanceRange resolves the export window. Missing or invalid bounds fall
// back to the last 30 days; reversed bounds are swapped.
func (s *ExportService) AttendanceRange(fromRaw, toRaw string) (domain.Date, domain.Date) {
	today := s.clock.Today()
	from, err := domain.ParseDate(fromRaw)
	if err != nil {
		from = today.AddDays(-ExportWindowDays)
	}
	to, err := domain.ParseDate(toRaw)
	if err != nil {
		to = today
	}
	if to.Before(from) {
		from, to = to, from
	}
	return from, to
}

// Attendance lists rows in [from, to], newest date first then by name.
// batchID 0 exports every batch.
func (s *ExportService) Attendance(ctx context.Context, tutorID int64, from, to domain.Date, batchID int64) (*Export, error) {
	rows, err := s.attendance.ExportRows(ctx, tutorID, from, to, batchID)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}

	t := export.Table{
		Sheet:  "Attendance",
		Header: []string{"Date", "Student Name", "Batch", "Status"},
	}
	for _, r := range rows {
		t.Append(domain.DateOf(r.Date).String(), r.StudentName, r.BatchName, r.Status.String())
	}
	return &Export{Name: fmt.Sprintf("attendance_%s_to_%s", from, to), Table: t}, nil
}

// BatchReport is the 30-day per-student summary of one batch.
func (s *ExportService) BatchReport(ctx context.Context, tutorID, batchID int64) (*Export, error) {
	batch, err := s.batches.GetByID(ctx, tutorID, batchID)
	if err != nil {
		return nil, batchLookupError(err)
	}
	students, err := s.students.ListByBatch(ctx, tutorID, batchID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}

	today := s.clock.Today()
	from := today.AddDays(-ExportWindowDays)

	records := make(map[int64]map[domain.Date]domain.Status, len(students))
	if len(students) > 0 {
		ids := make([]int64, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		rows, err := s.attendance.Range(ctx, tutorID, from, today, ids...)
		if err != nil {
			return nil, fmt.Errorf("error loading attendance: %w", err)
		}
		for _, r := range rows {
			if records[r.StudentID] == nil {
				records[r.StudentID] = make(map[domain.Date]domain.Status)
			}
			records[r.StudentID][r.Date] = r.Status
		}
	}

	t := export.Table{
		Sheet:  "Batch Report",
		Header: []string{"Student Name", "Phone", "Total Days", "Present", "Late", "Absent", "Attendance %"},
	}
	for _, st := range students {
		tally := domain.TallyRange(records[st.ID], from, today)
		t.Append(
			st.Name,
			st.Phone,
			strconv.Itoa(tally.Recorded()),
			strconv.Itoa(tally.Present),
			strconv.Itoa(tally.Late),
			strconv.Itoa(tally.Absent),
			domain.PercentOneDecimal(tally.Attended(), tally.Recorded()),
		)
	}

	name := strings.ReplaceAll(batch.Name, " ", "_")
	return &Export{Name: fmt.Sprintf("batch_report_%s_%s", name, today), Table: t}, nil
}
