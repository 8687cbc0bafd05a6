package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
	"github.com/yigit/tuitiontrack/internal/pkg/notify"
)

// AttendanceService marks attendance and builds the marking page
type AttendanceService struct {
	students   StudentStore
	batches    BatchStore
	attendance AttendanceStore
	dispatcher notify.Dispatcher
	retry      db.RetryPolicy
	clock      *domain.Clock
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	students StudentStore,
	batches BatchStore,
	attendance AttendanceStore,
	dispatcher notify.Dispatcher,
	retry db.RetryPolicy,
	clock *domain.Clock,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AttendanceService {
	return &AttendanceService{
		students:   students,
		batches:    batches,
		attendance: attendance,
		dispatcher: dispatcher,
		retry:      retry,
		clock:      clock,
		metrics:    m,
		logger:     logger,
	}
}

// StudentMark is one roster line of the marking page. Status is nil when no
// row exists for the date.
type StudentMark struct {
	Student *models.Student
	Status  *domain.Status
}

// Locked reports that the row exists and can no longer be changed.
func (m StudentMark) Locked() bool {
	return m.Status != nil
}

// BatchGroup is one batch section of the marking page.
type BatchGroup struct {
	Batch    *models.Batch
	Students []StudentMark
	Saved    bool
	// Started is false while today's class has not begun.
	Started bool
}

// AttendancePage is the marking page for one date.
type AttendancePage struct {
	Date     domain.Date
	Today    domain.Date
	Editable bool
	BatchID  int64
	Batches  []*models.Batch
	Groups   []BatchGroup
}

// Page groups the tutor's students by batch with their status on date. The
// fully-saved flag is derived from the current roster on every call.
func (s *AttendanceService) Page(ctx context.Context, tutorID int64, date domain.Date, batchID int64) (*AttendancePage, error) {
	now := s.clock.Now()
	today := domain.DateOf(now)
	if date.IsZero() || date.After(today) {
		date = today
	}

	batches, err := s.batches.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error listing batches: %w", err)
	}
	students, err := s.students.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	statuses, err := s.attendance.StatusesOn(ctx, tutorID, date)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}

	membership := make(map[int64]int64, len(students))
	marked := make(map[int64]bool, len(statuses))
	byBatch := make(map[int64][]StudentMark)
	for _, st := range students {
		membership[st.ID] = st.BatchID
		mark := StudentMark{Student: st}
		if status, ok := statuses[st.ID]; ok {
			status := status
			mark.Status = &status
			marked[st.ID] = true
		}
		byBatch[st.BatchID] = append(byBatch[st.BatchID], mark)
	}
	saved := domain.SavedBatches(membership, marked)

	page := &AttendancePage{
		Date:     date,
		Today:    today,
		Editable: domain.CheckMarkableDate(date, today) == nil,
		BatchID:  batchID,
		Batches:  batches,
	}
	for _, b := range batches {
		if batchID > 0 && b.ID != batchID {
			continue
		}
		marks := byBatch[b.ID]
		b.StudentCount = len(marks)
		page.Groups = append(page.Groups, BatchGroup{
			Batch:    b,
			Students: marks,
			Saved:    saved[b.ID],
			Started:  domain.CheckBatchStarted(b.Schedule(), date, now) == nil,
		})
	}
	return page, nil
}

// Save inserts the accepted entries for one date and returns how many rows
// were written. Entries that cannot be saved are skipped; when none is saved
// the reason is returned as an error.
func (s *AttendanceService) Save(ctx context.Context, tutorID int64, req dto.SaveAttendanceRequest) (int, error) {
	now := s.clock.Now()
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return 0, fail(ErrInvalidAttendanceDate, "Invalid date")
	}
	if err := domain.CheckMarkableDate(date, domain.DateOf(now)); err != nil {
		return 0, fail(ErrInvalidAttendanceDate, "Attendance can only be marked for today or yesterday")
	}
	if len(req.Entries) == 0 {
		return 0, fail(ErrAttendanceLocked, "No attendance entries to save")
	}

	roster, err := s.roster(ctx, tutorID, date, req.Entries)
	if err != nil {
		return 0, err
	}

	plan := domain.PlanMarking(date, now, req.Entries, roster)
	for _, sk := range plan.Skipped {
		s.metrics.AttendanceSkipped.WithLabelValues(string(sk.Reason)).Inc()
	}

	var (
		saved    []domain.MarkEntry
		skipped  = plan.Skipped
		firstErr error
	)
	for _, e := range plan.Accept {
		e := e
		err := s.retry.Do(ctx, "attendance.insert", func(ctx context.Context) error {
			return s.attendance.Insert(ctx, tutorID, e.StudentID, date, e.Status)
		})
		switch {
		case err == nil:
			saved = append(saved, e)
		case errors.Is(err, repositories.ErrAttendanceRecorded):
			// A concurrent save won the race for this row.
			skipped = append(skipped, domain.Skipped{StudentID: e.StudentID, Reason: domain.SkipAlreadyMarked})
			s.metrics.AttendanceSkipped.WithLabelValues(string(domain.SkipAlreadyMarked)).Inc()
		default:
			s.logger.Error().Err(err).Int64("studentID", e.StudentID).Str("date", date.String()).Msg("Failed to insert attendance")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(saved) == 0 {
		if firstErr != nil {
			return 0, firstErr
		}
		reason := domain.FailureReason(skipped)
		return 0, fail(ErrAttendanceLocked, reasonMessage(reason))
	}

	s.metrics.AttendanceSaved.Add(float64(len(saved)))
	s.afterSave(ctx, tutorID, date, now, saved)

	s.logger.Info().
		Int64("tutorID", tutorID).
		Str("date", date.String()).
		Int("saved", len(saved)).
		Int("skipped", len(skipped)).
		Msg("Attendance saved")
	return len(saved), nil
}

// roster loads what the planner needs about the requested students. Ids of
// other tutors are absent from the result.
func (s *AttendanceService) roster(ctx context.Context, tutorID int64, date domain.Date, entries []domain.MarkEntry) (map[int64]domain.RosterEntry, error) {
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.StudentID)
	}
	students, err := s.students.ListByIDs(ctx, tutorID, ids)
	if err != nil {
		return nil, fmt.Errorf("error loading students: %w", err)
	}
	batches, err := s.batches.ListAll(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error loading batches: %w", err)
	}
	statuses, err := s.attendance.StatusesOn(ctx, tutorID, date)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}

	schedules := make(map[int64]domain.Schedule, len(batches))
	for _, b := range batches {
		schedules[b.ID] = b.Schedule()
	}

	roster := make(map[int64]domain.RosterEntry, len(students))
	for _, st := range students {
		_, marked := statuses[st.ID]
		roster[st.ID] = domain.RosterEntry{
			StudentID: st.ID,
			BatchID:   st.BatchID,
			Schedule:  schedules[st.BatchID],
			Marked:    marked,
		}
	}
	return roster, nil
}

// afterSave stamps the notification time and tells each student. Failures
// here never fail the save.
func (s *AttendanceService) afterSave(ctx context.Context, tutorID int64, date domain.Date, now time.Time, saved []domain.MarkEntry) {
	ids := make([]int64, 0, len(saved))
	for _, e := range saved {
		ids = append(ids, e.StudentID)
	}
	if err := s.retry.Do(ctx, "students.mark_notified", func(ctx context.Context) error {
		return s.students.MarkNotified(ctx, tutorID, ids, now)
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stamp attendance notification time")
	}

	for _, e := range saved {
		n := notify.Notification{
			Recipient: notify.Recipient{Kind: notify.StudentRecipient, ID: e.StudentID},
			Title:     "Attendance Marked",
			Body:      fmt.Sprintf("Your attendance for %s has been marked as %s", date.Display(), e.Status),
			URL:       "/student/attendance",
			Category:  notify.CategoryAttendance,
			CreatedAt: now,
		}
		result := "ok"
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			result = "error"
			s.logger.Warn().Err(err).Int64("studentID", e.StudentID).Msg("Failed to dispatch attendance notification")
		}
		s.metrics.Notifications.WithLabelValues(notify.CategoryAttendance, result).Inc()
	}
}

func reasonMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyMarked):
		return "Attendance already marked for this date"
	case errors.Is(err, domain.ErrBatchNotStarted):
		return "Batch has not started yet"
	default:
		return "No attendance entries could be saved"
	}
}
