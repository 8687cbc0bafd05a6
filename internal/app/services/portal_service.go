package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/domain"
)

const (
	// PortalStatsDays is the look-back of the portal statistics, today included.
	PortalStatsDays           = 30
	portalRecentHomeworkLimit = 10
)

// PortalService backs the read-only student portal
type PortalService struct {
	students   StudentStore
	batches    BatchStore
	attendance AttendanceStore
	homework   HomeworkStore
	clock      *domain.Clock
	logger     zerolog.Logger
}

// NewPortalService creates a new PortalService
func NewPortalService(students StudentStore, batches BatchStore, attendance AttendanceStore, homework HomeworkStore, clock *domain.Clock, logger zerolog.Logger) *PortalService {
	return &PortalService{
		students:   students,
		batches:    batches,
		attendance: attendance,
		homework:   homework,
		clock:      clock,
		logger:     logger,
	}
}

// Student reloads the signed-in student. A student deleted since login reads
// as not found, which ends the portal session.
func (s *PortalService) Student(ctx context.Context, tutorID, studentID int64) (*models.Student, error) {
	st, err := s.students.GetByID(ctx, tutorID, studentID)
	if err != nil {
		return nil, studentLookupError(err)
	}
	return st, nil
}

// PortalStats summarises the last 30 days over recorded days.
type PortalStats struct {
	Tally      domain.Tally
	Percentage int
}

// StudentDashboard is the portal landing page.
type StudentDashboard struct {
	Student        *models.Student
	Batch          *models.Batch
	Now            time.Time
	TodayStatus    *domain.Status
	Stats          PortalStats
	RecentHomework []*models.Homework
	Upcoming       []domain.UpcomingClass
}

// Dashboard builds the portal landing page of st.
func (s *PortalService) Dashboard(ctx context.Context, st *models.Student) (*StudentDashboard, error) {
	now := s.clock.Now()
	today := domain.DateOf(now)
	from := today.AddDays(-(PortalStatsDays - 1))

	records, err := s.attendance.ForStudent(ctx, st.ID, from, today)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}
	homework, err := s.homework.VisibleToStudent(ctx, st.UserID, st.BatchID, st.ID, domain.HomeworkCutoff(today), portalRecentHomeworkLimit)
	if err != nil {
		return nil, fmt.Errorf("error loading homework: %w", err)
	}
	batch, err := s.batch(ctx, st)
	if err != nil {
		return nil, err
	}

	tally := domain.TallyRange(records, from, today)
	d := &StudentDashboard{
		Student:        st,
		Batch:          batch,
		Now:            now,
		Stats:          PortalStats{Tally: tally, Percentage: tally.Percentage()},
		RecentHomework: homework,
	}
	if status, ok := records[today]; ok {
		d.TodayStatus = &status
	}
	if batch != nil {
		d.Upcoming = domain.NextClasses(batch.Name, batch.Schedule(), now)
	}
	return d, nil
}

// batch returns the student's batch, or nil if it vanished.
func (s *PortalService) batch(ctx context.Context, st *models.Student) (*models.Batch, error) {
	if st.BatchID == 0 {
		return nil, nil
	}
	b, err := s.batches.GetByID(ctx, st.UserID, st.BatchID)
	if err != nil {
		if err = batchLookupError(err); isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// HomeworkReminders answers the portal homework poll.
func (s *PortalService) HomeworkReminders(ctx context.Context, st *models.Student) (*dto.StudentHomeworkReminders, error) {
	now := s.clock.Now()
	today := domain.DateOf(now)

	list, err := s.homework.VisibleToStudent(ctx, st.UserID, st.BatchID, st.ID, domain.HomeworkCutoff(today), 0)
	if err != nil {
		return nil, fmt.Errorf("error loading homework: %w", err)
	}
	batch, err := s.batch(ctx, st)
	if err != nil {
		return nil, err
	}

	resp := &dto.StudentHomeworkReminders{
		NewHomework: []dto.HomeworkBrief{},
		DueSoon:     []dto.HomeworkBrief{},
		DueVerySoon: []dto.HomeworkBrief{},
	}
	for _, h := range list {
		due := h.DueDate()
		if domain.IsNewHomework(h.CreatedAt, now) {
			resp.NewHomework = append(resp.NewHomework, homeworkBrief(h))
		}
		if domain.IsDueTomorrow(due, today) {
			resp.DueSoon = append(resp.DueSoon, homeworkBrief(h))
		}
		start := domain.ClockTimeOf(h.BatchStartTime)
		if !start.IsSet() && batch != nil {
			start = batch.Schedule().Start
		}
		if domain.IsDueVerySoon(due, start, now) {
			resp.DueVerySoon = append(resp.DueVerySoon, homeworkBrief(h))
		}
	}
	return resp, nil
}

// AttendanceNotifications answers the portal attendance poll. shownToday is
// true when this session already showed today's notification.
func (s *PortalService) AttendanceNotifications(ctx context.Context, st *models.Student, shownToday bool) (*dto.AttendanceNotificationsResponse, error) {
	now := s.clock.Now()
	today := domain.DateOf(now)

	record, err := s.attendance.GetForStudentOn(ctx, st.ID, today)
	if err != nil {
		return nil, fmt.Errorf("error loading attendance: %w", err)
	}
	batch, err := s.batch(ctx, st)
	if err != nil {
		return nil, err
	}
	var start domain.ClockTime
	if batch != nil {
		start = batch.Schedule().Start
	}

	resp := &dto.AttendanceNotificationsResponse{
		Notifications: []dto.AttendanceNotification{},
		ShouldPoll:    domain.ShouldPollAttendance(record != nil, start, now),
	}
	if record != nil && !shownToday {
		resp.Notifications = append(resp.Notifications, dto.AttendanceNotification{
			Type:    "attendance_marked",
			Message: fmt.Sprintf("Your attendance has been marked as %s for today", record.Status),
			Date:    today.String(),
			Status:  int(record.Status),
		})
	}
	return resp, nil
}
