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
	recentHomeworkLimit   = 3
	homeworkReminderLimit = 5
)

// DashboardService builds the tutor dashboard and its reminder poll
type DashboardService struct {
	tutors     TutorStore
	batches    BatchStore
	students   StudentStore
	attendance AttendanceStore
	homework   HomeworkStore
	clock      *domain.Clock
	logger     zerolog.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(tutors TutorStore, batches BatchStore, students StudentStore, attendance AttendanceStore, homework HomeworkStore, clock *domain.Clock, logger zerolog.Logger) *DashboardService {
	return &DashboardService{
		tutors:     tutors,
		batches:    batches,
		students:   students,
		attendance: attendance,
		homework:   homework,
		clock:      clock,
		logger:     logger,
	}
}

// TutorDashboard is the landing page of a tutor.
type TutorDashboard struct {
	Tutor           *models.Tutor
	Now             time.Time
	StudentCount    int
	BatchCount      int
	TodayAttended   int64
	TodayPercentage int
	Current         []domain.BatchSlot
	Upcoming        []domain.BatchSlot
	RecentHomework  []*models.Homework
	Batches         []*models.Batch
}

// batchesWithCounts loads the batches and fills StudentCount from the roster.
func (s *DashboardService) batchesWithCounts(ctx context.Context, tutorID int64) ([]*models.Batch, int, error) {
	batches, err := s.batches.ListAll(ctx, tutorID)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing batches: %w", err)
	}
	students, err := s.students.ListAll(ctx, tutorID)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	counts := make(map[int64]int, len(batches))
	for _, st := range students {
		counts[st.BatchID]++
	}
	for _, b := range batches {
		b.StudentCount = counts[b.ID]
	}
	return batches, len(students), nil
}

// slots places today's notification-enabled batches on the timeline.
func slots(batches []*models.Batch, now time.Time) []domain.BatchSlot {
	var out []domain.BatchSlot
	for _, b := range batches {
		if !b.NotificationsEnabled {
			continue
		}
		if slot, ok := domain.PlaceSlot(b.ID, b.Name, b.Schedule(), now); ok {
			out = append(out, slot)
		}
	}
	domain.SortSlots(out)
	return out
}

// Dashboard builds the tutor dashboard.
func (s *DashboardService) Dashboard(ctx context.Context, tutorID int64) (*TutorDashboard, error) {
	now := s.clock.Now()

	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("error loading tutor: %w", err)
	}
	batches, studentCount, err := s.batchesWithCounts(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	attended, err := s.attendance.CountAttendedOn(ctx, tutorID, domain.DateOf(now))
	if err != nil {
		return nil, fmt.Errorf("error counting attendance: %w", err)
	}
	recent, err := s.homework.Recent(ctx, tutorID, recentHomeworkLimit)
	if err != nil {
		return nil, fmt.Errorf("error loading homework: %w", err)
	}

	d := &TutorDashboard{
		Tutor:           tutor,
		Now:             now,
		StudentCount:    studentCount,
		BatchCount:      len(batches),
		TodayAttended:   attended,
		TodayPercentage: domain.Percentage(int(attended), studentCount),
		RecentHomework:  recent,
		Batches:         batches,
	}
	for _, slot := range slots(batches, now) {
		if slot.Current() {
			d.Current = append(d.Current, slot)
		} else if slot.Upcoming() {
			d.Upcoming = append(d.Upcoming, slot)
		}
	}
	return d, nil
}

func slotResponse(slot domain.BatchSlot, studentCount int) dto.BatchSlotResponse {
	return dto.BatchSlotResponse{
		ID:           slot.BatchID,
		Name:         slot.Name,
		StartTime:    slot.Schedule.Start.String(),
		EndTime:      slot.Schedule.End.String(),
		StudentCount: studentCount,
		MinutesUntil: int(slot.MinutesUntil),
	}
}

// Upcoming answers the dashboard reminder poll.
func (s *DashboardService) Upcoming(ctx context.Context, tutorID int64) (*dto.UpcomingBatchesResponse, error) {
	now := s.clock.Now()
	batches, _, err := s.batchesWithCounts(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(batches))
	for _, b := range batches {
		counts[b.ID] = b.StudentCount
	}

	resp := &dto.UpcomingBatchesResponse{
		Reminders:         []dto.BatchSlotResponse{},
		Current:           []dto.BatchSlotResponse{},
		HomeworkReminders: []dto.HomeworkReminder{},
	}
	for _, slot := range slots(batches, now) {
		if slot.DueForReminder() {
			resp.Reminders = append(resp.Reminders, slotResponse(slot, counts[slot.BatchID]))
		}
		if slot.Current() {
			resp.Current = append(resp.Current, slotResponse(slot, counts[slot.BatchID]))
		}
		if slot.DueForHomeworkReminder() {
			latest, err := s.homework.LatestForBatch(ctx, tutorID, slot.BatchID, homeworkReminderLimit)
			if err != nil {
				return nil, fmt.Errorf("error loading homework: %w", err)
			}
			if len(latest) == 0 {
				continue
			}
			reminder := dto.HomeworkReminder{
				ID:        slot.BatchID,
				Name:      slot.Name,
				StartTime: slot.Schedule.Start.String(),
				EndTime:   slot.Schedule.End.String(),
			}
			for _, h := range latest {
				reminder.Homework = append(reminder.Homework, homeworkBrief(h))
			}
			resp.HomeworkReminders = append(resp.HomeworkReminders, reminder)
		}
	}
	return resp, nil
}

func homeworkBrief(h *models.Homework) dto.HomeworkBrief {
	return dto.HomeworkBrief{
		ID:             h.ID,
		Title:          h.Title,
		SubmissionDate: h.DueDate().String(),
		BatchName:      h.BatchName,
		BatchTime:      h.BatchStartTime,
	}
}
