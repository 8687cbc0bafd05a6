package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

// BatchService handles batch CRUD and schedule validation
type BatchService struct {
	batches  BatchStore
	students StudentStore
	homework HomeworkStore
	files    filestorage.FileStorage
	retry    db.RetryPolicy
	pageSize int
	logger   zerolog.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(batches BatchStore, students StudentStore, homework HomeworkStore, files filestorage.FileStorage, retry db.RetryPolicy, pageSize int, logger zerolog.Logger) *BatchService {
	return &BatchService{
		batches:  batches,
		students: students,
		homework: homework,
		files:    files,
		retry:    retry,
		pageSize: pageSize,
		logger:   logger,
	}
}

// buildBatch validates the form and returns the row to store.
func buildBatch(tutorID int64, req dto.BatchRequest) (*models.Batch, error) {
	name := strings.TrimSpace(req.Name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return nil, invalid("name", "Batch name is required")
	case n < 2:
		return nil, invalid("name", "Batch name must be at least 2 characters long")
	case n > 100:
		return nil, invalid("name", "Batch name must be 100 characters or less")
	}

	days, err := domain.DaySetFromCodes(req.Days)
	if err != nil {
		return nil, invalid("days", "Please select valid days")
	}
	schedule, err := domain.NewSchedule(days.String(), strings.TrimSpace(req.StartTime), strings.TrimSpace(req.EndTime))
	if err != nil {
		if errors.Is(err, domain.ErrEndBeforeStart) {
			return nil, invalid("end_time", "End time must be after start time")
		}
		return nil, invalid("start_time", "Please enter times as HH:MM")
	}

	return &models.Batch{
		UserID:               tutorID,
		Name:                 name,
		Description:          strings.TrimSpace(req.Description),
		StartTime:            schedule.Start.String(),
		EndTime:              schedule.End.String(),
		Days:                 schedule.Days.String(),
		NotificationsEnabled: req.NotificationsEnabled,
	}, nil
}

// Create validates and stores a new batch.
func (s *BatchService) Create(ctx context.Context, tutorID int64, req dto.BatchRequest) (*models.Batch, error) {
	b, err := buildBatch(tutorID, req)
	if err != nil {
		return nil, err
	}
	err = s.retry.Do(ctx, "batches.create", func(ctx context.Context) error {
		return s.batches.Create(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating batch: %w", err)
	}
	s.logger.Info().Int64("tutorID", tutorID).Int64("batchID", b.ID).Msg("Batch created")
	return b, nil
}

// Update validates and saves a tutor's batch.
func (s *BatchService) Update(ctx context.Context, tutorID, id int64, req dto.BatchRequest) (*models.Batch, error) {
	if _, err := s.Get(ctx, tutorID, id); err != nil {
		return nil, err
	}
	b, err := buildBatch(tutorID, req)
	if err != nil {
		return nil, err
	}
	b.ID = id
	err = s.retry.Do(ctx, "batches.update", func(ctx context.Context) error {
		return s.batches.Update(ctx, b)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrBatchNotFound) {
			return nil, fail(ErrBatchNotFound, "Batch not found")
		}
		return nil, fmt.Errorf("error updating batch: %w", err)
	}
	return b, nil
}

// Get returns a batch owned by the tutor. Batches of other tutors read as
// not found.
func (s *BatchService) Get(ctx context.Context, tutorID, id int64) (*models.Batch, error) {
	b, err := s.batches.GetByID(ctx, tutorID, id)
	if err != nil {
		return nil, batchLookupError(err)
	}
	return b, nil
}

// List returns one page of batches, newest first.
func (s *BatchService) List(ctx context.Context, tutorID int64, page int) ([]*models.Batch, dto.PaginationInfo, error) {
	return helpers.FetchPage(page, s.pageSize, func(offset uint64, limit int) ([]*models.Batch, int64, error) {
		return s.batches.List(ctx, tutorID, offset, limit)
	})
}

// ListAll returns every batch ordered by name.
func (s *BatchService) ListAll(ctx context.Context, tutorID int64) ([]*models.Batch, error) {
	return s.batches.ListAll(ctx, tutorID)
}

// Detail is a batch with one page of its roster.
type BatchDetail struct {
	Batch      *models.Batch
	Students   []*models.Student
	Pagination dto.PaginationInfo
	Schedule   domain.Schedule
}

// Detail returns the batch and a page of its students.
func (s *BatchService) Detail(ctx context.Context, tutorID, id int64, page int) (*BatchDetail, error) {
	b, err := s.Get(ctx, tutorID, id)
	if err != nil {
		return nil, err
	}
	students, info, err := helpers.FetchPage(page, s.pageSize, func(offset uint64, limit int) ([]*models.Student, int64, error) {
		return s.students.List(ctx, repositories.StudentFilter{TutorID: tutorID, BatchID: id, Offset: offset, Limit: limit})
	})
	if err != nil {
		return nil, err
	}
	b.StudentCount = int(info.TotalItems)
	return &BatchDetail{Batch: b, Students: students, Pagination: info, Schedule: b.Schedule()}, nil
}

// Delete removes a batch that has no students. Homework shared with the batch
// goes with it, attachments included.
func (s *BatchService) Delete(ctx context.Context, tutorID, id int64) error {
	if _, err := s.Get(ctx, tutorID, id); err != nil {
		return err
	}

	n, err := s.students.CountByBatch(ctx, tutorID, id)
	if err != nil {
		return fmt.Errorf("error counting students: %w", err)
	}
	if n > 0 {
		return fail(ErrBatchHasStudents, "Cannot delete batch with students. Please remove students first.")
	}

	keys, err := s.homework.FileKeys(ctx, tutorID, 0, id)
	if err != nil {
		return fmt.Errorf("error collecting attachments: %w", err)
	}

	err = s.retry.Do(ctx, "batches.delete", func(ctx context.Context) error {
		return s.batches.Delete(ctx, tutorID, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrBatchNotFound) {
			return fail(ErrBatchNotFound, "Batch not found")
		}
		return fmt.Errorf("error deleting batch: %w", err)
	}

	removeFiles(ctx, s.files, keys, s.logger)
	s.logger.Info().Int64("tutorID", tutorID).Int64("batchID", id).Int("files", len(keys)).Msg("Batch deleted")
	return nil
}

// removeFiles deletes attachments best-effort and returns how many went.
func removeFiles(ctx context.Context, files filestorage.FileStorage, keys []string, logger zerolog.Logger) int {
	removed := 0
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := files.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to delete attachment")
			continue
		}
		removed++
	}
	return removed
}
