package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
	"github.com/yigit/tuitiontrack/internal/pkg/validation"
)

// StudentService handles the student roster
type StudentService struct {
	students StudentStore
	batches  BatchStore
	homework HomeworkStore
	audit    AuditStore
	files    filestorage.FileStorage
	retry    db.RetryPolicy
	pageSize int
	logger   zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(students StudentStore, batches BatchStore, homework HomeworkStore, audit AuditStore, files filestorage.FileStorage, retry db.RetryPolicy, pageSize int, logger zerolog.Logger) *StudentService {
	return &StudentService{
		students: students,
		batches:  batches,
		homework: homework,
		audit:    audit,
		files:    files,
		retry:    retry,
		pageSize: pageSize,
		logger:   logger,
	}
}

// buildStudent validates the form against the tutor's batches.
func (s *StudentService) buildStudent(ctx context.Context, tutorID int64, req dto.StudentRequest) (*models.Student, error) {
	name := strings.TrimSpace(req.Name)
	if !validation.NewStringValidation(name).
		WithRequired(true).
		WithMinLength(validation.NameMinLength).
		WithMaxLength(validation.NameMaxLength).
		WithPattern(validation.CompiledPatterns.PersonName).
		Validate() {
		return nil, invalid("name", "Name must be 2 to 100 letters and spaces only")
	}

	phone := strings.TrimSpace(req.Phone)
	if !validation.IsPhone(phone) {
		return nil, invalid("phone", "Phone number must be exactly 10 digits")
	}

	if req.BatchID <= 0 {
		return nil, invalid("batch_id", "Please select a batch")
	}
	batch, err := s.batches.GetByID(ctx, tutorID, req.BatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrBatchNotFound) {
			return nil, invalid("batch_id", "Please select a valid batch")
		}
		return nil, fmt.Errorf("error checking batch: %w", err)
	}

	return &models.Student{
		UserID:    tutorID,
		BatchID:   batch.ID,
		BatchName: batch.Name,
		Name:      name,
		Phone:     phone,
		Address:   strings.TrimSpace(req.Address),
		School:    strings.TrimSpace(req.School),
		Standard:  strings.TrimSpace(req.Standard),
	}, nil
}

// Create validates and stores a new student.
func (s *StudentService) Create(ctx context.Context, tutorID int64, req dto.StudentRequest) (*models.Student, error) {
	st, err := s.buildStudent(ctx, tutorID, req)
	if err != nil {
		return nil, err
	}
	err = s.retry.Do(ctx, "students.create", func(ctx context.Context) error {
		return s.students.Create(ctx, st)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPhoneExists) {
			return nil, fail(ErrPhoneTaken, "A student with this phone number already exists")
		}
		return nil, fmt.Errorf("error creating student: %w", err)
	}
	s.logger.Info().Int64("tutorID", tutorID).Int64("studentID", st.ID).Msg("Student created")
	return st, nil
}

// Update validates and saves a tutor's student.
func (s *StudentService) Update(ctx context.Context, tutorID, id int64, req dto.StudentRequest) (*models.Student, error) {
	if _, err := s.Get(ctx, tutorID, id); err != nil {
		return nil, err
	}
	st, err := s.buildStudent(ctx, tutorID, req)
	if err != nil {
		return nil, err
	}
	st.ID = id
	err = s.retry.Do(ctx, "students.update", func(ctx context.Context) error {
		return s.students.Update(ctx, st)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPhoneExists):
			return nil, fail(ErrPhoneTaken, "A student with this phone number already exists")
		case errors.Is(err, repositories.ErrStudentNotFound):
			return nil, fail(ErrStudentNotFound, "Student not found")
		}
		return nil, fmt.Errorf("error updating student: %w", err)
	}
	return st, nil
}

// Get returns a student owned by the tutor.
func (s *StudentService) Get(ctx context.Context, tutorID, id int64) (*models.Student, error) {
	st, err := s.students.GetByID(ctx, tutorID, id)
	if err != nil {
		return nil, studentLookupError(err)
	}
	return st, nil
}

// List returns one page of students filtered by name/phone search and batch.
func (s *StudentService) List(ctx context.Context, tutorID int64, q dto.StudentListQuery) ([]*models.Student, dto.PaginationInfo, error) {
	return helpers.FetchPage(q.Page, s.pageSize, func(offset uint64, limit int) ([]*models.Student, int64, error) {
		return s.students.List(ctx, repositories.StudentFilter{
			TutorID: tutorID,
			Search:  q.Search,
			BatchID: q.BatchID,
			Offset:  offset,
			Limit:   limit,
		})
	})
}

// ListAll returns every student of the tutor, name-sorted.
func (s *StudentService) ListAll(ctx context.Context, tutorID int64) ([]*models.Student, error) {
	return s.students.ListAll(ctx, tutorID)
}

// Delete removes a student together with their attendance and student-scoped
// homework. Attachments are deleted best-effort and the removal is audited.
func (s *StudentService) Delete(ctx context.Context, tutorID, id int64) error {
	st, err := s.Get(ctx, tutorID, id)
	if err != nil {
		return err
	}

	keys, err := s.homework.FileKeys(ctx, tutorID, id, 0)
	if err != nil {
		return fmt.Errorf("error collecting attachments: %w", err)
	}

	err = s.retry.Do(ctx, "students.delete", func(ctx context.Context) error {
		return s.students.Delete(ctx, tutorID, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return fail(ErrStudentNotFound, "Student not found")
		}
		return fmt.Errorf("error deleting student: %w", err)
	}

	removed := removeFiles(ctx, s.files, keys, s.logger)

	entry := &models.AuditEntry{
		UserID:   tutorID,
		Action:   "student.delete",
		Entity:   "student",
		EntityID: id,
		Details: map[string]any{
			"name":          st.Name,
			"phone":         st.Phone,
			"batch_id":      st.BatchID,
			"files_removed": removed,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Int64("studentID", id).Msg("Failed to record audit entry")
	}

	s.logger.Info().
		Int64("tutorID", tutorID).
		Int64("studentID", id).
		Int("filesRemoved", removed).
		Msg("Student deleted with attendance and homework")
	return nil
}
