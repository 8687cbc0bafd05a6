package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

// HomeworkCategory is the storage sub-path of homework attachments.
const HomeworkCategory = "homework"

// HomeworkService handles sharing homework and serving its attachments
type HomeworkService struct {
	homework HomeworkStore
	batches  BatchStore
	students StudentStore
	files    filestorage.FileStorage
	rules    filestorage.UploadRules
	retry    db.RetryPolicy
	clock    *domain.Clock
	pageSize int
	logger   zerolog.Logger
}

// NewHomeworkService creates a new HomeworkService
func NewHomeworkService(
	homework HomeworkStore,
	batches BatchStore,
	students StudentStore,
	files filestorage.FileStorage,
	rules filestorage.UploadRules,
	retry db.RetryPolicy,
	clock *domain.Clock,
	pageSize int,
	logger zerolog.Logger,
) *HomeworkService {
	return &HomeworkService{
		homework: homework,
		batches:  batches,
		students: students,
		files:    files,
		rules:    rules,
		retry:    retry,
		clock:    clock,
		pageSize: pageSize,
		logger:   logger,
	}
}

// buildHomework validates the form. The scope ids must belong to the tutor.
func (s *HomeworkService) buildHomework(ctx context.Context, tutorID int64, req dto.HomeworkRequest) (*models.Homework, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title", "Homework title is required")
	}
	if strings.TrimSpace(req.SubmissionDate) == "" {
		return nil, invalid("submission_date", "Submission date is required")
	}
	due, err := domain.ParseDate(req.SubmissionDate)
	if err != nil {
		return nil, invalid("submission_date", "Submission date must be a valid date")
	}

	h := &models.Homework{
		UserID:         tutorID,
		Title:          title,
		Content:        strings.TrimSpace(req.Content),
		VideoURL:       strings.TrimSpace(req.VideoURL),
		SubmissionDate: due.UTC(),
	}

	if req.BatchID > 0 {
		b, err := s.batches.GetByID(ctx, tutorID, req.BatchID)
		if err != nil {
			if errors.Is(err, repositories.ErrBatchNotFound) {
				return nil, invalid("batch_id", "Please select a valid batch")
			}
			return nil, fmt.Errorf("error checking batch: %w", err)
		}
		h.BatchID = helpers.OptionalID(b.ID)
		h.BatchName = b.Name
	}
	if req.StudentID > 0 {
		st, err := s.students.GetByID(ctx, tutorID, req.StudentID)
		if err != nil {
			if errors.Is(err, repositories.ErrStudentNotFound) {
				return nil, invalid("student_id", "Please select a valid student")
			}
			return nil, fmt.Errorf("error checking student: %w", err)
		}
		h.StudentID = helpers.OptionalID(st.ID)
		h.StudentName = st.Name
	}
	return h, nil
}

// upload stores fh when present and returns its key.
func (s *HomeworkService) upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", nil
	}
	key, err := filestorage.SaveUpload(ctx, s.files, s.rules, fh, HomeworkCategory)
	if err != nil {
		var uerr *filestorage.UploadError
		if errors.As(err, &uerr) {
			return "", invalid("file", uerr.Message)
		}
		return "", fmt.Errorf("error saving attachment: %w", err)
	}
	return key, nil
}

// Create validates and stores homework with an optional attachment.
func (s *HomeworkService) Create(ctx context.Context, tutorID int64, req dto.HomeworkRequest, fh *multipart.FileHeader) (*models.Homework, error) {
	h, err := s.buildHomework(ctx, tutorID, req)
	if err != nil {
		return nil, err
	}
	if h.FileKey, err = s.upload(ctx, fh); err != nil {
		return nil, err
	}

	err = s.retry.Do(ctx, "homework.create", func(ctx context.Context) error {
		return s.homework.Create(ctx, h)
	})
	if err != nil {
		removeFiles(ctx, s.files, []string{h.FileKey}, s.logger)
		return nil, fmt.Errorf("error creating homework: %w", err)
	}
	s.logger.Info().Int64("tutorID", tutorID).Int64("homeworkID", h.ID).Bool("file", h.HasFile()).Msg("Homework shared")
	return h, nil
}

// Update saves a tutor's homework. A new upload replaces the old file;
// RemoveFile drops it. Replaced files are deleted after the row is saved.
func (s *HomeworkService) Update(ctx context.Context, tutorID, id int64, req dto.HomeworkRequest, fh *multipart.FileHeader) (*models.Homework, error) {
	current, err := s.Get(ctx, tutorID, id)
	if err != nil {
		return nil, err
	}
	h, err := s.buildHomework(ctx, tutorID, req)
	if err != nil {
		return nil, err
	}
	h.ID = id
	h.FileKey = current.FileKey
	h.CreatedAt = current.CreatedAt

	newKey, err := s.upload(ctx, fh)
	if err != nil {
		return nil, err
	}
	var stale string
	switch {
	case newKey != "":
		stale, h.FileKey = current.FileKey, newKey
	case req.RemoveFile:
		stale, h.FileKey = current.FileKey, ""
	}

	err = s.retry.Do(ctx, "homework.update", func(ctx context.Context) error {
		return s.homework.Update(ctx, h)
	})
	if err != nil {
		removeFiles(ctx, s.files, []string{newKey}, s.logger)
		if errors.Is(err, repositories.ErrHomeworkNotFound) {
			return nil, fail(ErrHomeworkNotFound, "Homework not found")
		}
		return nil, fmt.Errorf("error updating homework: %w", err)
	}
	removeFiles(ctx, s.files, []string{stale}, s.logger)
	return h, nil
}

// Delete removes a tutor's homework and its attachment.
func (s *HomeworkService) Delete(ctx context.Context, tutorID, id int64) error {
	h, err := s.Get(ctx, tutorID, id)
	if err != nil {
		return err
	}
	err = s.retry.Do(ctx, "homework.delete", func(ctx context.Context) error {
		return s.homework.Delete(ctx, tutorID, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrHomeworkNotFound) {
			return fail(ErrHomeworkNotFound, "Homework not found")
		}
		return fmt.Errorf("error deleting homework: %w", err)
	}
	removeFiles(ctx, s.files, []string{h.FileKey}, s.logger)
	return nil
}

// Get returns homework owned by the tutor.
func (s *HomeworkService) Get(ctx context.Context, tutorID, id int64) (*models.Homework, error) {
	h, err := s.homework.GetByID(ctx, tutorID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrHomeworkNotFound) {
			return nil, fail(ErrHomeworkNotFound, "Homework not found")
		}
		return nil, err
	}
	return h, nil
}

// List returns one page of the tutor's unexpired homework.
func (s *HomeworkService) List(ctx context.Context, tutorID int64, page int) ([]*models.Homework, dto.PaginationInfo, error) {
	cutoff := domain.HomeworkCutoff(s.clock.Today())
	return helpers.FetchPage(page, s.pageSize, func(offset uint64, limit int) ([]*models.Homework, int64, error) {
		return s.homework.List(ctx, tutorID, cutoff, offset, limit)
	})
}

// ForStudent returns the unexpired homework a student can see. limit 0 means
// all of it.
func (s *HomeworkService) ForStudent(ctx context.Context, st *models.Student, limit int) ([]*models.Homework, error) {
	cutoff := domain.HomeworkCutoff(s.clock.Today())
	return s.homework.VisibleToStudent(ctx, st.UserID, st.BatchID, st.ID, cutoff, limit)
}

// visibleTo reports whether st may read h: it must be shared with the
// student's current batch or with the student directly.
func visibleTo(h *models.Homework, st *models.Student) bool {
	if h.UserID != st.UserID {
		return false
	}
	switch {
	case h.StudentID != nil && *h.StudentID == st.ID:
		return true
	case h.BatchID != nil && *h.BatchID == st.BatchID:
		return true
	}
	return false
}

// allowed checks h against the identity. Students are reloaded so a batch
// move or a deletion takes effect before the session cookie expires.
func (s *HomeworkService) allowed(ctx context.Context, h *models.Homework, id appauth.Identity) (bool, error) {
	if h.UserID != id.TutorID {
		return false, nil
	}
	if id.IsTutor() {
		return true, nil
	}
	st, err := s.students.GetByID(ctx, id.TutorID, id.StudentID)
	if err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			return false, nil
		}
		return false, err
	}
	return visibleTo(h, st), nil
}

// OpenAttachment opens the file behind key for an identity allowed to see
// the homework it belongs to. Anything else reads as not found.
func (s *HomeworkService) OpenAttachment(ctx context.Context, id appauth.Identity, key string) (io.ReadCloser, string, error) {
	if err := id.Require(appauth.ReadAttachments); err != nil {
		return nil, "", err
	}
	if !filestorage.ValidKey(key) {
		return nil, "", fail(ErrFileNotFound, "File not found")
	}

	h, err := s.homework.GetByFileKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrHomeworkNotFound) {
			return nil, "", fail(ErrFileNotFound, "File not found")
		}
		return nil, "", err
	}
	ok, err := s.allowed(ctx, h, id)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", fail(ErrFileNotFound, "File not found")
	}

	rc, err := s.files.Open(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Attachment missing from storage")
		return nil, "", fail(ErrFileNotFound, "File not found")
	}
	return rc, filestorage.Extension(key), nil
}
