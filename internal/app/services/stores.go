package services

import (
	"context"
	"time"

	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/domain"
)

// The store interfaces list what each service needs from the repositories.
// *repositories.XRepository satisfies them; tests use in-memory fakes.

type TutorStore interface {
	Create(ctx context.Context, t *models.Tutor) error
	GetByID(ctx context.Context, id int64) (*models.Tutor, error)
	GetByMobile(ctx context.Context, mobile string) (*models.Tutor, error)
	UpdateProfile(ctx context.Context, id int64, name, tuitionName, address string) error
}

type BatchStore interface {
	Create(ctx context.Context, b *models.Batch) error
	Update(ctx context.Context, b *models.Batch) error
	Delete(ctx context.Context, tutorID, id int64) error
	GetByID(ctx context.Context, tutorID, id int64) (*models.Batch, error)
	List(ctx context.Context, tutorID int64, offset uint64, limit int) ([]*models.Batch, int64, error)
	ListAll(ctx context.Context, tutorID int64) ([]*models.Batch, error)
	Count(ctx context.Context, tutorID int64) (int64, error)
}

type StudentStore interface {
	Create(ctx context.Context, s *models.Student) error
	Update(ctx context.Context, s *models.Student) error
	Delete(ctx context.Context, tutorID, id int64) error
	GetByID(ctx context.Context, tutorID, id int64) (*models.Student, error)
	FindByPhone(ctx context.Context, phone string) (*models.Student, error)
	List(ctx context.Context, f repositories.StudentFilter) ([]*models.Student, int64, error)
	ListAll(ctx context.Context, tutorID int64) ([]*models.Student, error)
	ListByBatch(ctx context.Context, tutorID, batchID int64) ([]*models.Student, error)
	ListByIDs(ctx context.Context, tutorID int64, ids []int64) ([]*models.Student, error)
	Count(ctx context.Context, tutorID int64) (int64, error)
	CountByBatch(ctx context.Context, tutorID, batchID int64) (int64, error)
	MarkNotified(ctx context.Context, tutorID int64, ids []int64, at time.Time) error
}

type AttendanceStore interface {
	Insert(ctx context.Context, tutorID, studentID int64, date domain.Date, status domain.Status) error
	StatusesOn(ctx context.Context, tutorID int64, date domain.Date) (map[int64]domain.Status, error)
	Range(ctx context.Context, tutorID int64, from, to domain.Date, studentIDs ...int64) ([]repositories.StudentDayStatus, error)
	ForStudent(ctx context.Context, studentID int64, from, to domain.Date) (map[domain.Date]domain.Status, error)
	GetForStudentOn(ctx context.Context, studentID int64, date domain.Date) (*models.Attendance, error)
	CountAttendedOn(ctx context.Context, tutorID int64, date domain.Date) (int64, error)
	ExportRows(ctx context.Context, tutorID int64, from, to domain.Date, batchID int64) ([]models.AttendanceExportRow, error)
	DeleteBefore(ctx context.Context, cutoff domain.Date) (int64, error)
}

type HomeworkStore interface {
	Create(ctx context.Context, h *models.Homework) error
	Update(ctx context.Context, h *models.Homework) error
	Delete(ctx context.Context, tutorID, id int64) error
	GetByID(ctx context.Context, tutorID, id int64) (*models.Homework, error)
	GetByFileKey(ctx context.Context, key string) (*models.Homework, error)
	List(ctx context.Context, tutorID int64, cutoff domain.Date, offset uint64, limit int) ([]*models.Homework, int64, error)
	Recent(ctx context.Context, tutorID int64, limit int) ([]*models.Homework, error)
	LatestForBatch(ctx context.Context, tutorID, batchID int64, limit int) ([]*models.Homework, error)
	VisibleToStudent(ctx context.Context, tutorID, batchID, studentID int64, cutoff domain.Date, limit int) ([]*models.Homework, error)
	ExpiredBefore(ctx context.Context, cutoff domain.Date) ([]repositories.HomeworkFile, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	FileKeys(ctx context.Context, tutorID int64, studentID, batchID int64) ([]string, error)
}

type AuditStore interface {
	Record(ctx context.Context, e *models.AuditEntry) error
}

var (
	_ TutorStore      = (*repositories.TutorRepository)(nil)
	_ BatchStore      = (*repositories.BatchRepository)(nil)
	_ StudentStore    = (*repositories.StudentRepository)(nil)
	_ AttendanceStore = (*repositories.AttendanceRepository)(nil)
	_ HomeworkStore   = (*repositories.HomeworkRepository)(nil)
	_ AuditStore      = (*repositories.AuditRepository)(nil)
)
