package repositories

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/tuitiontrack/internal/db"
)

var (
	ErrTutorNotFound      = errors.New("tutor not found")
	ErrMobileExists       = errors.New("mobile number already registered")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrPhoneExists        = errors.New("phone number already registered")
	ErrHomeworkNotFound   = errors.New("homework not found")
	ErrAttendanceRecorded = errors.New("attendance already recorded")
)

// Constraint names from migrations/000001_init.sql.
const (
	constraintTutorMobile    = "users_mobile_key"
	constraintStudentPhone   = "students_user_phone_key"
	constraintAttendanceDate = "attendance_student_date_key"
)

// psql builds Postgres statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var squirrelNow = squirrel.Expr("NOW()")

// withColumns copies base and appends extra so shared column lists stay intact.
func withColumns(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Repositories holds all the repository instances
type Repositories struct {
	TutorRepository      *TutorRepository
	BatchRepository      *BatchRepository
	StudentRepository    *StudentRepository
	AttendanceRepository *AttendanceRepository
	HomeworkRepository   *HomeworkRepository
	AuditRepository      *AuditRepository
}

// NewRepositories initializes all repositories on one connection.
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		TutorRepository:      NewTutorRepository(conn),
		BatchRepository:      NewBatchRepository(conn),
		StudentRepository:    NewStudentRepository(conn),
		AttendanceRepository: NewAttendanceRepository(conn),
		HomeworkRepository:   NewHomeworkRepository(conn),
		AuditRepository:      NewAuditRepository(conn),
	}
}
