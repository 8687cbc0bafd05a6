package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/dberrors"
)

// AttendanceRepository handles database operations for attendance rows
type AttendanceRepository struct {
	db db.DBTX
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(conn db.DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: conn}
}

// StudentDayStatus is one (student, date, status) triple.
type StudentDayStatus struct {
	StudentID int64
	Date      domain.Date
	Status    domain.Status
}

// Insert adds the row for (student, date). Rows are never updated; an existing
// row makes the insert fail with ErrAttendanceRecorded.
func (r *AttendanceRepository) Insert(ctx context.Context, tutorID, studentID int64, date domain.Date, status domain.Status) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO attendance (user_id, student_id, date, status)
		VALUES ($1, $2, $3, $4)`,
		tutorID, studentID, date.UTC(), int16(status))
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintAttendanceDate) {
			return ErrAttendanceRecorded
		}
		return err
	}
	return nil
}

// StatusesOn returns the tutor's recorded statuses for a date keyed by student.
func (r *AttendanceRepository) StatusesOn(ctx context.Context, tutorID int64, date domain.Date) (map[int64]domain.Status, error) {
	rows, err := r.db.Query(ctx, `
		SELECT student_id, status FROM attendance
		WHERE user_id = $1 AND date = $2`, tutorID, date.UTC())
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.Status)
	for rows.Next() {
		var (
			id     int64
			status int16
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out[id] = domain.Status(status)
	}
	return out, rows.Err()
}

// Range returns the tutor's rows within [from, to], optionally restricted to
// some students.
func (r *AttendanceRepository) Range(ctx context.Context, tutorID int64, from, to domain.Date, studentIDs ...int64) ([]StudentDayStatus, error) {
	q := psql.Select("a.student_id", "a.date", "a.status").
		From("attendance a").
		Where("a.user_id = ?", tutorID).
		Where("a.date BETWEEN ? AND ?", from.UTC(), to.UTC()).
		OrderBy("a.date", "a.student_id")
	if len(studentIDs) > 0 {
		q = q.Where(squirrel.Eq{"a.student_id": studentIDs})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var out []StudentDayStatus
	for rows.Next() {
		var (
			row    models.Attendance
			status int16
		)
		if err := rows.Scan(&row.StudentID, &row.Date, &status); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, StudentDayStatus{StudentID: row.StudentID, Date: row.Day(), Status: domain.Status(status)})
	}
	return out, rows.Err()
}

// ForStudent returns one student's rows within [from, to] keyed by date.
func (r *AttendanceRepository) ForStudent(ctx context.Context, studentID int64, from, to domain.Date) (map[domain.Date]domain.Status, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, status FROM attendance
		WHERE student_id = $1 AND date BETWEEN $2 AND $3`,
		studentID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Date]domain.Status)
	for rows.Next() {
		var row models.Attendance
		var status int16
		if err := rows.Scan(&row.Date, &status); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out[row.Day()] = domain.Status(status)
	}
	return out, rows.Err()
}

// GetForStudentOn returns a student's row for a date, or nil when none exists.
func (r *AttendanceRepository) GetForStudentOn(ctx context.Context, studentID int64, date domain.Date) (*models.Attendance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, student_id, date, status, created_at FROM attendance
		WHERE student_id = $1 AND date = $2`, studentID, date.UTC())
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		a      models.Attendance
		status int16
	)
	if err := rows.Scan(&a.ID, &a.UserID, &a.StudentID, &a.Date, &status, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("error scanning row: %w", err)
	}
	a.Status = domain.Status(status)
	return &a, nil
}

// CountAttendedOn counts distinct students present or late on a date.
func (r *AttendanceRepository) CountAttendedOn(ctx context.Context, tutorID int64, date domain.Date) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT student_id) FROM attendance
		WHERE user_id = $1 AND date = $2 AND status IN (1, 2)`,
		tutorID, date.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting attendance: %w", err)
	}
	return n, nil
}

// ExportRows returns the tutor's rows within [from, to] with names, newest date
// first then by student name. batchID 0 means every batch.
func (r *AttendanceRepository) ExportRows(ctx context.Context, tutorID int64, from, to domain.Date, batchID int64) ([]models.AttendanceExportRow, error) {
	q := psql.Select("a.date", "s.name", "COALESCE(b.name, '')", "a.status").
		From("attendance a").
		Join("students s ON s.id = a.student_id").
		LeftJoin("batches b ON b.id = s.batch_id").
		Where("a.user_id = ?", tutorID).
		Where("a.date BETWEEN ? AND ?", from.UTC(), to.UTC()).
		OrderBy("a.date DESC", "s.name")
	if batchID > 0 {
		q = q.Where("s.batch_id = ?", batchID)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceExportRow
	for rows.Next() {
		var (
			row    models.AttendanceExportRow
			status int16
		)
		if err := rows.Scan(&row.Date, &row.StudentName, &row.BatchName, &status); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		row.Status = domain.Status(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteBefore purges rows older than cutoff and returns how many went.
func (r *AttendanceRepository) DeleteBefore(ctx context.Context, cutoff domain.Date) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM attendance WHERE date < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("error purging attendance: %w", err)
	}
	return tag.RowsAffected(), nil
}
