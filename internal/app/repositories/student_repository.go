package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/pkg/dberrors"
)

// StudentRepository handles database operations for students
type StudentRepository struct {
	db db.DBTX
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(conn db.DBTX) *StudentRepository {
	return &StudentRepository{db: conn}
}

// StudentFilter narrows a student listing. Zero values mean "no filter".
type StudentFilter struct {
	TutorID int64
	Search  string
	BatchID int64
	Offset  uint64
	Limit   int
}

var studentColumns = []string{
	"s.id", "s.user_id", "s.batch_id", "s.name", "s.phone", "s.address", "s.school", "s.standard",
	"s.last_attendance_notification", "s.created_at", "s.updated_at", "COALESCE(b.name, '')",
}

func scanStudent(row pgx.Row, extra ...any) (*models.Student, error) {
	var s models.Student
	dest := []any{
		&s.ID, &s.UserID, &s.BatchID, &s.Name, &s.Phone, &s.Address, &s.School, &s.Standard,
		&s.LastAttendanceNotification, &s.CreatedAt, &s.UpdatedAt, &s.BatchName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

func selectStudents(extra ...string) squirrel.SelectBuilder {
	return psql.Select(withColumns(studentColumns, extra...)...).
		From("students s").
		LeftJoin("batches b ON b.id = s.batch_id")
}

func (r *StudentRepository) queryStudents(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Student, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Create inserts a student. A phone already used under the same tutor returns
// ErrPhoneExists.
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	sql, args, err := psql.Insert("students").
		Columns("user_id", "batch_id", "name", "phone", "address", "school", "standard").
		Values(s.UserID, s.BatchID, s.Name, s.Phone, s.Address, s.School, s.Standard).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintStudentPhone) {
			return ErrPhoneExists
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

// Update saves the editable fields of a tutor's student.
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	sql, args, err := psql.Update("students").
		Set("batch_id", s.BatchID).
		Set("name", s.Name).
		Set("phone", s.Phone).
		Set("address", s.Address).
		Set("school", s.School).
		Set("standard", s.Standard).
		Set("updated_at", squirrelNow).
		Where("id = ? AND user_id = ?", s.ID, s.UserID).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintStudentPhone) {
			return ErrPhoneExists
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// Delete removes a tutor's student. Attendance and student-scoped homework
// cascade through their foreign keys.
func (r *StudentRepository) Delete(ctx context.Context, tutorID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1 AND user_id = $2`, id, tutorID)
	if err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// GetByID retrieves a student owned by tutorID.
func (r *StudentRepository) GetByID(ctx context.Context, tutorID, id int64) (*models.Student, error) {
	sql, args, err := selectStudents().
		Where("s.id = ? AND s.user_id = ?", id, tutorID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// FindByPhone looks a phone number up across all tutors. When several tutors
// registered the same phone the most recently created student wins.
func (r *StudentRepository) FindByPhone(ctx context.Context, phone string) (*models.Student, error) {
	sql, args, err := selectStudents().
		Where("s.phone = ?", phone).
		OrderBy("s.created_at DESC", "s.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// List returns one page of students matching f, name-sorted, and the total.
// Search matches a substring of the name (case-insensitive) or the phone.
func (r *StudentRepository) List(ctx context.Context, f StudentFilter) ([]*models.Student, int64, error) {
	q := selectStudents("COUNT(*) OVER()").
		Where("s.user_id = ?", f.TutorID).
		OrderBy("s.name", "s.id")

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"s.name": pattern},
			squirrel.Like{"s.phone": pattern},
		})
	}
	if f.BatchID > 0 {
		q = q.Where("s.batch_id = ?", f.BatchID)
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var (
		students []*models.Student
		total    int64
	)
	for rows.Next() {
		s, err := scanStudent(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return students, total, nil
}

// ListAll returns every student of a tutor, name-sorted.
func (r *StudentRepository) ListAll(ctx context.Context, tutorID int64) ([]*models.Student, error) {
	return r.queryStudents(ctx, selectStudents().
		Where("s.user_id = ?", tutorID).
		OrderBy("s.name", "s.id"))
}

// ListByBatch returns a batch roster, name-sorted.
func (r *StudentRepository) ListByBatch(ctx context.Context, tutorID, batchID int64) ([]*models.Student, error) {
	return r.queryStudents(ctx, selectStudents().
		Where("s.user_id = ? AND s.batch_id = ?", tutorID, batchID).
		OrderBy("s.name", "s.id"))
}

// ListByIDs returns the tutor's students among ids. Ids owned by other tutors
// are silently left out.
func (r *StudentRepository) ListByIDs(ctx context.Context, tutorID int64, ids []int64) ([]*models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryStudents(ctx, selectStudents().
		Where("s.user_id = ?", tutorID).
		Where(squirrel.Eq{"s.id": ids}))
}

// Count returns how many students a tutor has.
func (r *StudentRepository) Count(ctx context.Context, tutorID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE user_id = $1`, tutorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting students: %w", err)
	}
	return n, nil
}

// CountByBatch returns how many students reference a batch.
func (r *StudentRepository) CountByBatch(ctx context.Context, tutorID, batchID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE user_id = $1 AND batch_id = $2`,
		tutorID, batchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting students: %w", err)
	}
	return n, nil
}

// MarkNotified stamps the last attendance notification time on students.
func (r *StudentRepository) MarkNotified(ctx context.Context, tutorID int64, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	sql, args, err := psql.Update("students").
		Set("last_attendance_notification", at).
		Where("user_id = ?", tutorID).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating notification time: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
