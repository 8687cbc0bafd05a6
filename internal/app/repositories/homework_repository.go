package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
)

// HomeworkRepository handles database operations for homework
type HomeworkRepository struct {
	db db.DBTX
}

// NewHomeworkRepository creates a new HomeworkRepository
func NewHomeworkRepository(conn db.DBTX) *HomeworkRepository {
	return &HomeworkRepository{db: conn}
}

// HomeworkFile identifies a row and its attachment for cleanup.
type HomeworkFile struct {
	ID      int64
	FileKey string
}

var homeworkColumns = []string{
	"h.id", "h.user_id", "h.batch_id", "h.student_id", "h.title", "h.content", "h.file_key", "h.video_url",
	"h.submission_date", "h.created_at", "h.updated_at",
	"COALESCE(b.name, '')", "COALESCE(b.start_time, '')", "COALESCE(s.name, '')",
}

func selectHomework(extra ...string) squirrel.SelectBuilder {
	return psql.Select(withColumns(homeworkColumns, extra...)...).
		From("homework h").
		LeftJoin("batches b ON b.id = h.batch_id").
		LeftJoin("students s ON s.id = h.student_id")
}

func scanHomework(row pgx.Row, extra ...any) (*models.Homework, error) {
	var h models.Homework
	dest := []any{
		&h.ID, &h.UserID, &h.BatchID, &h.StudentID, &h.Title, &h.Content, &h.FileKey, &h.VideoURL,
		&h.SubmissionDate, &h.CreatedAt, &h.UpdatedAt,
		&h.BatchName, &h.BatchStartTime, &h.StudentName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HomeworkRepository) queryHomework(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Homework, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var list []*models.Homework
	for rows.Next() {
		h, err := scanHomework(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// Create inserts a homework row and fills ID and timestamps.
func (r *HomeworkRepository) Create(ctx context.Context, h *models.Homework) error {
	sql, args, err := psql.Insert("homework").
		Columns("user_id", "batch_id", "student_id", "title", "content", "file_key", "video_url", "submission_date").
		Values(h.UserID, h.BatchID, h.StudentID, h.Title, h.Content, h.FileKey, h.VideoURL, h.SubmissionDate).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return fmt.Errorf("error creating homework: %w", err)
	}
	return nil
}

// Update saves the editable fields of a tutor's homework.
func (r *HomeworkRepository) Update(ctx context.Context, h *models.Homework) error {
	sql, args, err := psql.Update("homework").
		Set("batch_id", h.BatchID).
		Set("student_id", h.StudentID).
		Set("title", h.Title).
		Set("content", h.Content).
		Set("file_key", h.FileKey).
		Set("video_url", h.VideoURL).
		Set("submission_date", h.SubmissionDate).
		Set("updated_at", squirrelNow).
		Where("id = ? AND user_id = ?", h.ID, h.UserID).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating homework: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrHomeworkNotFound
	}
	return nil
}

// Delete removes a tutor's homework row.
func (r *HomeworkRepository) Delete(ctx context.Context, tutorID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM homework WHERE id = $1 AND user_id = $2`, id, tutorID)
	if err != nil {
		return fmt.Errorf("error deleting homework: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrHomeworkNotFound
	}
	return nil
}

// GetByID retrieves a homework row owned by tutorID.
func (r *HomeworkRepository) GetByID(ctx context.Context, tutorID, id int64) (*models.Homework, error) {
	sql, args, err := selectHomework().Where("h.id = ? AND h.user_id = ?", id, tutorID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	h, err := scanHomework(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHomeworkNotFound
		}
		return nil, fmt.Errorf("error retrieving homework: %w", err)
	}
	return h, nil
}

// GetByFileKey retrieves the row an attachment belongs to.
func (r *HomeworkRepository) GetByFileKey(ctx context.Context, key string) (*models.Homework, error) {
	sql, args, err := selectHomework().Where("h.file_key = ?", key).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	h, err := scanHomework(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHomeworkNotFound
		}
		return nil, fmt.Errorf("error retrieving homework: %w", err)
	}
	return h, nil
}

// List returns one page of a tutor's homework due on or after cutoff, newest
// first, and the total.
func (r *HomeworkRepository) List(ctx context.Context, tutorID int64, cutoff domain.Date, offset uint64, limit int) ([]*models.Homework, int64, error) {
	sql, args, err := selectHomework("COUNT(*) OVER()").
		Where("h.user_id = ? AND h.submission_date >= ?", tutorID, cutoff.UTC()).
		OrderBy("h.created_at DESC", "h.id DESC").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var (
		list  []*models.Homework
		total int64
	)
	for rows.Next() {
		h, err := scanHomework(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		list = append(list, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Recent returns the tutor's latest homework.
func (r *HomeworkRepository) Recent(ctx context.Context, tutorID int64, limit int) ([]*models.Homework, error) {
	return r.queryHomework(ctx, selectHomework().
		Where("h.user_id = ?", tutorID).
		OrderBy("h.created_at DESC", "h.id DESC").
		Limit(uint64(limit)))
}

// LatestForBatch returns the latest homework shared with a batch.
func (r *HomeworkRepository) LatestForBatch(ctx context.Context, tutorID, batchID int64, limit int) ([]*models.Homework, error) {
	return r.queryHomework(ctx, selectHomework().
		Where("h.user_id = ? AND h.batch_id = ?", tutorID, batchID).
		OrderBy("h.created_at DESC", "h.id DESC").
		Limit(uint64(limit)))
}

// VisibleToStudent returns homework shared with the student's batch or with
// the student directly, due on or after cutoff. limit 0 means no limit.
func (r *HomeworkRepository) VisibleToStudent(ctx context.Context, tutorID, batchID, studentID int64, cutoff domain.Date, limit int) ([]*models.Homework, error) {
	q := selectHomework().
		Where("h.user_id = ?", tutorID).
		Where(squirrel.Or{
			squirrel.Eq{"h.batch_id": batchID},
			squirrel.Eq{"h.student_id": studentID},
		}).
		Where("h.submission_date >= ?", cutoff.UTC()).
		OrderBy("h.created_at DESC", "h.id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.queryHomework(ctx, q)
}

// ExpiredBefore lists rows due before cutoff across all tutors.
func (r *HomeworkRepository) ExpiredBefore(ctx context.Context, cutoff domain.Date) ([]HomeworkFile, error) {
	rows, err := r.db.Query(ctx, `SELECT id, file_key FROM homework WHERE submission_date < $1`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var out []HomeworkFile
	for rows.Next() {
		var f HomeworkFile
		if err := rows.Scan(&f.ID, &f.FileKey); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteByIDs removes rows by id and returns how many went.
func (r *HomeworkRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sql, args, err := psql.Delete("homework").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting homework: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FileKeys returns the attachments of homework scoped to a student or a batch,
// collected before a cascading delete.
func (r *HomeworkRepository) FileKeys(ctx context.Context, tutorID int64, studentID, batchID int64) ([]string, error) {
	q := psql.Select("file_key").
		From("homework").
		Where("user_id = ? AND file_key <> ''", tutorID)
	switch {
	case studentID > 0:
		q = q.Where("student_id = ?", studentID)
	case batchID > 0:
		q = q.Where("batch_id = ?", batchID)
	default:
		return nil, nil
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

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
