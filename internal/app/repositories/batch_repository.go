package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/pkg/dberrors"
)

// BatchRepository handles database operations for batches
type BatchRepository struct {
	db db.DBTX
}

// NewBatchRepository creates a new BatchRepository
func NewBatchRepository(conn db.DBTX) *BatchRepository {
	return &BatchRepository{db: conn}
}

var batchColumns = []string{
	"b.id", "b.user_id", "b.name", "b.description", "b.start_time", "b.end_time", "b.days",
	"b.notifications_enabled", "b.created_at", "b.updated_at",
	"(SELECT COUNT(*) FROM students s WHERE s.batch_id = b.id AND s.user_id = b.user_id) AS student_count",
}

func scanBatch(row pgx.Row, extra ...any) (*models.Batch, error) {
	var b models.Batch
	dest := []any{
		&b.ID, &b.UserID, &b.Name, &b.Description, &b.StartTime, &b.EndTime, &b.Days,
		&b.NotificationsEnabled, &b.CreatedAt, &b.UpdatedAt, &b.StudentCount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepository) queryBatches(ctx context.Context, sql string, args []any) ([]*models.Batch, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Create inserts a batch and fills ID and timestamps.
func (r *BatchRepository) Create(ctx context.Context, b *models.Batch) error {
	sql, args, err := psql.Insert("batches").
		Columns("user_id", "name", "description", "start_time", "end_time", "days", "notifications_enabled").
		Values(b.UserID, b.Name, b.Description, b.StartTime, b.EndTime, b.Days, b.NotificationsEnabled).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("error creating batch: %w", err)
	}
	return nil
}

// Update saves the editable fields of a tutor's batch.
func (r *BatchRepository) Update(ctx context.Context, b *models.Batch) error {
	sql, args, err := psql.Update("batches").
		Set("name", b.Name).
		Set("description", b.Description).
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("days", b.Days).
		Set("notifications_enabled", b.NotificationsEnabled).
		Set("updated_at", squirrelNow).
		Where("id = ? AND user_id = ?", b.ID, b.UserID).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// Delete removes a tutor's batch. Homework scoped to it cascades. A batch that
// still has students fails with a foreign key violation.
func (r *BatchRepository) Delete(ctx context.Context, tutorID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM batches WHERE id = $1 AND user_id = $2`, id, tutorID)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return fmt.Errorf("batch %d still has students: %w", id, err)
		}
		return fmt.Errorf("error deleting batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// GetByID retrieves a batch owned by tutorID.
func (r *BatchRepository) GetByID(ctx context.Context, tutorID, id int64) (*models.Batch, error) {
	sql, args, err := psql.Select(batchColumns...).
		From("batches b").
		Where("b.id = ? AND b.user_id = ?", id, tutorID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	b, err := scanBatch(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("error retrieving batch: %w", err)
	}
	return b, nil
}

// List returns one page of a tutor's batches, newest first, and the total.
func (r *BatchRepository) List(ctx context.Context, tutorID int64, offset uint64, limit int) ([]*models.Batch, int64, error) {
	sql, args, err := psql.Select(withColumns(batchColumns, "COUNT(*) OVER()")...).
		From("batches b").
		Where("b.user_id = ?", tutorID).
		OrderBy("b.created_at DESC", "b.id DESC").
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
		batches []*models.Batch
		total   int64
	)
	for rows.Next() {
		b, err := scanBatch(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// ListAll returns every batch of a tutor ordered by name, for dropdowns and
// reports.
func (r *BatchRepository) ListAll(ctx context.Context, tutorID int64) ([]*models.Batch, error) {
	sql, args, err := psql.Select(batchColumns...).
		From("batches b").
		Where("b.user_id = ?", tutorID).
		OrderBy("b.name", "b.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}
	return r.queryBatches(ctx, sql, args)
}

// Count returns how many batches a tutor has.
func (r *BatchRepository) Count(ctx context.Context, tutorID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM batches WHERE user_id = $1`, tutorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting batches: %w", err)
	}
	return n, nil
}
