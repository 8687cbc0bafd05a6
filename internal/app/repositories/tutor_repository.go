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

// TutorRepository handles database operations for tutor accounts
type TutorRepository struct {
	db db.DBTX
}

// NewTutorRepository creates a new TutorRepository
func NewTutorRepository(conn db.DBTX) *TutorRepository {
	return &TutorRepository{db: conn}
}

const tutorColumns = `id, mobile, name, tuition_name, address, role, created_at, updated_at`

func scanTutor(row pgx.Row) (*models.Tutor, error) {
	var t models.Tutor
	err := row.Scan(&t.ID, &t.Mobile, &t.Name, &t.TuitionName, &t.Address, &t.Role, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a tutor and fills ID and timestamps.
func (r *TutorRepository) Create(ctx context.Context, t *models.Tutor) error {
	query := `
		INSERT INTO users (mobile, name, tuition_name, address, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, t.Mobile, t.Name, t.TuitionName, t.Address, t.Role).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintTutorMobile) {
			return ErrMobileExists
		}
		return fmt.Errorf("error creating tutor: %w", err)
	}
	return nil
}

// GetByID retrieves a tutor by ID
func (r *TutorRepository) GetByID(ctx context.Context, id int64) (*models.Tutor, error) {
	t, err := scanTutor(r.db.QueryRow(ctx, `SELECT `+tutorColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrTutorNotFound) {
		return nil, fmt.Errorf("error retrieving tutor: %w", err)
	}
	return t, err
}

// GetByMobile retrieves a tutor by mobile number
func (r *TutorRepository) GetByMobile(ctx context.Context, mobile string) (*models.Tutor, error) {
	t, err := scanTutor(r.db.QueryRow(ctx, `SELECT `+tutorColumns+` FROM users WHERE mobile = $1`, mobile))
	if err != nil && !errors.Is(err, ErrTutorNotFound) {
		return nil, fmt.Errorf("error retrieving tutor: %w", err)
	}
	return t, err
}

// UpdateProfile updates the editable profile fields.
func (r *TutorRepository) UpdateProfile(ctx context.Context, id int64, name, tuitionName, address string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET name = $1, tuition_name = $2, address = $3, updated_at = NOW()
		WHERE id = $4`, name, tuitionName, address, id)
	if err != nil {
		return fmt.Errorf("error updating tutor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTutorNotFound
	}
	return nil
}
