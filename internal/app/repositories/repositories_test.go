package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

var (
	day     = domain.Date{Year: 2024, Month: time.March, Day: 4}
	created = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
)

func TestTutorRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewTutorRepository(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("9876543210", "Asha", "Bright Minds", "", models.RoleTutor).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), created, created))

	tutor := &models.Tutor{Mobile: "9876543210", Name: "Asha", TuitionName: "Bright Minds", Role: models.RoleTutor}
	require.NoError(t, repo.Create(context.Background(), tutor))
	assert.Equal(t, int64(7), tutor.ID)
	assert.Equal(t, created, tutor.CreatedAt)
}

func TestTutorRepository_CreateDuplicateMobile(t *testing.T) {
	mock := newMock(t)
	repo := NewTutorRepository(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(uniqueViolation(constraintTutorMobile))

	err := repo.Create(context.Background(), &models.Tutor{Mobile: "9876543210", Role: models.RoleTutor})
	assert.ErrorIs(t, err, ErrMobileExists)
}

func TestTutorRepository_GetByMobileNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTutorRepository(mock)

	mock.ExpectQuery(`FROM users WHERE mobile = \$1`).
		WithArgs("9000000000").
		WillReturnRows(mock.NewRows([]string{"id", "mobile", "name", "tuition_name", "address", "role", "created_at", "updated_at"}))

	_, err := repo.GetByMobile(context.Background(), "9000000000")
	assert.ErrorIs(t, err, ErrTutorNotFound)
}

func TestTutorRepository_UpdateProfileMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewTutorRepository(mock)

	mock.ExpectExec(`UPDATE users SET name`).
		WithArgs("Asha", "Bright Minds", "Main Road", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateProfile(context.Background(), 99, "Asha", "Bright Minds", "Main Road")
	assert.ErrorIs(t, err, ErrTutorNotFound)
}

func TestAttendanceRepository_Insert(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	mock.ExpectExec(`INSERT INTO attendance`).
		WithArgs(int64(1), int64(5), day.UTC(), int16(domain.StatusPresent)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), 1, 5, day, domain.StatusPresent))
}

func TestAttendanceRepository_InsertTwiceIsRejected(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	mock.ExpectExec(`INSERT INTO attendance`).
		WithArgs(int64(1), int64(5), day.UTC(), int16(domain.StatusAbsent)).
		WillReturnError(uniqueViolation(constraintAttendanceDate))

	err := repo.Insert(context.Background(), 1, 5, day, domain.StatusAbsent)
	assert.ErrorIs(t, err, ErrAttendanceRecorded)
}

func TestAttendanceRepository_StatusesOn(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	mock.ExpectQuery(`SELECT student_id, status FROM attendance`).
		WithArgs(int64(1), day.UTC()).
		WillReturnRows(mock.NewRows([]string{"student_id", "status"}).
			AddRow(int64(5), int16(domain.StatusPresent)).
			AddRow(int64(6), int16(domain.StatusLate)))

	statuses, err := repo.StatusesOn(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Equal(t, map[int64]domain.Status{5: domain.StatusPresent, 6: domain.StatusLate}, statuses)
}

func TestAttendanceRepository_RangeForStudents(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	from := day.AddDays(-2)
	mock.ExpectQuery(`SELECT a.student_id, a.date, a.status FROM attendance a WHERE a.user_id = \$1 AND a.date BETWEEN \$2 AND \$3 AND a.student_id IN \(\$4,\$5\)`).
		WithArgs(int64(1), from.UTC(), day.UTC(), int64(5), int64(6)).
		WillReturnRows(mock.NewRows([]string{"student_id", "date", "status"}).
			AddRow(int64(5), from.UTC(), int16(domain.StatusAbsent)))

	rows, err := repo.Range(context.Background(), 1, from, day, 5, 6)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, StudentDayStatus{StudentID: 5, Date: from, Status: domain.StatusAbsent}, rows[0])
}

func TestAttendanceRepository_GetForStudentOnMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	mock.ExpectQuery(`FROM attendance`).
		WithArgs(int64(5), day.UTC()).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "student_id", "date", "status", "created_at"}))

	a, err := repo.GetForStudentOn(context.Background(), 5, day)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestAttendanceRepository_DeleteBefore(t *testing.T) {
	mock := newMock(t)
	repo := NewAttendanceRepository(mock)

	mock.ExpectExec(`DELETE FROM attendance WHERE date < \$1`).
		WithArgs(day.UTC()).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	n, err := repo.DeleteBefore(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestStudentRepository_CreateDuplicatePhone(t *testing.T) {
	mock := newMock(t)
	repo := NewStudentRepository(mock)

	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs(int64(1), int64(2), "Ravi", "9123456789", "", "", "").
		WillReturnError(uniqueViolation(constraintStudentPhone))

	err := repo.Create(context.Background(), &models.Student{UserID: 1, BatchID: 2, Name: "Ravi", Phone: "9123456789"})
	assert.ErrorIs(t, err, ErrPhoneExists)
}

func TestStudentRepository_DeleteOtherTutor(t *testing.T) {
	mock := newMock(t)
	repo := NewStudentRepository(mock)

	mock.ExpectExec(`DELETE FROM students WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 2, 5), ErrStudentNotFound)
}

func TestStudentRepository_FindByPhoneNewestFirst(t *testing.T) {
	mock := newMock(t)
	repo := NewStudentRepository(mock)

	cols := []string{"id", "user_id", "batch_id", "name", "phone", "address", "school", "standard",
		"last_attendance_notification", "created_at", "updated_at", "batch_name"}
	mock.ExpectQuery(`WHERE s.phone = \$1 ORDER BY s.created_at DESC, s.id DESC LIMIT 1`).
		WithArgs("9123456789").
		WillReturnRows(mock.NewRows(cols).
			AddRow(int64(9), int64(3), int64(4), "Ravi", "9123456789", "", "", "8", (*time.Time)(nil), created, created, "Evening"))

	st, err := repo.FindByPhone(context.Background(), "9123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(9), st.ID)
	assert.Equal(t, int64(3), st.UserID)
	assert.Equal(t, "Evening", st.BatchName)
	assert.Nil(t, st.LastAttendanceNotification)
}

func TestStudentRepository_ListByIDsEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewStudentRepository(mock)

	students, err := repo.ListByIDs(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
