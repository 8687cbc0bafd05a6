package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

func (f *fixture) studentService() *StudentService {
	return NewStudentService(f.students(), f.batches(), f.homework(), f.audit(), f.files, testRetry, 20, f.logger)
}

func TestCreateStudent(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	svc := f.studentService()

	st, err := svc.Create(context.Background(), tutor.ID, dto.StudentRequest{Name: " Asha Rao ", Phone: "9000000001", BatchID: b.ID, Standard: "8"})
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", st.Name)
	assert.Equal(t, "Morning", st.BatchName)

	_, err = svc.Create(context.Background(), tutor.ID, dto.StudentRequest{Name: "Ravi", Phone: "9000000001", BatchID: b.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPhoneTaken)
	assert.Equal(t, "A student with this phone number already exists", apperrors.Message(err, ""))
}

func TestCreateStudentValidation(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	other := f.db.addTutor("9876543211", "Other")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	theirs := f.db.addBatch(other.ID, "Theirs", "", "", "")
	svc := f.studentService()

	cases := map[string]struct {
		req dto.StudentRequest
		msg string
	}{
		"digits in name": {dto.StudentRequest{Name: "Asha 2", Phone: "9000000001", BatchID: b.ID}, "Name must be 2 to 100 letters and spaces only"},
		"short phone":    {dto.StudentRequest{Name: "Asha", Phone: "90000", BatchID: b.ID}, "Phone number must be exactly 10 digits"},
		"no batch":       {dto.StudentRequest{Name: "Asha", Phone: "9000000001"}, "Please select a batch"},
		"foreign batch":  {dto.StudentRequest{Name: "Asha", Phone: "9000000001", BatchID: theirs.ID}, "Please select a valid batch"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tutor.ID, tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
			assert.Equal(t, tc.msg, apperrors.Message(err, ""))
		})
	}
	assert.Empty(t, f.db.students)
}

func TestDeleteStudentCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	asha := f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	ravi := f.db.addStudent(tutor.ID, b.ID, "Ravi", "9000000002")
	f.db.mark(asha.ID, date(t, "2024-03-04"), domain.StatusPresent)
	f.db.mark(ravi.ID, date(t, "2024-03-04"), domain.StatusPresent)
	key := saveFile(t, f, "asha.pdf", "notes")
	f.db.addHomework(&models.Homework{UserID: tutor.ID, StudentID: helpers.OptionalID(asha.ID), Title: "For Asha", FileKey: key})
	shared := f.db.addHomework(&models.Homework{UserID: tutor.ID, BatchID: helpers.OptionalID(b.ID), Title: "For all"})

	require.NoError(t, f.studentService().Delete(ctx, tutor.ID, asha.ID))

	assert.NotContains(t, f.db.students, asha.ID)
	assert.Empty(t, f.db.attendance[asha.ID])
	assert.Len(t, f.db.attendance[ravi.ID], 1)
	assert.Len(t, f.db.homework, 1)
	assert.Contains(t, f.db.homework, shared.ID)

	exists, err := f.files.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, f.db.audit, 1)
	entry := f.db.audit[0]
	assert.Equal(t, "student.delete", entry.Action)
	assert.Equal(t, asha.ID, entry.EntityID)
	assert.Equal(t, 1, entry.Details["files_removed"])
}

func TestStudentListSearch(t *testing.T) {
	f := newFixture(t)
	tutor := f.db.addTutor("9876543210", "Bright Minds")
	b := f.db.addBatch(tutor.ID, "Morning", "", "", "")
	f.db.addStudent(tutor.ID, b.ID, "Asha", "9000000001")
	f.db.addStudent(tutor.ID, b.ID, "Ravi", "9111111111")

	list, info, err := f.studentService().List(context.Background(), tutor.ID, dto.StudentListQuery{Search: "asha"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Asha", list[0].Name)
	assert.Equal(t, int64(1), info.TotalItems)

	list, _, err = f.studentService().List(context.Background(), tutor.ID, dto.StudentListQuery{Search: "9111"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ravi", list[0].Name)
}

func TestUpdateStudentOfOtherTutor(t *testing.T) {
	f := newFixture(t)
	mine := f.db.addTutor("9876543210", "Bright Minds")
	other := f.db.addTutor("9876543211", "Other")
	b := f.db.addBatch(other.ID, "Theirs", "", "", "")
	st := f.db.addStudent(other.ID, b.ID, "Asha", "9000000001")

	_, err := f.studentService().Update(context.Background(), mine.ID, st.ID, dto.StudentRequest{Name: "Changed", Phone: "9000000001", BatchID: b.ID})
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.Equal(t, "Asha", f.db.students[st.ID].Name)
}
