package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/pkg/filestorage"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
	"github.com/yigit/tuitiontrack/internal/pkg/notify"
)

// memDB is an in-memory stand-in for the postgres schema. Deleting a student
// cascades to its attendance and targeted homework like the foreign keys do.
type memDB struct {
	mu         sync.Mutex
	seq        int64
	tutors     map[int64]*models.Tutor
	batches    map[int64]*models.Batch
	students   map[int64]*models.Student
	attendance map[int64]map[domain.Date]domain.Status
	homework   map[int64]*models.Homework
	audit      []*models.AuditEntry
}

func newMemDB() *memDB {
	return &memDB{
		tutors:     make(map[int64]*models.Tutor),
		batches:    make(map[int64]*models.Batch),
		students:   make(map[int64]*models.Student),
		attendance: make(map[int64]map[domain.Date]domain.Status),
		homework:   make(map[int64]*models.Homework),
	}
}

func (m *memDB) next() int64 {
	m.seq++
	return m.seq
}

func (m *memDB) addTutor(mobile, tuitionName string) *models.Tutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Tutor{ID: m.next(), Mobile: mobile, TuitionName: tuitionName, Role: models.RoleTutor}
	m.tutors[t.ID] = t
	return t
}

func (m *memDB) addBatch(tutorID int64, name, days, start, end string) *models.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &models.Batch{ID: m.next(), UserID: tutorID, Name: name, Days: days, StartTime: start, EndTime: end, NotificationsEnabled: true}
	m.batches[b.ID] = b
	return b
}

func (m *memDB) addStudent(tutorID, batchID int64, name, phone string) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Student{ID: m.next(), UserID: tutorID, BatchID: batchID, Name: name, Phone: phone}
	if b, ok := m.batches[batchID]; ok {
		s.BatchName = b.Name
	}
	m.students[s.ID] = s
	return s
}

func (m *memDB) mark(studentID int64, date domain.Date, status domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attendance[studentID] == nil {
		m.attendance[studentID] = make(map[domain.Date]domain.Status)
	}
	m.attendance[studentID][date] = status
}

func (m *memDB) addHomework(h *models.Homework) *models.Homework {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.next()
	m.homework[h.ID] = h
	return h
}

func copyStudent(s *models.Student) *models.Student {
	c := *s
	return &c
}

func copyBatch(b *models.Batch) *models.Batch {
	c := *b
	return &c
}

func copyHomework(h *models.Homework) *models.Homework {
	c := *h
	return &c
}

func inRange(d, from, to domain.Date) bool {
	return !d.Before(from) && !d.After(to)
}

// tutor store

type memTutors struct{ *memDB }

func (m memTutors) Create(_ context.Context, t *models.Tutor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.tutors {
		if o.Mobile == t.Mobile {
			return repositories.ErrMobileExists
		}
	}
	t.ID = m.next()
	c := *t
	m.tutors[t.ID] = &c
	return nil
}

func (m memTutors) GetByID(_ context.Context, id int64) (*models.Tutor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tutors[id]
	if !ok {
		return nil, repositories.ErrTutorNotFound
	}
	c := *t
	return &c, nil
}

func (m memTutors) GetByMobile(_ context.Context, mobile string) (*models.Tutor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tutors {
		if t.Mobile == mobile {
			c := *t
			return &c, nil
		}
	}
	return nil, repositories.ErrTutorNotFound
}

func (m memTutors) UpdateProfile(_ context.Context, id int64, name, tuitionName, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tutors[id]
	if !ok {
		return repositories.ErrTutorNotFound
	}
	t.Name, t.TuitionName, t.Address = name, tuitionName, address
	return nil
}

// batch store

type memBatches struct{ *memDB }

func (m memBatches) Create(_ context.Context, b *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.next()
	m.batches[b.ID] = copyBatch(b)
	return nil
}

func (m memBatches) Update(_ context.Context, b *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.batches[b.ID]
	if !ok || cur.UserID != b.UserID {
		return repositories.ErrBatchNotFound
	}
	m.batches[b.ID] = copyBatch(b)
	return nil
}

func (m memBatches) Delete(_ context.Context, tutorID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.batches[id]
	if !ok || cur.UserID != tutorID {
		return repositories.ErrBatchNotFound
	}
	delete(m.batches, id)
	for hid, h := range m.homework {
		if h.BatchID != nil && *h.BatchID == id {
			delete(m.homework, hid)
		}
	}
	return nil
}

func (m memBatches) GetByID(_ context.Context, tutorID, id int64) (*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok || b.UserID != tutorID {
		return nil, repositories.ErrBatchNotFound
	}
	return copyBatch(b), nil
}

func (m memBatches) ListAll(_ context.Context, tutorID int64) ([]*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Batch
	for _, b := range m.batches {
		if b.UserID != tutorID {
			continue
		}
		c := copyBatch(b)
		for _, s := range m.students {
			if s.BatchID == b.ID {
				c.StudentCount++
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memBatches) List(ctx context.Context, tutorID int64, offset uint64, limit int) ([]*models.Batch, int64, error) {
	all, _ := m.ListAll(ctx, tutorID)
	return window(all, offset, limit), int64(len(all)), nil
}

func (m memBatches) Count(ctx context.Context, tutorID int64) (int64, error) {
	all, _ := m.ListAll(ctx, tutorID)
	return int64(len(all)), nil
}

func window[T any](rows []T, offset uint64, limit int) []T {
	start := int(offset)
	if start >= len(rows) {
		return nil
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// student store

type memStudents struct{ *memDB }

func (m memStudents) phoneTaken(phone string, except int64) bool {
	for _, s := range m.students {
		if s.Phone == phone && s.ID != except {
			return true
		}
	}
	return false
}

func (m memStudents) Create(_ context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phoneTaken(s.Phone, 0) {
		return repositories.ErrPhoneExists
	}
	s.ID = m.next()
	m.students[s.ID] = copyStudent(s)
	return nil
}

func (m memStudents) Update(_ context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.ID]
	if !ok || cur.UserID != s.UserID {
		return repositories.ErrStudentNotFound
	}
	if m.phoneTaken(s.Phone, s.ID) {
		return repositories.ErrPhoneExists
	}
	m.students[s.ID] = copyStudent(s)
	return nil
}

func (m memStudents) Delete(_ context.Context, tutorID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[id]
	if !ok || cur.UserID != tutorID {
		return repositories.ErrStudentNotFound
	}
	delete(m.students, id)
	delete(m.attendance, id)
	for hid, h := range m.homework {
		if h.StudentID != nil && *h.StudentID == id {
			delete(m.homework, hid)
		}
	}
	return nil
}

func (m memStudents) GetByID(_ context.Context, tutorID, id int64) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok || s.UserID != tutorID {
		return nil, repositories.ErrStudentNotFound
	}
	return copyStudent(s), nil
}

func (m memStudents) FindByPhone(_ context.Context, phone string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Phone == phone {
			return copyStudent(s), nil
		}
	}
	return nil, repositories.ErrStudentNotFound
}

func (m memStudents) filter(keep func(*models.Student) bool) []*models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Student
	for _, s := range m.students {
		if keep(s) {
			out = append(out, copyStudent(s))
		}
	}
	// name then id, like the roster queries
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m memStudents) List(_ context.Context, f repositories.StudentFilter) ([]*models.Student, int64, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	all := m.filter(func(s *models.Student) bool {
		if s.UserID != f.TutorID || (f.BatchID > 0 && s.BatchID != f.BatchID) {
			return false
		}
		return search == "" || strings.Contains(strings.ToLower(s.Name), search) || strings.Contains(s.Phone, search)
	})
	return window(all, f.Offset, f.Limit), int64(len(all)), nil
}

func (m memStudents) ListAll(_ context.Context, tutorID int64) ([]*models.Student, error) {
	return m.filter(func(s *models.Student) bool { return s.UserID == tutorID }), nil
}

func (m memStudents) ListByBatch(_ context.Context, tutorID, batchID int64) ([]*models.Student, error) {
	return m.filter(func(s *models.Student) bool { return s.UserID == tutorID && s.BatchID == batchID }), nil
}

func (m memStudents) ListByIDs(_ context.Context, tutorID int64, ids []int64) ([]*models.Student, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.filter(func(s *models.Student) bool { return s.UserID == tutorID && want[s.ID] }), nil
}

func (m memStudents) Count(ctx context.Context, tutorID int64) (int64, error) {
	all, _ := m.ListAll(ctx, tutorID)
	return int64(len(all)), nil
}

func (m memStudents) CountByBatch(ctx context.Context, tutorID, batchID int64) (int64, error) {
	all, _ := m.ListByBatch(ctx, tutorID, batchID)
	return int64(len(all)), nil
}

func (m memStudents) MarkNotified(_ context.Context, tutorID int64, ids []int64, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if s, ok := m.students[id]; ok && s.UserID == tutorID {
			when := when
			s.LastAttendanceNotification = &when
		}
	}
	return nil
}

// attendance store

type memAttendance struct{ *memDB }

func (m memAttendance) owned(tutorID, studentID int64) bool {
	s, ok := m.students[studentID]
	return ok && s.UserID == tutorID
}

func (m memAttendance) Insert(_ context.Context, tutorID, studentID int64, date domain.Date, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendance[studentID][date]; ok {
		return repositories.ErrAttendanceRecorded
	}
	if m.attendance[studentID] == nil {
		m.attendance[studentID] = make(map[domain.Date]domain.Status)
	}
	m.attendance[studentID][date] = status
	return nil
}

func (m memAttendance) StatusesOn(_ context.Context, tutorID int64, date domain.Date) (map[int64]domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.Status)
	for id, days := range m.attendance {
		if status, ok := days[date]; ok && m.owned(tutorID, id) {
			out[id] = status
		}
	}
	return out, nil
}

func (m memAttendance) Range(_ context.Context, tutorID int64, from, to domain.Date, studentIDs ...int64) ([]repositories.StudentDayStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		want[id] = true
	}
	var out []repositories.StudentDayStatus
	for id, days := range m.attendance {
		if !m.owned(tutorID, id) || (len(want) > 0 && !want[id]) {
			continue
		}
		for d, status := range days {
			if inRange(d, from, to) {
				out = append(out, repositories.StudentDayStatus{StudentID: id, Date: d, Status: status})
			}
		}
	}
	return out, nil
}

func (m memAttendance) ForStudent(_ context.Context, studentID int64, from, to domain.Date) (map[domain.Date]domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.Date]domain.Status)
	for d, status := range m.attendance[studentID] {
		if inRange(d, from, to) {
			out[d] = status
		}
	}
	return out, nil
}

func (m memAttendance) GetForStudentOn(_ context.Context, studentID int64, date domain.Date) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.attendance[studentID][date]
	if !ok {
		return nil, nil
	}
	return &models.Attendance{StudentID: studentID, Date: date.UTC(), Status: status}, nil
}

func (m memAttendance) CountAttendedOn(ctx context.Context, tutorID int64, date domain.Date) (int64, error) {
	statuses, _ := m.StatusesOn(ctx, tutorID, date)
	var n int64
	for _, s := range statuses {
		if s.Attended() {
			n++
		}
	}
	return n, nil
}

func (m memAttendance) ExportRows(_ context.Context, tutorID int64, from, to domain.Date, batchID int64) ([]models.AttendanceExportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceExportRow
	for id, days := range m.attendance {
		s, ok := m.students[id]
		if !ok || s.UserID != tutorID || (batchID > 0 && s.BatchID != batchID) {
			continue
		}
		for d, status := range days {
			if inRange(d, from, to) {
				out = append(out, models.AttendanceExportRow{Date: d.UTC(), StudentName: s.Name, BatchName: s.BatchName, Status: status})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out, nil
}

func (m memAttendance) DeleteBefore(_ context.Context, cutoff domain.Date) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, days := range m.attendance {
		for d := range days {
			if d.Before(cutoff) {
				delete(days, d)
				n++
			}
		}
	}
	return n, nil
}

// homework store

type memHomework struct{ *memDB }

func (m memHomework) Create(_ context.Context, h *models.Homework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.next()
	m.homework[h.ID] = copyHomework(h)
	return nil
}

func (m memHomework) Update(_ context.Context, h *models.Homework) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.homework[h.ID]
	if !ok || cur.UserID != h.UserID {
		return repositories.ErrHomeworkNotFound
	}
	m.homework[h.ID] = copyHomework(h)
	return nil
}

func (m memHomework) Delete(_ context.Context, tutorID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.homework[id]
	if !ok || cur.UserID != tutorID {
		return repositories.ErrHomeworkNotFound
	}
	delete(m.homework, id)
	return nil
}

func (m memHomework) GetByID(_ context.Context, tutorID, id int64) (*models.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.homework[id]
	if !ok || h.UserID != tutorID {
		return nil, repositories.ErrHomeworkNotFound
	}
	return copyHomework(h), nil
}

func (m memHomework) GetByFileKey(_ context.Context, key string) (*models.Homework, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.homework {
		if h.FileKey == key {
			return copyHomework(h), nil
		}
	}
	return nil, repositories.ErrHomeworkNotFound
}

func (m memHomework) filter(keep func(*models.Homework) bool, limit int) []*models.Homework {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Homework
	for _, h := range m.homework {
		if keep(h) {
			c := copyHomework(h)
			if h.BatchID != nil {
				if b, ok := m.batches[*h.BatchID]; ok {
					c.BatchName, c.BatchStartTime = b.Name, b.StartTime
				}
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m memHomework) List(_ context.Context, tutorID int64, cutoff domain.Date, offset uint64, limit int) ([]*models.Homework, int64, error) {
	all := m.filter(func(h *models.Homework) bool {
		return h.UserID == tutorID && !h.DueDate().Before(cutoff)
	}, 0)
	return window(all, offset, limit), int64(len(all)), nil
}

func (m memHomework) Recent(_ context.Context, tutorID int64, limit int) ([]*models.Homework, error) {
	return m.filter(func(h *models.Homework) bool { return h.UserID == tutorID }, limit), nil
}

func (m memHomework) LatestForBatch(_ context.Context, tutorID, batchID int64, limit int) ([]*models.Homework, error) {
	return m.filter(func(h *models.Homework) bool {
		return h.UserID == tutorID && h.BatchID != nil && *h.BatchID == batchID
	}, limit), nil
}

func (m memHomework) VisibleToStudent(_ context.Context, tutorID, batchID, studentID int64, cutoff domain.Date, limit int) ([]*models.Homework, error) {
	return m.filter(func(h *models.Homework) bool {
		if h.UserID != tutorID || h.DueDate().Before(cutoff) {
			return false
		}
		return (h.BatchID != nil && *h.BatchID == batchID) ||
			(h.StudentID != nil && *h.StudentID == studentID)
	}, limit), nil
}

func (m memHomework) ExpiredBefore(_ context.Context, cutoff domain.Date) ([]repositories.HomeworkFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repositories.HomeworkFile
	for _, h := range m.homework {
		if h.DueDate().Before(cutoff) {
			out = append(out, repositories.HomeworkFile{ID: h.ID, FileKey: h.FileKey})
		}
	}
	return out, nil
}

func (m memHomework) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.homework[id]; ok {
			delete(m.homework, id)
			n++
		}
	}
	return n, nil
}

func (m memHomework) FileKeys(_ context.Context, tutorID int64, studentID, batchID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, h := range m.homework {
		if h.UserID != tutorID || h.FileKey == "" {
			continue
		}
		if studentID > 0 && (h.StudentID == nil || *h.StudentID != studentID) {
			continue
		}
		if batchID > 0 && (h.BatchID == nil || *h.BatchID != batchID) {
			continue
		}
		out = append(out, h.FileKey)
	}
	return out, nil
}

// audit store

type memAudit struct{ *memDB }

func (m memAudit) Record(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.next()
	m.audit = append(m.audit, e)
	return nil
}

// recordingDispatcher keeps every dispatched notification.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

// fixture bundles the stores and shared collaborators of a service test.
type fixture struct {
	db       *memDB
	files    *filestorage.LocalStorage
	metrics  *metrics.Metrics
	notifier *recordingDispatcher
	logger   zerolog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return &fixture{
		db:       newMemDB(),
		files:    files,
		metrics:  metrics.New(),
		notifier: &recordingDispatcher{},
		logger:   zerolog.Nop(),
	}
}

func (f *fixture) tutors() memTutors         { return memTutors{f.db} }
func (f *fixture) batches() memBatches       { return memBatches{f.db} }
func (f *fixture) students() memStudents     { return memStudents{f.db} }
func (f *fixture) attendance() memAttendance { return memAttendance{f.db} }
func (f *fixture) homework() memHomework     { return memHomework{f.db} }
func (f *fixture) audit() memAudit           { return memAudit{f.db} }

// testRetry retries quickly so contention tests stay fast.
var testRetry = db.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

var kolkata = mustLocation("Asia/Kolkata")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// at returns a fixed clock on 2024-03-04 (a Monday) at hh:mm in Kolkata.
func at(hour, minute int) *domain.Clock {
	return domain.FixedClock(time.Date(2024, time.March, 4, hour, minute, 0, 0, kolkata))
}

func date(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func saveFile(t *testing.T, f *fixture, name, body string) string {
	t.Helper()
	key, err := f.files.Save(context.Background(), HomeworkCategory, name, strings.NewReader(body))
	require.NoError(t, err)
	return key
}
