package models

import (
	"time"

	"github.com/yigit/tuitiontrack/internal/domain"
)

// Attendance is the single row for a student on a date.
type Attendance struct {
	ID        int64         `json:"id" db:"id"`
	UserID    int64         `json:"userId" db:"user_id"`
	StudentID int64         `json:"studentId" db:"student_id"`
	Date      time.Time     `json:"date" db:"date"`
	Status    domain.Status `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
}

func (a *Attendance) Day() domain.Date {
	return domain.DateOf(a.Date)
}

// AttendanceExportRow is one line of the attendance export.
type AttendanceExportRow struct {
	Date        time.Time
	StudentName string
	BatchName   string
	Status      domain.Status
}
