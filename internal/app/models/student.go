package models

import "time"

// Student belongs to one tutor and one batch. The phone number doubles as the
// portal login.
type Student struct {
	ID                         int64      `json:"id" db:"id"`
	UserID                     int64      `json:"userId" db:"user_id"`
	BatchID                    int64      `json:"batchId" db:"batch_id"`
	Name                       string     `json:"name" db:"name"`
	Phone                      string     `json:"phone" db:"phone"`
	Address                    string     `json:"address" db:"address"`
	School                     string     `json:"school" db:"school"`
	Standard                   string     `json:"standard" db:"standard"`
	LastAttendanceNotification *time.Time `json:"lastAttendanceNotification,omitempty" db:"last_attendance_notification"`
	CreatedAt                  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt                  time.Time  `json:"updatedAt" db:"updated_at"`

	BatchName string `json:"batchName" db:"-"`
}
