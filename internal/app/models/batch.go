package models

import (
	"time"

	"github.com/yigit/tuitiontrack/internal/domain"
)

// Batch is a named class with an optional weekly schedule.
type Batch struct {
	ID                   int64     `json:"id" db:"id"`
	UserID               int64     `json:"userId" db:"user_id"`
	Name                 string    `json:"name" db:"name"`
	Description          string    `json:"description" db:"description"`
	StartTime            string    `json:"startTime" db:"start_time"`
	EndTime              string    `json:"endTime" db:"end_time"`
	Days                 string    `json:"days" db:"days"`
	NotificationsEnabled bool      `json:"notificationsEnabled" db:"notifications_enabled"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`

	// StudentCount is filled by listing queries only.
	StudentCount int `json:"studentCount" db:"-"`
}

func (b *Batch) Schedule() domain.Schedule {
	return domain.ScheduleOf(b.Days, b.StartTime, b.EndTime)
}
