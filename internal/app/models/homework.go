package models

import (
	"time"

	"github.com/yigit/tuitiontrack/internal/domain"
)

// Homework is shared with a whole batch, one student, or (neither set) every
// student of the tutor.
type Homework struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	BatchID        *int64    `json:"batchId,omitempty" db:"batch_id"`
	StudentID      *int64    `json:"studentId,omitempty" db:"student_id"`
	Title          string    `json:"title" db:"title"`
	Content        string    `json:"content" db:"content"`
	FileKey        string    `json:"fileKey,omitempty" db:"file_key"`
	VideoURL       string    `json:"videoUrl,omitempty" db:"video_url"`
	SubmissionDate time.Time `json:"submissionDate" db:"submission_date"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`

	BatchName      string `json:"batchName,omitempty" db:"-"`
	BatchStartTime string `json:"-" db:"-"`
	StudentName    string `json:"studentName,omitempty" db:"-"`
}

func (h *Homework) DueDate() domain.Date {
	return domain.DateOf(h.SubmissionDate)
}

// HasFile reports whether an attachment is stored for this row.
func (h *Homework) HasFile() bool {
	return h.FileKey != ""
}
