package dto

// BatchSlotResponse is one batch in the tutor's upcoming/current lists.
type BatchSlotResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	StudentCount int    `json:"student_count"`
	MinutesUntil int    `json:"minutes_until"`
}

// HomeworkBrief is the short form of a homework row used by reminders.
type HomeworkBrief struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	SubmissionDate string `json:"submission_date"`
	BatchName      string `json:"batch_name,omitempty"`
	BatchTime      string `json:"batch_time,omitempty"`
}

// HomeworkReminder groups the latest homework of a batch that just started.
type HomeworkReminder struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Homework  []HomeworkBrief `json:"homework"`
}

// UpcomingBatchesResponse answers the tutor dashboard poll.
type UpcomingBatchesResponse struct {
	Reminders         []BatchSlotResponse `json:"reminders"`
	Current           []BatchSlotResponse `json:"current"`
	HomeworkReminders []HomeworkReminder  `json:"homework_reminders"`
}

// StudentHomeworkReminders answers the student homework poll.
type StudentHomeworkReminders struct {
	NewHomework []HomeworkBrief `json:"new_homework"`
	DueSoon     []HomeworkBrief `json:"due_soon"`
	DueVerySoon []HomeworkBrief `json:"due_very_soon"`
}

// AttendanceNotification tells a student today's status was recorded.
type AttendanceNotification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Status  int    `json:"status"`
}

// AttendanceNotificationsResponse answers the student attendance poll.
type AttendanceNotificationsResponse struct {
	Notifications []AttendanceNotification `json:"notifications"`
	ShouldPoll    bool                     `json:"should_poll"`
}
