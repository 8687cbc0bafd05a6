package dto

// BatchRequest is the create/edit form of a batch.
type BatchRequest struct {
	Name                 string   `form:"name" binding:"required,min=2,max=100"`
	Description          string   `form:"description" binding:"omitempty,max=1000"`
	StartTime            string   `form:"start_time" binding:"omitempty,hhmm"`
	EndTime              string   `form:"end_time" binding:"omitempty,hhmm"`
	Days                 []string `form:"days" binding:"omitempty,weekdays"`
	NotificationsEnabled bool     `form:"notifications_enabled"`
}
