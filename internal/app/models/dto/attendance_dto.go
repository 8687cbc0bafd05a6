package dto

import "github.com/yigit/tuitiontrack/internal/domain"

// SaveAttendanceRequest is posted by the attendance page script.
type SaveAttendanceRequest struct {
	Date    string             `json:"date" binding:"required"`
	Entries []domain.MarkEntry `json:"entries" binding:"required"`
}

// SaveAttendanceResponse reports how many rows were written.
type SaveAttendanceResponse struct {
	Success    bool   `json:"success"`
	SavedCount int    `json:"saved_count"`
	Error      string `json:"error,omitempty"`
}
