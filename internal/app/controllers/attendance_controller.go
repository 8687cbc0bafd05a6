package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// AttendanceController serves the marking page and its save endpoint
type AttendanceController struct {
	attendanceService *services.AttendanceService
	logger            zerolog.Logger
}

// NewAttendanceController creates a new AttendanceController
func NewAttendanceController(attendanceService *services.AttendanceService, logger zerolog.Logger) *AttendanceController {
	return &AttendanceController{attendanceService: attendanceService, logger: logger}
}

// Page renders GET /attendance?date=&batch_id=. A missing or malformed date
// shows today.
func (c *AttendanceController) Page(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	date, err := domain.ParseDate(ctx.Query("date"))
	if err != nil {
		date = domain.Date{}
	}

	page, err := c.attendanceService.Page(ctx.Request.Context(), id.TutorID, date, queryID(ctx, "batch_id"))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "attendance.html", gin.H{"Page": page})
}

// Save answers POST /api/attendance/save. The page script reads success and
// error from the body, so failures keep the same shape.
func (c *AttendanceController) Save(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var req dto.SaveAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.SaveAttendanceResponse{Error: "Invalid attendance data"})
		return
	}

	saved, err := c.attendanceService.Save(ctx.Request.Context(), id.TutorID, req)
	if err != nil {
		status := middleware.StatusOf(err)
		if status >= http.StatusInternalServerError {
			c.logger.Error().Err(err).Int64("tutorID", id.TutorID).Str("date", req.Date).Msg("Failed to save attendance")
		}
		ctx.JSON(status, dto.SaveAttendanceResponse{Error: middleware.UserMessage(err)})
		return
	}
	ctx.JSON(http.StatusOK, dto.SaveAttendanceResponse{Success: true, SavedCount: saved})
}
