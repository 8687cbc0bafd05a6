package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// sessionAttendanceShown holds the date whose attendance notification the
// portal already showed.
const sessionAttendanceShown = "attendance_notified"

// PortalController serves the read-only student portal
type PortalController struct {
	portalService   *services.PortalService
	reportService   *services.ReportService
	homeworkService *services.HomeworkService
	maintenance     *services.MaintenanceService
	clock           *domain.Clock
	logger          zerolog.Logger
}

// NewPortalController creates a new PortalController
func NewPortalController(
	portalService *services.PortalService,
	reportService *services.ReportService,
	homeworkService *services.HomeworkService,
	maintenance *services.MaintenanceService,
	clock *domain.Clock,
	logger zerolog.Logger,
) *PortalController {
	return &PortalController{
		portalService:   portalService,
		reportService:   reportService,
		homeworkService: homeworkService,
		maintenance:     maintenance,
		clock:           clock,
		logger:          logger,
	}
}

// student reloads the signed-in student. A student removed by the tutor is
// signed out; the request has been answered when ok is false.
func (c *PortalController) student(ctx *gin.Context) (*models.Student, bool) {
	id := middleware.CurrentIdentity(ctx)
	st, err := c.portalService.Student(ctx.Request.Context(), id.TutorID, id.StudentID)
	if err == nil {
		return st, true
	}
	if !isNotFoundError(err) {
		middleware.HandleError(ctx, err)
		return nil, false
	}

	c.logger.Info().Int64("studentID", id.StudentID).Msg("Portal session of a removed student ended")
	if err := middleware.SignOut(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear session")
	}
	if middleware.IsAPIRequest(ctx) {
		middleware.HandleAPIError(ctx, services.ErrStudentNotFound)
		return nil, false
	}
	redirect(ctx, middleware.FlashError, "Your account is no longer available", "/student/login")
	return nil, false
}

// Dashboard renders the portal landing page.
func (c *PortalController) Dashboard(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	dashboard, err := c.portalService.Dashboard(ctx.Request.Context(), st)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "student_dashboard.html", gin.H{"Dashboard": dashboard})
}

// Attendance renders the current month grid of the student.
func (c *PortalController) Attendance(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	report, err := c.reportService.MonthGrid(ctx.Request.Context(), st)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "student_attendance.html", gin.H{"Report": report})
}

// Homework lists every unexpired homework visible to the student.
func (c *PortalController) Homework(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	c.maintenance.RunQuietly(ctx.Request.Context())

	homework, err := c.homeworkService.ForStudent(ctx.Request.Context(), st, 0)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "student_homework.html", gin.H{"Student": st, "Homework": homework})
}

// Profile renders the student's own details.
func (c *PortalController) Profile(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	render(ctx, http.StatusOK, "student_profile.html", gin.H{"Student": st})
}

// HomeworkReminders answers GET /api/student/homework/reminders.
func (c *PortalController) HomeworkReminders(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	resp, err := c.portalService.HomeworkReminders(ctx.Request.Context(), st)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// AttendanceNotifications answers GET /api/student/attendance/notifications.
// Today's notification is returned once per session.
func (c *PortalController) AttendanceNotifications(ctx *gin.Context) {
	st, ok := c.student(ctx)
	if !ok {
		return
	}
	today := c.clock.Today().String()
	shown := middleware.SessionString(ctx, sessionAttendanceShown) == today

	resp, err := c.portalService.AttendanceNotifications(ctx.Request.Context(), st, shown)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if len(resp.Notifications) > 0 {
		if err := middleware.SetSessionValues(ctx, map[string]interface{}{sessionAttendanceShown: today}); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to remember attendance notification")
		}
	}
	ctx.JSON(http.StatusOK, resp)
}
