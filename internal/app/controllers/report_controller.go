package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

const reportsPath = "/reports"

// ReportController serves the attendance report pages
type ReportController struct {
	reportService *services.ReportService
}

// NewReportController creates a new ReportController
func NewReportController(reportService *services.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// Overview renders the monthly per-batch and per-student summary.
func (c *ReportController) Overview(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	overview, err := c.reportService.Overview(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "reports.html", gin.H{"Overview": overview})
}

// Batch renders the 30-day report of one batch with the statuses of ?date=.
func (c *ReportController) Batch(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, reportsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	selected, err := domain.ParseDate(ctx.Query("date"))
	if err != nil {
		selected = domain.Date{}
	}

	report, err := c.reportService.BatchReport(ctx.Request.Context(), id.TutorID, batchID, selected)
	if err != nil {
		pageError(ctx, err, reportsPath)
		return
	}
	render(ctx, http.StatusOK, "report_batch.html", gin.H{"Report": report})
}

// Student renders the current month grid of one student.
func (c *ReportController) Student(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, reportsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	report, err := c.reportService.StudentReport(ctx.Request.Context(), id.TutorID, studentID)
	if err != nil {
		pageError(ctx, err, reportsPath)
		return
	}
	render(ctx, http.StatusOK, "report_student.html", gin.H{"Report": report})
}

// StudentPDF downloads the month grid of one student.
func (c *ReportController) StudentPDF(ctx *gin.Context) {
	studentID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, reportsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	var buf bytes.Buffer
	if err := c.reportService.WriteStudentPDF(ctx.Request.Context(), id.TutorID, studentID, &buf); err != nil {
		pageError(ctx, err, reportsPath)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%d.pdf"`, studentID))
	ctx.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
