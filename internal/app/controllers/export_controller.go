package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/export"
)

// Download formats
const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportController serves CSV and spreadsheet downloads
type ExportController struct {
	exportService *services.ExportService
	logger        zerolog.Logger
}

// NewExportController creates a new ExportController
func NewExportController(exportService *services.ExportService, logger zerolog.Logger) *ExportController {
	return &ExportController{exportService: exportService, logger: logger}
}

// send writes the table in the format asked by ?format=, CSV by default.
func (c *ExportController) send(ctx *gin.Context, e *services.Export) {
	var (
		buf         bytes.Buffer
		err         error
		ext         = formatCSV
		contentType = contentTypeCSV
	)
	if ctx.Query("format") == formatXLSX {
		ext, contentType = formatXLSX, contentTypeXLSX
		err = export.WriteXLSX(&buf, e.Table)
	} else {
		err = export.WriteCSV(&buf, e.Table)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("export", e.Name).Msg("Failed to write export")
		middleware.HandlePageError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, e.Name, ext))
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}

// Students downloads the roster.
func (c *ExportController) Students(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	e, err := c.exportService.Students(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	c.send(ctx, e)
}

// Attendance downloads the rows between ?from= and ?to=, optionally for one
// ?batch_id=.
func (c *ExportController) Attendance(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	from, to := c.exportService.AttendanceRange(ctx.Query("from"), ctx.Query("to"))

	e, err := c.exportService.Attendance(ctx.Request.Context(), id.TutorID, from, to, queryID(ctx, "batch_id"))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	c.send(ctx, e)
}

// BatchReport downloads the 30-day summary of one batch.
func (c *ExportController) BatchReport(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, reportsPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	e, err := c.exportService.BatchReport(ctx.Request.Context(), id.TutorID, batchID)
	if err != nil {
		pageError(ctx, err, reportsPath)
		return
	}
	c.send(ctx, e)
}
