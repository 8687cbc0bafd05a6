package controllers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// UploadController serves homework attachments to the people allowed to
// see them
type UploadController struct {
	homeworkService *services.HomeworkService
	logger          zerolog.Logger
}

// NewUploadController creates a new UploadController
func NewUploadController(homeworkService *services.HomeworkService, logger zerolog.Logger) *UploadController {
	return &UploadController{homeworkService: homeworkService, logger: logger}
}

// Serve streams GET /uploads/*key.
func (c *UploadController) Serve(ctx *gin.Context) {
	key := strings.TrimPrefix(ctx.Param("key"), "/")

	rc, ext, err := c.homeworkService.OpenAttachment(ctx.Request.Context(), middleware.CurrentIdentity(ctx), key)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Header("Content-Type", contentType)
	ctx.Header("Content-Disposition", `inline; filename="`+path.Base(key)+`"`)
	ctx.Header("Cache-Control", "private, max-age=300")
	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, rc); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Attachment transfer interrupted")
	}
}
