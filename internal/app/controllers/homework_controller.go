package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

const homeworkPath = "/homework"

// HomeworkController handles homework pages and deletion
type HomeworkController struct {
	homeworkService    *services.HomeworkService
	batchService       *services.BatchService
	studentService     *services.StudentService
	maintenanceService *services.MaintenanceService
	logger             zerolog.Logger
}

// NewHomeworkController creates a new HomeworkController
func NewHomeworkController(
	homeworkService *services.HomeworkService,
	batchService *services.BatchService,
	studentService *services.StudentService,
	maintenanceService *services.MaintenanceService,
	logger zerolog.Logger,
) *HomeworkController {
	return &HomeworkController{
		homeworkService:    homeworkService,
		batchService:       batchService,
		studentService:     studentService,
		maintenanceService: maintenanceService,
		logger:             logger,
	}
}

func homeworkForm(h *models.Homework) dto.HomeworkRequest {
	return dto.HomeworkRequest{
		Title:          h.Title,
		Content:        h.Content,
		BatchID:        helpers.IDValue(h.BatchID),
		StudentID:      helpers.IDValue(h.StudentID),
		VideoURL:       h.VideoURL,
		SubmissionDate: h.DueDate().String(),
	}
}

// formData loads the batch and student dropdowns.
func (c *HomeworkController) formData(ctx *gin.Context, form dto.HomeworkRequest) (gin.H, error) {
	id := middleware.CurrentIdentity(ctx)
	batches, err := c.batchService.ListAll(ctx.Request.Context(), id.TutorID)
	if err != nil {
		return nil, err
	}
	students, err := c.studentService.ListAll(ctx.Request.Context(), id.TutorID)
	if err != nil {
		return nil, err
	}
	return gin.H{"Form": form, "Batches": batches, "Students": students}, nil
}

// upload returns the attached file, nil when none was sent.
func upload(ctx *gin.Context) (*multipart.FileHeader, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return nil, apperrors.NewValidationError("file", "File is too large")
		}
		return nil, apperrors.NewValidationError("file", "Could not read the uploaded file")
	}
	return fh, nil
}

// List renders the unexpired homework. Expired rows are purged first.
func (c *HomeworkController) List(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	c.maintenanceService.RunQuietly(ctx.Request.Context())

	homework, pagination, err := c.homeworkService.List(ctx.Request.Context(), id.TutorID, helpers.ParsePage(ctx))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "homework.html", gin.H{"Homework": homework, "Pagination": pagination})
}

// New renders the empty share form.
func (c *HomeworkController) New(ctx *gin.Context) {
	data, err := c.formData(ctx, dto.HomeworkRequest{
		BatchID:   queryID(ctx, "batch_id"),
		StudentID: queryID(ctx, "student_id"),
	})
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "homework_form.html", data)
}

// Create shares new homework with an optional attachment.
func (c *HomeworkController) Create(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var req dto.HomeworkRequest
	bindErr := ctx.ShouldBind(&req)
	data, err := c.formData(ctx, req)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	if bindErr != nil {
		renderForm(ctx, "homework_form.html", data, middleware.BindError(bindErr))
		return
	}
	fh, err := upload(ctx)
	if err != nil {
		renderForm(ctx, "homework_form.html", data, err)
		return
	}

	h, err := c.homeworkService.Create(ctx.Request.Context(), id.TutorID, req, fh)
	if err != nil {
		renderForm(ctx, "homework_form.html", data, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Homework %s shared successfully!", h.Title), homeworkPath)
}

// Edit renders the form of existing homework.
func (c *HomeworkController) Edit(ctx *gin.Context) {
	homeworkID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, homeworkPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	h, err := c.homeworkService.Get(ctx.Request.Context(), id.TutorID, homeworkID)
	if err != nil {
		pageError(ctx, err, homeworkPath)
		return
	}
	data, err := c.formData(ctx, homeworkForm(h))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	data["Homework"] = h
	render(ctx, http.StatusOK, "homework_form.html", data)
}

// Update saves edited homework. A new file replaces the stored one.
func (c *HomeworkController) Update(ctx *gin.Context) {
	homeworkID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, homeworkPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	current, err := c.homeworkService.Get(ctx.Request.Context(), id.TutorID, homeworkID)
	if err != nil {
		pageError(ctx, err, homeworkPath)
		return
	}

	var req dto.HomeworkRequest
	bindErr := ctx.ShouldBind(&req)
	data, err := c.formData(ctx, req)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	data["Homework"] = current
	if bindErr != nil {
		renderForm(ctx, "homework_form.html", data, middleware.BindError(bindErr))
		return
	}
	fh, err := upload(ctx)
	if err != nil {
		renderForm(ctx, "homework_form.html", data, err)
		return
	}

	h, err := c.homeworkService.Update(ctx.Request.Context(), id.TutorID, homeworkID, req, fh)
	if err != nil {
		if isNotFoundError(err) {
			pageError(ctx, err, homeworkPath)
			return
		}
		renderForm(ctx, "homework_form.html", data, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Homework %s updated successfully!", h.Title), homeworkPath)
}

// Delete answers DELETE /api/homework/:id.
func (c *HomeworkController) Delete(ctx *gin.Context) {
	homeworkID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, homeworkPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	if err := c.homeworkService.Delete(ctx.Request.Context(), id.TutorID, homeworkID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil)
}
