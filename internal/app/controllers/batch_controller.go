package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/domain"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/helpers"
)

const batchesPath = "/batches"

// BatchController handles batch pages and deletion
type BatchController struct {
	batchService *services.BatchService
}

// NewBatchController creates a new BatchController
func NewBatchController(batchService *services.BatchService) *BatchController {
	return &BatchController{batchService: batchService}
}

// batchForm maps a stored batch onto the edit form.
func batchForm(b *models.Batch) dto.BatchRequest {
	return dto.BatchRequest{
		Name:                 b.Name,
		Description:          b.Description,
		StartTime:            b.StartTime,
		EndTime:              b.EndTime,
		Days:                 domain.DaySetOf(b.Days).Codes(),
		NotificationsEnabled: b.NotificationsEnabled,
	}
}

func formDays(req dto.BatchRequest) string {
	return strings.Join(req.Days, ",")
}

// List renders one page of batches, newest first.
func (c *BatchController) List(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	batches, pagination, err := c.batchService.List(ctx.Request.Context(), id.TutorID, helpers.ParsePage(ctx))
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "batches.html", gin.H{"Batches": batches, "Pagination": pagination})
}

// New renders the empty batch form.
func (c *BatchController) New(ctx *gin.Context) {
	render(ctx, http.StatusOK, "batch_form.html", gin.H{
		"Form": dto.BatchRequest{NotificationsEnabled: true},
		"Days": "",
	})
}

// Create stores a new batch.
func (c *BatchController) Create(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var req dto.BatchRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "batch_form.html", gin.H{"Form": req, "Days": formDays(req)}, middleware.BindError(err))
		return
	}

	batch, err := c.batchService.Create(ctx.Request.Context(), id.TutorID, req)
	if err != nil {
		renderForm(ctx, "batch_form.html", gin.H{"Form": req, "Days": formDays(req)}, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Batch %q created successfully!", batch.Name), batchesPath)
}

// Show renders a batch with one page of its students.
func (c *BatchController) Show(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, batchesPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	detail, err := c.batchService.Detail(ctx.Request.Context(), id.TutorID, batchID, helpers.ParsePage(ctx))
	if err != nil {
		pageError(ctx, err, batchesPath)
		return
	}
	render(ctx, http.StatusOK, "batch_detail.html", gin.H{"Detail": detail})
}

// Edit renders the form of an existing batch.
func (c *BatchController) Edit(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, batchesPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	batch, err := c.batchService.Get(ctx.Request.Context(), id.TutorID, batchID)
	if err != nil {
		pageError(ctx, err, batchesPath)
		return
	}
	render(ctx, http.StatusOK, "batch_form.html", gin.H{"Batch": batch, "Form": batchForm(batch), "Days": batch.Days})
}

// Update saves an edited batch.
func (c *BatchController) Update(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, batchesPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)
	data := gin.H{"Batch": &models.Batch{ID: batchID}}

	var req dto.BatchRequest
	if err := ctx.ShouldBind(&req); err != nil {
		data["Form"], data["Days"] = req, formDays(req)
		renderForm(ctx, "batch_form.html", data, middleware.BindError(err))
		return
	}

	batch, err := c.batchService.Update(ctx.Request.Context(), id.TutorID, batchID, req)
	if err != nil {
		if isNotFoundError(err) {
			pageError(ctx, err, batchesPath)
			return
		}
		data["Form"], data["Days"] = req, formDays(req)
		renderForm(ctx, "batch_form.html", data, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, fmt.Sprintf("Batch %q updated successfully!", batch.Name), fmt.Sprintf("/batches/%d", batch.ID))
}

// Delete answers DELETE /api/batches/:id. A batch with students is refused.
func (c *BatchController) Delete(ctx *gin.Context) {
	batchID, ok := idParam(ctx, "id")
	if !ok {
		invalidID(ctx, batchesPath)
		return
	}
	id := middleware.CurrentIdentity(ctx)

	if err := c.batchService.Delete(ctx.Request.Context(), id.TutorID, batchID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respondOK(ctx, nil)
}
