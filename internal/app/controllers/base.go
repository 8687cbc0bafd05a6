package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/middleware"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
)

// render executes a page template with the values every layout needs.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Identity"] = middleware.CurrentIdentity(ctx)
	data["Flashes"] = middleware.Flashes(ctx)
	data["CSRFToken"] = middleware.CSRFToken(ctx)
	data["Path"] = ctx.Request.URL.Path
	ctx.HTML(status, name, data)
}

// renderForm shows a form again with the error next to its field. Errors
// that are not about the input go to the error page.
func renderForm(ctx *gin.Context, name string, data gin.H, err error) {
	if !isInputError(err) {
		middleware.HandlePageError(ctx, err)
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["Error"] = middleware.UserMessage(err)
	data["ErrorField"] = middleware.FieldOf(err)
	render(ctx, middleware.StatusOf(err), name, data)
}

// isInputError reports errors the user can fix by editing the form.
func isInputError(err error) bool {
	return apperrors.Is(err, apperrors.ErrValidationFailed,
		apperrors.ErrBadRequest,
		apperrors.ErrResourceAlreadyExists,
		apperrors.ErrConflict,
		apperrors.ErrInvalidOTP,
		apperrors.ErrResourceNotFound,
	)
}

// redirect flashes a message and sends the browser to location.
func redirect(ctx *gin.Context, category, message, location string) {
	if message != "" {
		middleware.AddFlash(ctx, category, message)
	}
	ctx.Redirect(http.StatusFound, location)
}

// pageError handles a service error on a page route. Missing rows, including
// rows of another tutor, send the browser back to the listing.
func pageError(ctx *gin.Context, err error, listing string) {
	if isInputError(err) {
		redirect(ctx, middleware.FlashError, middleware.UserMessage(err), listing)
		return
	}
	middleware.HandlePageError(ctx, err)
}

// idParam parses a positive numeric path parameter.
func idParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryID parses an optional numeric query parameter; junk reads as 0.
func queryID(ctx *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(ctx.Query(name), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// invalidID answers a malformed id on either kind of route.
func invalidID(ctx *gin.Context, listing string) {
	if middleware.IsAPIRequest(ctx) {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid ID")
		errorDetail = errorDetail.WithDetails("ID must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	redirect(ctx, middleware.FlashError, "Not found", listing)
}

// respondOK is the {success: true} answer of the JSON mutations.
func respondOK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.APIResponse{Success: true, Data: data})
}

func isNotFoundError(err error) bool {
	return errors.Is(err, apperrors.ErrResourceNotFound)
}
