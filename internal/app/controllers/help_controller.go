package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// HelpController answers the help widget of both roles
type HelpController struct {
	helpService *services.HelpService
}

// NewHelpController creates a new HelpController
func NewHelpController(helpService *services.HelpService) *HelpController {
	return &HelpController{helpService: helpService}
}

// Query answers POST /api/help-bot/query.
func (c *HelpController) Query(ctx *gin.Context) {
	var req dto.HelpBotQuery
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleAPIError(ctx, middleware.BindError(err))
		return
	}

	resp, err := c.helpService.Ask(middleware.CurrentIdentity(ctx), req.Query)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
