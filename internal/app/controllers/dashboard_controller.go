package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// DashboardController serves the tutor landing page and its reminder poll
type DashboardController struct {
	dashboardService *services.DashboardService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService *services.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// Dashboard renders the tutor dashboard.
func (c *DashboardController) Dashboard(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	dashboard, err := c.dashboardService.Dashboard(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "dashboard.html", gin.H{"Dashboard": dashboard})
}

// Upcoming answers GET /api/batches/upcoming with the reminder lists.
func (c *DashboardController) Upcoming(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	resp, err := c.dashboardService.Upcoming(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
