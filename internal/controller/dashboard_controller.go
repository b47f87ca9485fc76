package controller

import (
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// GetDashboard godoc
// @Summary Admin dashboard
// @Description Catalog counts, payment totals, wallet totals and the most completed topics
// @Tags Dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param refresh query bool false "Skip the cached copy"
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/v1/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	if queryBool(ctx, "refresh") {
		c.DashboardService.Invalidate(ctx.Request.Context())
	}
	dashboard, err := c.DashboardService.GetDashboard(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}
