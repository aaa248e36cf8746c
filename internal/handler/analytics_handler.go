package handler

import (
	"net/http"

	"costportal/internal/middleware"
	"costportal/internal/model"
	"costportal/internal/service"
	"costportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer)
	router.GET("/api/analytics", anyRole, h.GetDashboard)
}

// GetDashboard returns every BI panel for the filtered record set
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.analyticsService.GetDashboard(c.Request.Context(), parseFilter(c), actorFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
