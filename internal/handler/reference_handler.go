package handler

import (
	"net/http"

	"costportal/internal/middleware"
	"costportal/internal/model"
	"costportal/internal/service"
	"costportal/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReferenceHandler serves the lookup tables behind the request form:
// branches, occurrence reasons, and carriers.
type ReferenceHandler struct {
	branchService  service.BranchService
	reasonService  service.ReasonService
	carrierService service.CarrierService
}

func NewReferenceHandler(branchService service.BranchService, reasonService service.ReasonService, carrierService service.CarrierService) *ReferenceHandler {
	return &ReferenceHandler{
		branchService:  branchService,
		reasonService:  reasonService,
		carrierService: carrierService,
	}
}

func (h *ReferenceHandler) RegisterRoutes(router *gin.RouterGroup) {
	// The public form needs the lookup lists before any login
	router.GET("/api/public/branches", h.ListBranches)
	router.GET("/api/public/reasons", h.ListReasons)
	router.GET("/api/public/carriers", h.ListCarriers)

	master := middleware.RequireRole(model.RoleMaster)

	branches := router.Group("/api/branches")
	{
		branches.GET("", middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer), h.ListBranches)
		branches.POST("", master, h.SaveBranch)
		branches.DELETE("/:uf", master, h.DeleteBranch)
	}

	reasons := router.Group("/api/reasons")
	{
		reasons.GET("", middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer), h.ListReasons)
		reasons.POST("", master, h.SaveReason)
		reasons.DELETE("/:key", master, h.DeleteReason)
	}

	carriers := router.Group("/api/carriers")
	{
		carriers.GET("", middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer), h.ListCarriers)
		carriers.POST("", master, h.CreateCarrier)
		carriers.PUT("/:id", master, h.UpdateCarrier)
		carriers.DELETE("/:id", master, h.DeleteCarrier)
	}
}

// --- Branches ---

func (h *ReferenceHandler) ListBranches(c *gin.Context) {
	branches, err := h.branchService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
}

func (h *ReferenceHandler) SaveBranch(c *gin.Context) {
	var dto service.BranchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	branch, err := h.branchService.Save(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

func (h *ReferenceHandler) DeleteBranch(c *gin.Context) {
	if err := h.branchService.Delete(c.Request.Context(), c.Param("uf")); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Reasons ---

func (h *ReferenceHandler) ListReasons(c *gin.Context) {
	reasons, err := h.reasonService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reasons))
}

func (h *ReferenceHandler) SaveReason(c *gin.Context) {
	var dto service.ReasonDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	reason, err := h.reasonService.Save(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reason))
}

func (h *ReferenceHandler) DeleteReason(c *gin.Context) {
	if err := h.reasonService.Delete(c.Request.Context(), c.Param("key")); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// --- Carriers ---

func (h *ReferenceHandler) ListCarriers(c *gin.Context) {
	carriers, err := h.carrierService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, carriers))
}

func (h *ReferenceHandler) CreateCarrier(c *gin.Context) {
	var dto service.CarrierDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	carrier, err := h.carrierService.Create(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, carrier))
}

func (h *ReferenceHandler) UpdateCarrier(c *gin.Context) {
	var dto service.CarrierDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	carrier, err := h.carrierService.Update(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, carrier))
}

func (h *ReferenceHandler) DeleteCarrier(c *gin.Context) {
	if err := h.carrierService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
