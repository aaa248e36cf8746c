package handler

import (
	"errors"
	"net/http"
	"time"

	"costportal/internal/filter"
	"costportal/internal/middleware"
	"costportal/internal/model"
	"costportal/internal/service"
	"costportal/pkg/pagination"
	"costportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Unauthenticated entry point for the external request form
	router.POST("/api/public/requests", h.Submit)

	anyRole := middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer)
	editor := middleware.RequireRole(model.RoleMaster, model.RoleApprover)
	master := middleware.RequireRole(model.RoleMaster)

	requests := router.Group("/api/requests")
	{
		requests.GET("", anyRole, h.List)
		requests.POST("", editor, h.Create)
		requests.PUT("/:id", editor, h.Update)
		requests.PUT("/:id/status", editor, h.Transition)
		requests.DELETE("/:id", master, h.Delete)
		requests.POST("/:id/resend-alert", editor, h.ResendAlert)
	}
}

// actorFromContext rebuilds the acting user from claims stashed by the
// auth middleware.
func actorFromContext(c *gin.Context) service.Actor {
	name, _ := c.Get("userName")
	role, _ := c.Get("userRole")
	branch, _ := c.Get("userBranch")

	nameStr, _ := name.(string)
	roleStr, _ := role.(string)
	branchStr, _ := branch.(string)
	return service.Actor{Name: nameStr, Role: roleStr, Branch: branchStr}
}

// parseFilter builds the record filter from query parameters. Per-column
// terms arrive as col[<column>]=<term>.
func parseFilter(c *gin.Context) filter.Filter {
	f := filter.Filter{
		Branch:  c.Query("branch"),
		Carrier: c.Query("carrier"),
		Status:  c.Query("status"),
		Text:    c.Query("q"),
	}

	if start, err := time.Parse("2006-01-02", c.Query("start")); err == nil {
		f.Start = &start
	}
	if end, err := time.Parse("2006-01-02", c.Query("end")); err == nil {
		f.End = &end
	}

	cols := c.QueryMap("col")
	if len(cols) > 0 {
		f.Columns = make(map[filter.Column]string, len(cols))
		for k, v := range cols {
			f.Columns[filter.Column(k)] = v
		}
	}
	return f
}

func respondRequestError(c *gin.Context, err error) {
	var dup *service.DuplicateError
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrForbiddenBranch):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}

// Submit receives a request from the public form
func (h *RequestHandler) Submit(c *gin.Context) {
	var dto service.RequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	force := c.Query("force") == "true"
	result, err := h.requestService.Submit(c.Request.Context(), dto, force)
	if err != nil {
		respondRequestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List returns filtered requests plus status KPIs
func (h *RequestHandler) List(c *gin.Context) {
	result, err := h.requestService.List(c.Request.Context(), parseFilter(c), actorFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	p := pagination.Parse(c)
	total := len(result.Items)
	lo, hi := p.Window(total)
	result.Items = result.Items[lo:hi]

	c.JSON(http.StatusOK, response.SuccessWithMeta(http.StatusOK, result, response.Meta{
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// Create inserts a request from the dashboard
func (h *RequestHandler) Create(c *gin.Context) {
	var dto service.ManagedRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	force := c.Query("force") == "true"
	result, err := h.requestService.Create(c.Request.Context(), dto, actorFromContext(c), force)
	if err != nil {
		respondRequestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// Update edits an existing request
func (h *RequestHandler) Update(c *gin.Context) {
	var dto service.ManagedRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	force := c.Query("force") == "true"
	result, err := h.requestService.Update(c.Request.Context(), c.Param("id"), dto, actorFromContext(c), force)
	if err != nil {
		respondRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Transition decides a pending request
func (h *RequestHandler) Transition(c *gin.Context) {
	var dto service.TransitionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.requestService.Transition(c.Request.Context(), c.Param("id"), dto, actorFromContext(c))
	if err != nil {
		respondRequestError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Delete removes a request
func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		respondRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ResendAlert re-sends the staff notification for a pending request
func (h *RequestHandler) ResendAlert(c *gin.Context) {
	sent, err := h.requestService.ResendStaffAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"notified": sent}))
}
