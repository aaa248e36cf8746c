package handler

import (
	"fmt"
	"net/http"
	"time"

	"costportal/internal/middleware"
	"costportal/internal/model"
	"costportal/internal/service"
	"costportal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	exportService service.ExportService
}

func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleMaster, model.RoleApprover, model.RoleViewer)
	editor := middleware.RequireRole(model.RoleMaster, model.RoleApprover)

	router.GET("/api/requests/export", anyRole, h.Export)
	router.GET("/api/requests/template", editor, h.Template)
	router.POST("/api/requests/import", editor, h.Import)
}

// Export streams the filtered request list as a spreadsheet
func (h *ExportHandler) Export(c *gin.Context) {
	wb, err := h.exportService.Export(c.Request.Context(), parseFilter(c), actorFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	defer wb.Close()

	filename := fmt.Sprintf("solicitacoes_%s.xlsx", time.Now().Format("2006-01-02"))
	writeWorkbook(c, wb, filename)
}

// Template streams the headers-only import workbook
func (h *ExportHandler) Template(c *gin.Context) {
	wb, err := h.exportService.BuildTemplate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	defer wb.Close()

	writeWorkbook(c, wb, "modelo_importacao.xlsx")
}

// Import ingests a filled template as approved historical records
func (h *ExportHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "missing file upload"))
		return
	}
	defer file.Close()

	summary, err := h.exportService.Import(c.Request.Context(), file, actorFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

func writeWorkbook(c *gin.Context, wb *excelize.File, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", xlsxContentType)
	if err := wb.Write(c.Writer); err != nil {
		// headers are already out; nothing left to do but log via gin
		_ = c.Error(err)
	}
}
