package export

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/export"
)

type Handler struct {
	service *export.Service
}

func NewHandler(service *export.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, perm handler.PermissionFunc) {
	r.POST("/export", perm(rbac.ActionExport, rbac.ResourceReports), h.Export)
}

// Export renders clinic data as a file download.
func (h *Handler) Export(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	clinicID, ok := handler.ResolveClinicID(c, req.ClinicID)
	if !ok {
		return
	}

	result, err := h.service.Export(c.Request.Context(), clinicID, handler.ActorFromContext(c), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
