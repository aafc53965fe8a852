package audit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/audit"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, perm handler.PermissionFunc) {
	logs := r.Group("/audit")
	{
		logs.GET("", perm(rbac.ActionView, rbac.ResourceAudit), h.List)
		logs.GET("/export", perm(rbac.ActionExport, rbac.ResourceAudit), h.Export)
	}
}

// RegisterGlobalRoutes mounts the cross-tenant trail outside the
// tenant-scoped group; it needs no clinic resolution.
func (h *Handler) RegisterGlobalRoutes(r *gin.RouterGroup, superOnly gin.HandlerFunc) {
	r.GET("/audit/global", superOnly, h.ListGlobal)
}

func (h *Handler) List(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}

	var filters model.AuditFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	logs, total, err := h.service.List(c.Request.Context(), clinicID, &filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(logs, total, filters.Page, filters.PageSize))
}

func (h *Handler) ListGlobal(c *gin.Context) {
	var filters model.AuditFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	logs, total, err := h.service.ListGlobal(c.Request.Context(), &filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(logs, total, filters.Page, filters.PageSize))
}

// Export streams the filtered trail as CSV.
func (h *Handler) Export(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}

	var filters model.AuditFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}
	filters.PageSize = 100

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"id", "user_id", "action", "resource", "resource_id", "details", "ip_address", "user_agent", "success", "created_at"})

	filters.Page = 1
	written := 0
	for {
		logs, total, err := h.service.List(c.Request.Context(), clinicID, &filters)
		if err != nil {
			handler.WriteError(c, err)
			return
		}
		for _, entry := range logs {
			w.Write([]string{
				entry.ID.String(),
				entry.UserID.String(),
				entry.Action,
				entry.Resource,
				entry.ResourceID,
				entry.Details,
				entry.IPAddress,
				entry.UserAgent,
				fmt.Sprintf("%t", entry.Success),
				entry.CreatedAt.Format(time.RFC3339),
			})
		}
		written += len(logs)
		if written >= total || len(logs) == 0 {
			break
		}
		filters.Page++
	}
	w.Flush()

	filename := fmt.Sprintf("audit-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
