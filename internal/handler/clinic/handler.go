package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/clinic"
)

type Handler struct {
	service *clinic.Service
}

func NewHandler(service *clinic.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts clinic management. Creating and listing clinics
// crosses tenants and is restricted to super admins via superOnly.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, perm handler.PermissionFunc, superOnly gin.HandlerFunc) {
	clinics := r.Group("/clinics")
	{
		clinics.POST("", superOnly, h.Create)
		clinics.GET("", superOnly, h.List)
		clinics.GET("/:id", perm(rbac.ActionView, rbac.ResourceClinic), h.Get)
		clinics.PUT("/:id", perm(rbac.ActionManage, rbac.ResourceClinic), h.Update)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	created, err := h.service.Create(c.Request.Context(), handler.ActorFromContext(c), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Get(c *gin.Context) {
	// The path id doubles as the tenant claim: a mismatch with the
	// caller's clinic is rejected here.
	clinicID, ok := handler.ResolveClinicID(c, c.Param("id"))
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), clinicID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) Update(c *gin.Context) {
	clinicID, ok := handler.ResolveClinicID(c, c.Param("id"))
	if !ok {
		return
	}

	var req model.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), clinicID, handler.ActorFromContext(c), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) List(c *gin.Context) {
	var filters model.ClinicFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	clinics, total, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(clinics, total, filters.Page, filters.PageSize))
}
