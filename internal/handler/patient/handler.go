package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/patient"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, perm handler.PermissionFunc) {
	patients := r.Group("/patients")
	{
		patients.POST("", perm(rbac.ActionCreate, rbac.ResourcePatient), h.Create)
		patients.GET("", perm(rbac.ActionView, rbac.ResourcePatient), h.List)
		patients.GET("/:id", perm(rbac.ActionView, rbac.ResourcePatient), h.Get)
		patients.PUT("/:id", perm(rbac.ActionUpdate, rbac.ResourcePatient), h.Update)
		patients.DELETE("/:id", perm(rbac.ActionDelete, rbac.ResourcePatient), h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	clinicID, ok := handler.ResolveClinicID(c, req.ClinicID)
	if !ok {
		return
	}

	created, err := h.service.Create(c.Request.Context(), clinicID, handler.ActorFromContext(c), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) Get(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	found, svcErr := h.service.Get(c.Request.Context(), clinicID, id)
	if svcErr != nil {
		handler.WriteError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) Update(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	updated, svcErr := h.service.Update(c.Request.Context(), clinicID, id, handler.ActorFromContext(c), &req)
	if svcErr != nil {
		handler.WriteError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Delete(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	if svcErr := h.service.Delete(c.Request.Context(), clinicID, id, handler.ActorFromContext(c)); svcErr != nil {
		handler.WriteError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "patient deleted"}))
}

func (h *Handler) List(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}

	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	patients, total, err := h.service.List(c.Request.Context(), clinicID, &filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(patients, total, filters.Page, filters.PageSize))
}
