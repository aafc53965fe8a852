package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/service/notification"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts manual notification sending and history. Both
// ride on the settings permission; there is no dedicated notification
// resource in the permission table.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, perm handler.PermissionFunc) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", perm(rbac.ActionManage, rbac.ResourceSettings), h.Send)
		notifications.GET("", perm(rbac.ActionView, rbac.ResourceSettings), h.List)
		notifications.GET("/:id", perm(rbac.ActionView, rbac.ResourceSettings), h.Get)
	}
}

func (h *Handler) Send(c *gin.Context) {
	var req model.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	clinicID, ok := handler.ResolveClinicID(c, req.ClinicID)
	if !ok {
		return
	}

	userID := uuid.Nil
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
			return
		}
		userID = parsed
	}

	sent, err := h.service.Send(c.Request.Context(), clinicID, userID, &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(sent))
}

func (h *Handler) Get(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	found, svcErr := h.service.Get(c.Request.Context(), id)
	if svcErr != nil {
		handler.WriteError(c, svcErr)
		return
	}
	if found.ClinicID != clinicID {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("notification not found"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) List(c *gin.Context) {
	clinicID, ok := handler.ClinicIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("clinic ID required"))
		return
	}

	var pagination model.Pagination
	if err := c.ShouldBindQuery(&pagination); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	notifications, total, err := h.service.List(c.Request.Context(), clinicID, &pagination)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(notifications, total, pagination.Page, pagination.PageSize))
}
