package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/model"
	authsvc "github.com/medbook/booking-api/internal/service/auth"
	clinicsvc "github.com/medbook/booking-api/internal/service/clinic"
)

type Handler struct {
	auth    *authsvc.Service
	clinics *clinicsvc.Service
}

func NewHandler(auth *authsvc.Service, clinics *clinicsvc.Service) *Handler {
	return &Handler{auth: auth, clinics: clinics}
}

// RegisterPublicRoutes mounts login, signup and refresh; these need no
// token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}
}

// RegisterRoutes mounts the authenticated session endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	clinic, owner, err := h.clinics.Signup(c.Request.Context(), &req, handler.ActorFromContext(c))
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"clinic": clinic,
		"owner":  owner,
	}))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	tokens, user, err := h.auth.Login(c.Request.Context(), &req, handler.ActorFromContext(c))
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"tokens": tokens,
		"user":   user,
	}))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(handler.BindingError(err)))
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Logout(c *gin.Context) {
	claims := handler.ClaimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req logoutRequest
	c.ShouldBindJSON(&req) // optional body

	accessToken := ""
	if parts := strings.Split(c.GetHeader("Authorization"), " "); len(parts) == 2 {
		accessToken = parts[1]
	}

	h.auth.Logout(c.Request.Context(), accessToken, req.RefreshToken, claims, handler.ActorFromContext(c))
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "logged out"}))
}
