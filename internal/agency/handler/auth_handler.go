package handler

import (
	"errors"
	"net/http"

	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
	jwt config.JWTConfig
}

func NewAuthHandler(svc *service.AuthService, jwt config.JWTConfig) *AuthHandler {
	if jwt.CookieName == "" {
		jwt.CookieName = middleware.DefaultCookieName
	}
	return &AuthHandler{svc: svc, jwt: jwt}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrUnauthorized) {
		Error(c, 40101, "Invalid email or password")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	h.setCookie(c, res.Token, int(h.svc.TokenTTL().Seconds()))
	Success(c, res)
}

// Logout POST /api/users/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	Success(c, gin.H{"message": "Logged out"})
}

// Me GET /api/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"user": user})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, value, maxAge, "/", "", h.jwt.CookieSecure, true)
}
