package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

// AccountHandler personal dashboard and gamification
type AccountHandler struct {
	svc *service.GamificationService
}

func NewAccountHandler(svc *service.GamificationService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Dashboard GET /api/account/dashboard
func (h *AccountHandler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, d)
}

// CheckIn POST /api/account/check-in awards the daily login XP once per UTC day.
func (h *AccountHandler) CheckIn(c *gin.Context) {
	res, recorded, err := h.svc.CheckIn(c.Request.Context(), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"checkedIn": recorded, "result": res})
}
