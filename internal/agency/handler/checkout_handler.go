package handler

import (
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler storefront checkout sessions under /api/v1/checkout
type CheckoutHandler struct {
	svc *service.CheckoutService
}

func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type StartCheckoutRequest struct {
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

func (h *CheckoutHandler) Start(c *gin.Context) {
	var req StartCheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			ValidationFailed(c, err)
			return
		}
	}
	sess, err := h.svc.Start(c.Request.Context(), req.Currency)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, sess)
}

func (h *CheckoutHandler) Get(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

type SetItemsRequest struct {
	Items []service.PaymentItem `json:"items"`
}

func (h *CheckoutHandler) SetItems(c *gin.Context) {
	var req SetItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	sess, err := h.svc.SetItems(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

func (h *CheckoutHandler) SetContact(c *gin.Context) {
	var req service.PaymentCustomer
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	sess, err := h.svc.SetContact(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

type StepRequest struct {
	Step string `json:"step" binding:"required,oneof=cart contact payment"`
}

func (h *CheckoutHandler) GoTo(c *gin.Context) {
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	sess, err := h.svc.GoTo(c.Request.Context(), c.Param("id"), req.Step)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

type DiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *CheckoutHandler) ApplyDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	sess, res, err := h.svc.ApplyDiscount(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"session": sess, "discount": res})
}

func (h *CheckoutHandler) RemoveDiscount(c *gin.Context) {
	sess, err := h.svc.RemoveDiscount(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

func (h *CheckoutHandler) Providers(c *gin.Context) {
	items, err := h.svc.Providers(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

type ProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

func (h *CheckoutHandler) SetProvider(c *gin.Context) {
	var req ProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	sess, err := h.svc.SetProvider(c.Request.Context(), c.Param("id"), req.Provider)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sess)
}

type PayRequest struct {
	ReturnURL string `json:"returnUrl" binding:"required,url"`
	FailURL   string `json:"failUrl" binding:"omitempty,url"`
}

func (h *CheckoutHandler) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	res, err := h.svc.Pay(c.Request.Context(), c.Param("id"), service.PayInput{
		ReturnURL:      req.ReturnURL,
		FailURL:        req.FailURL,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		CustomerID:     GetUserID(c),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, res)
}
