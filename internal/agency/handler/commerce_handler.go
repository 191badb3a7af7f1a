package handler

import (
	"io"
	"net/http"

	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxWebhookBody = 1 << 20

// CommerceHandler catalog, discounts and payments
type CommerceHandler struct {
	catalog  *service.CatalogService
	discount *service.DiscountService
	payments *service.PaymentService
}

func NewCommerceHandler(catalog *service.CatalogService, discount *service.DiscountService, payments *service.PaymentService) *CommerceHandler {
	return &CommerceHandler{catalog: catalog, discount: discount, payments: payments}
}

// Plans GET /api/v1/plans?locale=
func (h *CommerceHandler) Plans(c *gin.Context) {
	tag := h.catalog.Negotiate(c.Query("locale"), c.GetHeader("Accept-Language"))
	plans, err := h.catalog.Plans(c.Request.Context(), tag)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Language", tag.String())
	Success(c, gin.H{"locale": tag.String(), "items": plans})
}

// Services GET /api/v1/services?locale=&type=
func (h *CommerceHandler) Services(c *gin.Context) {
	tag := h.catalog.Negotiate(c.Query("locale"), c.GetHeader("Accept-Language"))
	items, err := h.catalog.Services(c.Request.Context(), tag, c.Query("type"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Language", tag.String())
	Success(c, gin.H{"locale": tag.String(), "items": items})
}

type ValidateDiscountRequest struct {
	Code      string          `json:"code" binding:"required"`
	CartTotal decimal.Decimal `json:"cartTotal"`
	Currency  string          `json:"currency" binding:"omitempty,len=3"`
}

// ValidateDiscount POST /api/v1/discount/validate
func (h *CommerceHandler) ValidateDiscount(c *gin.Context) {
	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	res, err := h.discount.Validate(c.Request.Context(), req.Code, req.CartTotal, req.Currency)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, res)
}

// CreatePayment POST /api/v1/payment/create
func (h *CommerceHandler) CreatePayment(c *gin.Context) {
	var req service.CreatePaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	req.CustomerID = GetUserID(c)

	res, err := h.payments.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, res)
}

// Webhook POST /api/v1/payment/webhook/:provider
func (h *CommerceHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	if err := h.payments.HandleWebhook(c.Request.Context(), c.Param("provider"), c.Request.Header, body); err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"received": true})
}

// GetOrder GET /api/v1/orders/:id
func (h *CommerceHandler) GetOrder(c *gin.Context) {
	order, err := h.payments.GetOrder(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, order)
}
