package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/shared/cache"
	"github.com/braincreator/flow-masters/internal/shared/events"
	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"github.com/braincreator/flow-masters/internal/shared/payment"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail checks the storefront email rule.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// amountTolerance is the accepted gap between client and server totals.
var amountTolerance = decimal.RequireFromString("0.01")

const idempotencyTTL = 24 * time.Hour

// PaymentItem cart line as sent by the storefront
type PaymentItem struct {
	ItemType      string          `json:"itemType"`
	ItemID        string          `json:"itemId"`
	Title         string          `json:"title"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"priceSnapshot"`
}

// PaymentCustomer buyer contact
type PaymentCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CreatePaymentInput storefront payment request
type CreatePaymentInput struct {
	Items          []PaymentItem     `json:"items"`
	Customer       PaymentCustomer   `json:"customer"`
	Provider       string            `json:"provider"`
	Currency       string            `json:"currency"`
	Amount         decimal.Decimal   `json:"amount"`
	ReturnURL      string            `json:"returnUrl"`
	FailURL        string            `json:"failUrl"`
	Metadata       map[string]string `json:"metadata"`
	DiscountCode   string            `json:"discountCode"`
	IdempotencyKey string            `json:"-"`
	CustomerID     string            `json:"-"`
}

// CreatePaymentResult redirect target for the buyer
type CreatePaymentResult struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}

// CartTotals server-side totals of a cart
type CartTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
}

// Subtotal sums quantity times price over items.
func Subtotal(items []PaymentItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.PriceSnapshot.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// PaymentService orders and provider payments
type PaymentService struct {
	orderRepo    *repository.OrderRepository
	discount     *DiscountService
	providers    *payment.Registry
	deduper      *cache.Deduper
	gamification *GamificationService
	publisher    events.Publisher
	cfg          *config.Config
	logger       *zap.Logger
}

func NewPaymentService(
	orderRepo *repository.OrderRepository,
	discount *DiscountService,
	providers *payment.Registry,
	rdb *redis.Client,
	gamification *GamificationService,
	publisher events.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *PaymentService {
	s := &PaymentService{
		orderRepo:    orderRepo,
		discount:     discount,
		providers:    providers,
		gamification: gamification,
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger,
	}
	if rdb != nil {
		s.deduper = cache.NewDeduper(rdb, idempotencyTTL)
	}
	return s
}

// Providers lists enabled providers accepting currency.
func (s *PaymentService) Providers(currency string) []payment.Info {
	return s.providers.ForCurrency(currency)
}

func validateItems(items []PaymentItem) error {
	if len(items) == 0 {
		return validationf("items must not be empty")
	}
	for i, it := range items {
		if it.ItemID == "" {
			return validationf("items[%d].itemId is required", i)
		}
		if it.Quantity <= 0 {
			return validationf("items[%d].quantity must be positive", i)
		}
		if it.PriceSnapshot.IsNegative() {
			return validationf("items[%d].priceSnapshot must not be negative", i)
		}
	}
	return nil
}

// ComputeTotals validates the cart and applies the discount code if any.
func (s *PaymentService) ComputeTotals(ctx context.Context, items []PaymentItem, code, currency string) (*CartTotals, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	t := &CartTotals{Subtotal: Subtotal(items), DiscountAmount: decimal.Zero}
	if strings.TrimSpace(code) != "" {
		res, err := s.discount.Validate(ctx, code, t.Subtotal, currency)
		if err != nil {
			return nil, fmt.Errorf("validate discount: %w", err)
		}
		if !res.IsValid {
			return nil, validationf("%s", res.Message)
		}
		t.DiscountAmount = res.DiscountAmount
	}
	t.Total = t.Subtotal.Sub(t.DiscountAmount)
	return t, nil
}

// CreatePayment validates the request, stores a pending order and asks the provider for a payment page.
func (s *PaymentService) CreatePayment(ctx context.Context, in *CreatePaymentInput) (*CreatePaymentResult, error) {
	email := strings.TrimSpace(in.Customer.Email)
	if !ValidEmail(email) {
		return nil, validationf("customer email is invalid")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = strings.ToUpper(s.cfg.Site.DefaultCurrency)
	}
	provider, err := s.providers.Get(in.Provider)
	if err != nil {
		return nil, validationf("payment provider %q is not available", in.Provider)
	}
	if !payment.Supports(provider, currency) {
		return nil, validationf("payment provider %s does not support %s", provider.Name(), currency)
	}
	if in.ReturnURL == "" {
		return nil, validationf("returnUrl is required")
	}

	totals, err := s.ComputeTotals(ctx, in.Items, in.DiscountCode, currency)
	if err != nil {
		return nil, err
	}
	if in.Amount.Sub(totals.Total).Abs().GreaterThan(amountTolerance) {
		return nil, validationf("amount %s does not match cart total %s", in.Amount.StringFixed(2), totals.Total.StringFixed(2))
	}

	if in.IdempotencyKey != "" && s.deduper != nil {
		if !s.deduper.AcquireOnce(ctx, "payment", in.IdempotencyKey) {
			return nil, fmt.Errorf("%w: duplicate idempotency key", ErrConflict)
		}
	}

	order := &entity.Order{
		ID:             newID(),
		OrderNumber:    newOrderNumber(),
		CustomerEmail:  email,
		CustomerName:   in.Customer.Name,
		CustomerPhone:  in.Customer.Phone,
		Subtotal:       totals.Subtotal,
		DiscountCode:   strings.ToUpper(strings.TrimSpace(in.DiscountCode)),
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		Currency:       currency,
		Provider:       provider.Name(),
		Status:         entity.OrderStatusPending,
		Metadata:       map[string]interface{}{},
	}
	for k, v := range in.Metadata {
		order.Metadata[k] = v
	}
	if in.CustomerID != "" {
		order.CustomerID = &in.CustomerID
	}
	for _, it := range in.Items {
		order.Items = append(order.Items, entity.OrderItem{
			ID:            newID(),
			ItemType:      it.ItemType,
			ItemID:        it.ItemID,
			Title:         it.Title,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.releaseKey(ctx, in.IdempotencyKey)
		return nil, fmt.Errorf("create order: %w", err)
	}

	res, err := provider.CreatePayment(ctx, &payment.CreateRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Amount:         order.Total,
		Currency:       currency,
		Description:    "Order " + order.OrderNumber,
		CustomerEmail:  email,
		ReturnURL:      in.ReturnURL,
		FailURL:        in.FailURL,
		IdempotencyKey: in.IdempotencyKey,
		Metadata:       in.Metadata,
	})
	if err != nil {
		metrics.IncrementPaymentsCreated(provider.Name(), "failed")
		if uerr := s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{"status": entity.OrderStatusFailed}); uerr != nil {
			s.logger.Error("mark order failed", zap.String("order_id", order.ID), zap.Error(uerr))
		}
		s.releaseKey(ctx, in.IdempotencyKey)
		s.logger.Error("payment provider rejected order",
			zap.String("order_id", order.ID),
			zap.String("provider", provider.Name()),
			zap.Error(err))
		return nil, fmt.Errorf("create %s payment: %w", provider.Name(), err)
	}

	err = s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"external_payment_id": res.ExternalID,
		"payment_url":         res.PaymentURL,
	})
	if err != nil {
		return nil, fmt.Errorf("store payment reference: %w", err)
	}
	metrics.IncrementPaymentsCreated(provider.Name(), "ok")

	publish(ctx, s.publisher, s.logger, events.OrderCreated, map[string]interface{}{
		"orderId":  order.ID,
		"number":   order.OrderNumber,
		"total":    order.Total.StringFixed(2),
		"currency": currency,
		"provider": provider.Name(),
	})

	return &CreatePaymentResult{PaymentURL: res.PaymentURL, OrderID: order.ID}, nil
}

func (s *PaymentService) releaseKey(ctx context.Context, key string) {
	if key != "" && s.deduper != nil {
		s.deduper.Release(ctx, "payment", key)
	}
}

func newOrderNumber() string {
	return fmt.Sprintf("FM-%s-%s", time.Now().UTC().Format("060102"), strings.ToUpper(uuid.New().String()[:6]))
}

// HandleWebhook applies a provider notification to its order. Repeated
// notifications for a paid order are no-ops.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, header http.Header, body []byte) error {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return fmt.Errorf("%w: unknown provider %s", ErrNotFound, providerName)
	}
	ev, err := provider.ParseWebhook(ctx, header, body)
	if errors.Is(err, payment.ErrIgnoredEvent) {
		return nil
	}
	if errors.Is(err, payment.ErrInvalidSignature) {
		return fmt.Errorf("%w: invalid webhook signature", ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("parse %s webhook: %w", providerName, err)
	}

	order, err := s.findWebhookOrder(ctx, provider.Name(), ev)
	if err != nil {
		return fmt.Errorf("find order for %s: %w", ev.ExternalID, err)
	}

	switch ev.Status {
	case payment.StatusSucceeded:
		if !ev.Amount.Equal(order.Total) || !strings.EqualFold(ev.Currency, order.Currency) {
			s.logger.Error("paid amount does not match order",
				zap.String("order_id", order.ID),
				zap.String("provider", provider.Name()),
				zap.String("paid", ev.Amount.StringFixed(2)+" "+ev.Currency),
				zap.String("total", order.Total.StringFixed(2)+" "+order.Currency))
			return validationf("paid amount %s %s does not match order total", ev.Amount.StringFixed(2), ev.Currency)
		}
		return s.markPaid(ctx, order)
	case payment.StatusCanceled:
		if order.Status == entity.OrderStatusPending {
			return s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{"status": entity.OrderStatusFailed})
		}
	}
	return nil
}

// findWebhookOrder looks the order up by the provider payment id. The order id
// carried by the event is used only while the order has no payment id stored.
func (s *PaymentService) findWebhookOrder(ctx context.Context, provider string, ev *payment.WebhookEvent) (*entity.Order, error) {
	order, err := s.orderRepo.FindByExternalID(ctx, provider, ev.ExternalID)
	if !errors.Is(err, repository.ErrNotFound) || ev.OrderID == "" {
		return order, err
	}
	order, err = s.orderRepo.FindByID(ctx, ev.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Provider != provider || (order.ExternalPaymentID != "" && order.ExternalPaymentID != ev.ExternalID) {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *PaymentService) markPaid(ctx context.Context, order *entity.Order) error {
	if order.Status == entity.OrderStatusPaid {
		return nil
	}
	changed, err := s.orderRepo.MarkPaid(ctx, order.ID, time.Now())
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !changed {
		return nil
	}

	if err := s.discount.RedeemUsage(ctx, order.DiscountCode); err != nil {
		s.logger.Warn("increment discount usage failed", zap.String("code", order.DiscountCode), zap.Error(err))
	}
	if order.CustomerID != nil {
		if _, err := s.gamification.RecordActivity(ctx, *order.CustomerID, ActivityOrderPaid, XPOrderPaid); err != nil {
			s.logger.Warn("award order xp failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	s.logger.Info("order paid",
		zap.String("order_id", order.ID),
		zap.String("provider", order.Provider),
		zap.String("total", order.Total.StringFixed(2)))
	publish(ctx, s.publisher, s.logger, events.OrderPaid, map[string]interface{}{
		"orderId":    order.ID,
		"number":     order.OrderNumber,
		"customerId": order.CustomerID,
		"total":      order.Total.StringFixed(2),
		"currency":   order.Currency,
	})
	return nil
}

// GetOrder returns an order visible to the actor.
func (s *PaymentService) GetOrder(ctx context.Context, id string, actor Actor) (*entity.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.SeesAllProjects() && (o.CustomerID == nil || *o.CustomerID != actor.UserID) {
		return nil, ErrNotFound
	}
	return o, nil
}
