package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/shared/cache"
	"github.com/braincreator/flow-masters/internal/shared/payment"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Checkout steps
const (
	StepCart    = "cart"
	StepContact = "contact"
	StepPayment = "payment"
)

var stepRank = map[string]int{StepCart: 0, StepContact: 1, StepPayment: 2}

// CheckoutSession storefront checkout state
type CheckoutSession struct {
	ID           string          `json:"id"`
	Step         string          `json:"step"`
	Items        []PaymentItem   `json:"items"`
	Contact      PaymentCustomer `json:"contact"`
	DiscountCode string          `json:"discountCode,omitempty"`
	Currency     string          `json:"currency"`
	Provider     string          `json:"provider,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Totals       *CartTotals     `json:"totals,omitempty"`
}

// CanEnter reports whether the session may move to step.
// Moving back is always allowed.
func CanEnter(s *CheckoutSession, step string) error {
	target, ok := stepRank[step]
	if !ok {
		return validationf("unknown step %q", step)
	}
	if target <= stepRank[s.Step] {
		return nil
	}
	if target >= stepRank[StepContact] && len(s.Items) == 0 {
		return validationf("Cart is empty")
	}
	if target >= stepRank[StepPayment] && !ValidEmail(strings.TrimSpace(s.Contact.Email)) {
		return validationf("Please enter a valid email")
	}
	return nil
}

// CheckoutService redis backed checkout sessions
type CheckoutService struct {
	sessions *cache.JSONCache
	ttl      time.Duration
	currency string
	discount *DiscountService
	payments *PaymentService
}

func NewCheckoutService(rdb *redis.Client, discount *DiscountService, payments *PaymentService, site config.SiteConfig) *CheckoutService {
	ttl := site.CheckoutTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	currency := strings.ToUpper(site.DefaultCurrency)
	if currency == "" {
		currency = "RUB"
	}
	return &CheckoutService{
		sessions: cache.NewJSONCache(rdb, "checkout"),
		ttl:      ttl,
		currency: currency,
		discount: discount,
		payments: payments,
	}
}

func (s *CheckoutService) Start(ctx context.Context, currency string) (*CheckoutSession, error) {
	if currency == "" {
		currency = s.currency
	}
	sess := &CheckoutSession{
		ID:       newID(),
		Step:     StepCart,
		Items:    []PaymentItem{},
		Currency: strings.ToUpper(currency),
	}
	return s.save(ctx, sess)
}

func (s *CheckoutService) Get(ctx context.Context, id string) (*CheckoutSession, error) {
	var sess CheckoutSession
	err := s.sessions.Get(ctx, id, &sess)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("checkout session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout session: %w", err)
	}
	return s.withTotals(ctx, &sess), nil
}

// withTotals recomputes totals from the items. An invalid stored code contributes nothing.
func (s *CheckoutService) withTotals(ctx context.Context, sess *CheckoutSession) *CheckoutSession {
	t := &CartTotals{Subtotal: Subtotal(sess.Items), DiscountAmount: decimal.Zero}
	if sess.DiscountCode != "" && len(sess.Items) > 0 {
		if res, err := s.discount.Validate(ctx, sess.DiscountCode, t.Subtotal, sess.Currency); err == nil && res.IsValid {
			t.DiscountAmount = res.DiscountAmount
		}
	}
	t.Total = t.Subtotal.Sub(t.DiscountAmount)
	sess.Totals = t
	return sess
}

func (s *CheckoutService) save(ctx context.Context, sess *CheckoutSession) (*CheckoutSession, error) {
	sess.UpdatedAt = time.Now().UTC()
	sess.Totals = nil
	if err := s.sessions.Set(ctx, sess.ID, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}
	return s.withTotals(ctx, sess), nil
}

// SetItems replaces the cart. Emptying the cart sends the session back to the cart step.
func (s *CheckoutService) SetItems(ctx context.Context, id string, items []PaymentItem) (*CheckoutSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := validateItems(items); err != nil {
			return nil, err
		}
	}
	sess.Items = items
	if len(items) == 0 {
		sess.Step = StepCart
		sess.DiscountCode = ""
	}
	return s.save(ctx, sess)
}

func (s *CheckoutService) SetContact(ctx context.Context, id string, contact PaymentCustomer) (*CheckoutSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	contact.Email = strings.TrimSpace(contact.Email)
	sess.Contact = contact
	if sess.Step == StepPayment && !ValidEmail(contact.Email) {
		sess.Step = StepContact
	}
	return s.save(ctx, sess)
}

// GoTo moves the session to step when the gates allow it.
func (s *CheckoutService) GoTo(ctx context.Context, id, step string) (*CheckoutSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanEnter(sess, step); err != nil {
		return nil, err
	}
	sess.Step = step
	return s.save(ctx, sess)
}

// ApplyDiscount validates the code against the current subtotal and stores it.
func (s *CheckoutService) ApplyDiscount(ctx context.Context, id, code string) (*CheckoutSession, *DiscountResult, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.discount.Validate(ctx, code, sess.Totals.Subtotal, sess.Currency)
	if err != nil {
		return nil, nil, err
	}
	if !res.IsValid {
		return nil, res, validationf("%s", res.Message)
	}
	sess.DiscountCode = strings.ToUpper(strings.TrimSpace(code))
	sess, err = s.save(ctx, sess)
	return sess, res, err
}

func (s *CheckoutService) RemoveDiscount(ctx context.Context, id string) (*CheckoutSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.DiscountCode = ""
	return s.save(ctx, sess)
}

// Providers lists providers for the session currency.
func (s *CheckoutService) Providers(ctx context.Context, id string) ([]payment.Info, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.payments.Providers(sess.Currency), nil
}

func (s *CheckoutService) SetProvider(ctx context.Context, id, provider string) (*CheckoutSession, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	found := false
	for _, p := range s.payments.Providers(sess.Currency) {
		if strings.EqualFold(p.Name, provider) {
			found = true
			break
		}
	}
	if !found {
		return nil, validationf("payment provider %q is not available for %s", provider, sess.Currency)
	}
	sess.Provider = strings.ToLower(provider)
	return s.save(ctx, sess)
}

// PayInput final checkout step
type PayInput struct {
	ReturnURL      string
	FailURL        string
	IdempotencyKey string
	CustomerID     string
}

// Pay creates the payment for a session in the payment step and consumes the session.
func (s *CheckoutService) Pay(ctx context.Context, id string, in PayInput) (*CreatePaymentResult, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Step != StepPayment {
		return nil, validationf("checkout is not at the payment step")
	}
	if sess.Provider == "" {
		return nil, validationf("payment provider is not selected")
	}

	res, err := s.payments.CreatePayment(ctx, &CreatePaymentInput{
		Items:          sess.Items,
		Customer:       sess.Contact,
		Provider:       sess.Provider,
		Currency:       sess.Currency,
		Amount:         sess.Totals.Total,
		ReturnURL:      in.ReturnURL,
		FailURL:        in.FailURL,
		DiscountCode:   sess.DiscountCode,
		IdempotencyKey: in.IdempotencyKey,
		CustomerID:     in.CustomerID,
		Metadata:       map[string]string{"checkoutId": sess.ID},
	})
	if err != nil {
		return nil, err
	}
	_ = s.sessions.Delete(ctx, id)
	return res, nil
}
