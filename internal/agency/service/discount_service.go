package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/shared/metrics"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountResult answer of a code validation
type DiscountResult struct {
	IsValid            bool            `json:"isValid"`
	Code               string          `json:"code,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Message            string          `json:"message,omitempty"`
}

func invalidDiscount(msg string) *DiscountResult {
	return &DiscountResult{IsValid: false, DiscountAmount: decimal.Zero, DiscountPercentage: decimal.Zero, Message: msg}
}

// EvaluateDiscount applies the code rules to a cart total in currency at now.
// An empty currency skips the currency check of fixed codes.
func EvaluateDiscount(d *entity.DiscountCode, cartTotal decimal.Decimal, currency string, now time.Time) *DiscountResult {
	if d == nil {
		return invalidDiscount("Discount code not found")
	}
	if !d.IsActive {
		return invalidDiscount("Discount code is inactive")
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return invalidDiscount("Discount code is not active yet")
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return invalidDiscount("Discount code has expired")
	}
	if d.MaxUses > 0 && d.UsedCount >= d.MaxUses {
		return invalidDiscount("Discount code usage limit reached")
	}
	if !cartTotal.IsPositive() {
		return invalidDiscount("Cart is empty")
	}
	if cartTotal.LessThan(d.MinCartTotal) {
		return invalidDiscount("Cart total is below the minimum for this code")
	}

	res := &DiscountResult{IsValid: true, Code: d.Code}
	switch d.Type {
	case entity.DiscountPercentage:
		if !ValidPercentage(d.Value) {
			return invalidDiscount("Discount code is misconfigured")
		}
		res.DiscountAmount = cartTotal.Mul(d.Value).Div(hundred).Round(2)
	case entity.DiscountFixed:
		if d.Currency != "" && currency != "" && !strings.EqualFold(d.Currency, currency) {
			return invalidDiscount("Discount code is not valid for " + strings.ToUpper(currency))
		}
		if !d.Value.IsPositive() {
			return invalidDiscount("Discount code is misconfigured")
		}
		res.DiscountAmount = d.Value.Round(2)
	default:
		return invalidDiscount("Unsupported discount type")
	}
	res.DiscountAmount = decimal.Min(res.DiscountAmount, cartTotal)
	res.DiscountPercentage = res.DiscountAmount.Div(cartTotal).Mul(hundred).Round(2)
	return res
}

// ValidPercentage reports whether v is a usable percentage discount, 0 < v <= 100.
func ValidPercentage(v decimal.Decimal) bool {
	return v.IsPositive() && v.LessThanOrEqual(hundred)
}

// DiscountService promo code validation
type DiscountService struct {
	repo *repository.DiscountRepository
	now  func() time.Time
}

func NewDiscountService(repo *repository.DiscountRepository) *DiscountService {
	return &DiscountService{repo: repo, now: time.Now}
}

// Validate never fails on business rules; the result carries the reason.
func (s *DiscountService) Validate(ctx context.Context, code string, cartTotal decimal.Decimal, currency string) (*DiscountResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		metrics.IncrementDiscountValidation(false)
		return invalidDiscount("Discount code is required"), nil
	}
	d, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.IncrementDiscountValidation(false)
		return invalidDiscount("Discount code not found"), nil
	}
	if err != nil {
		return nil, err
	}
	res := EvaluateDiscount(d, cartTotal, currency, s.now())
	metrics.IncrementDiscountValidation(res.IsValid)
	return res, nil
}

// RedeemUsage counts one use of the code.
func (s *DiscountService) RedeemUsage(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	return s.repo.IncrementUsage(ctx, code)
}
