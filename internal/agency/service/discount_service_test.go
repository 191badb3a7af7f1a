package service

import (
	"testing"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluateDiscount(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		code     *entity.DiscountCode
		total    string
		currency string
		valid    bool
		amount   string
		percent  string
		message  string
	}{
		{
			name:    "percentage",
			code:    &entity.DiscountCode{Code: "SALE10", Type: entity.DiscountPercentage, Value: dec("10"), IsActive: true},
			total:   "1500",
			valid:   true,
			amount:  "150",
			percent: "10",
		},
		{
			name:    "percentage rounds to cents",
			code:    &entity.DiscountCode{Code: "ODD", Type: entity.DiscountPercentage, Value: dec("7.5"), IsActive: true},
			total:   "99.99",
			valid:   true,
			amount:  "7.5",
			percent: "7.5",
		},
		{
			name:    "fixed",
			code:    &entity.DiscountCode{Code: "MINUS300", Type: entity.DiscountFixed, Value: dec("300"), IsActive: true},
			total:   "1500",
			valid:   true,
			amount:  "300",
			percent: "20",
		},
		{
			name:    "fixed capped at total",
			code:    &entity.DiscountCode{Code: "BIG", Type: entity.DiscountFixed, Value: dec("2000"), IsActive: true},
			total:   "1500",
			valid:   true,
			amount:  "1500",
			percent: "100",
		},
		{
			name:    "full percentage",
			code:    &entity.DiscountCode{Code: "FREE", Type: entity.DiscountPercentage, Value: dec("100"), IsActive: true},
			total:   "1500",
			valid:   true,
			amount:  "1500",
			percent: "100",
		},
		{
			name:    "percentage above hundred",
			code:    &entity.DiscountCode{Code: "P150", Type: entity.DiscountPercentage, Value: dec("150"), IsActive: true},
			total:   "1000",
			message: "Discount code is misconfigured",
		},
		{
			name:     "fixed in cart currency",
			code:     &entity.DiscountCode{Code: "RUB500", Type: entity.DiscountFixed, Value: dec("500"), Currency: "RUB", IsActive: true},
			total:    "1000",
			currency: "rub",
			valid:    true,
			amount:   "500",
			percent:  "50",
		},
		{
			name:     "fixed in another currency",
			code:     &entity.DiscountCode{Code: "USD50", Type: entity.DiscountFixed, Value: dec("50"), Currency: "USD", IsActive: true},
			total:    "1000",
			currency: "RUB",
			message:  "Discount code is not valid for RUB",
		},
		{
			name:    "not found",
			total:   "100",
			message: "Discount code not found",
		},
		{
			name:    "inactive",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1")},
			total:   "100",
			message: "Discount code is inactive",
		},
		{
			name:    "not started",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1"), IsActive: true, ValidFrom: &future},
			total:   "100",
			message: "Discount code is not active yet",
		},
		{
			name:    "expired",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1"), IsActive: true, ValidUntil: &past},
			total:   "100",
			message: "Discount code has expired",
		},
		{
			name:    "usage limit",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1"), IsActive: true, MaxUses: 3, UsedCount: 3},
			total:   "100",
			message: "Discount code usage limit reached",
		},
		{
			name:    "empty cart",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1"), IsActive: true},
			total:   "0",
			message: "Cart is empty",
		},
		{
			name:    "below minimum",
			code:    &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("1"), IsActive: true, MinCartTotal: dec("500")},
			total:   "499.99",
			message: "Cart total is below the minimum for this code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := EvaluateDiscount(tt.code, dec(tt.total), tt.currency, now)
			assert.Equal(t, tt.valid, res.IsValid)
			if !tt.valid {
				assert.Equal(t, tt.message, res.Message)
				assert.True(t, res.DiscountAmount.IsZero())
				return
			}
			assert.True(t, dec(tt.amount).Equal(res.DiscountAmount), "amount %s", res.DiscountAmount)
			assert.True(t, dec(tt.percent).Equal(res.DiscountPercentage), "percent %s", res.DiscountPercentage)
		})
	}
}

func TestEvaluateDiscount_WindowBoundsInclusive(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	code := &entity.DiscountCode{Type: entity.DiscountFixed, Value: dec("5"), IsActive: true, ValidFrom: &now, ValidUntil: &now}

	res := EvaluateDiscount(code, dec("10"), "RUB", now)

	assert.True(t, res.IsValid)
}
