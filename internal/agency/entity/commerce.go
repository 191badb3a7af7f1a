package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product sellable digital product
type Product struct {
	ID          string                      `json:"id" gorm:"primaryKey;size:36"`
	Slug        string                      `json:"slug" gorm:"size:128;uniqueIndex"`
	Title       string                      `json:"title" gorm:"size:255;not null"`
	Description string                      `json:"description" gorm:"type:text"`
	Price       decimal.Decimal             `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Currency    string                      `json:"currency" gorm:"size:3;not null;default:RUB"`
	Features    datatypes.JSONSlice[string] `json:"features"`
	IsActive    bool                        `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Service agency service offering
type Service struct {
	ID          string                      `json:"id" gorm:"primaryKey;size:36"`
	Slug        string                      `json:"slug" gorm:"size:128;uniqueIndex"`
	Title       string                      `json:"title" gorm:"size:255;not null"`
	Description string                      `json:"description" gorm:"type:text"`
	ServiceType string                      `json:"service_type" gorm:"size:50"`
	Price       decimal.Decimal             `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Currency    string                      `json:"currency" gorm:"size:3;not null;default:RUB"`
	Features    datatypes.JSONSlice[string] `json:"features"`
	TemplateID  *string                     `json:"template_id" gorm:"size:36"`
	IsActive    bool                        `json:"is_active" gorm:"not null"`
	SortOrder   int                         `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (Service) TableName() string {
	return "services"
}

// SubscriptionPlan pricing plan
type SubscriptionPlan struct {
	ID           string                      `json:"id" gorm:"primaryKey;size:36"`
	Slug         string                      `json:"slug" gorm:"size:128;uniqueIndex"`
	Name         string                      `json:"name" gorm:"size:255;not null"`
	Description  string                      `json:"description" gorm:"type:text"`
	Price        decimal.Decimal             `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Currency     string                      `json:"currency" gorm:"size:3;not null;default:RUB"`
	Interval     string                      `json:"interval" gorm:"size:16;default:month"` // month/year
	DurationDays int                         `json:"duration_days" gorm:"default:30"`
	Features     datatypes.JSONSlice[string] `json:"features"`
	IsPopular    bool                        `json:"is_popular" gorm:"default:false"`
	IsActive     bool                        `json:"is_active" gorm:"not null"`
	SortOrder    int                         `json:"sort_order" gorm:"default:0"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Discount types
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCode promo code
type DiscountCode struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	Code         string          `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Type         string          `json:"type" gorm:"size:16;not null"` // percentage/fixed
	Value        decimal.Decimal `json:"value" gorm:"type:numeric(12,2);not null"`
	Currency     string          `json:"currency" gorm:"size:3"`
	MinCartTotal decimal.Decimal `json:"min_cart_total" gorm:"type:numeric(12,2);not null;default:0"`
	MaxUses      int             `json:"max_uses" gorm:"default:0"`
	UsedCount    int             `json:"used_count" gorm:"default:0"`
	ValidFrom    *time.Time      `json:"valid_from"`
	ValidUntil   *time.Time      `json:"valid_until"`
	IsActive     bool            `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

// Order item types
const (
	ItemTypeProduct = "product"
	ItemTypeService = "service"
	ItemTypePlan    = "plan"
)

// Order checkout result
type Order struct {
	ID                string            `json:"id" gorm:"primaryKey;size:36"`
	OrderNumber       string            `json:"order_number" gorm:"size:32;not null;uniqueIndex"`
	CustomerID        *string           `json:"customer_id" gorm:"size:36;index"`
	CustomerEmail     string            `json:"customer_email" gorm:"size:255;not null"`
	CustomerName      string            `json:"customer_name" gorm:"size:128"`
	CustomerPhone     string            `json:"customer_phone" gorm:"size:32"`
	Subtotal          decimal.Decimal   `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	DiscountCode      string            `json:"discount_code" gorm:"size:64"`
	DiscountAmount    decimal.Decimal   `json:"discount_amount" gorm:"type:numeric(12,2);not null;default:0"`
	Total             decimal.Decimal   `json:"total" gorm:"type:numeric(12,2);not null"`
	Currency          string            `json:"currency" gorm:"size:3;not null"`
	Provider          string            `json:"provider" gorm:"size:32"`
	ExternalPaymentID string            `json:"external_payment_id" gorm:"size:128;index"`
	PaymentURL        string            `json:"payment_url" gorm:"size:1024"`
	Status            string            `json:"status" gorm:"size:16;not null;default:pending"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	PaidAt            *time.Time        `json:"paid_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem line with price snapshot
type OrderItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	OrderID       string          `json:"order_id" gorm:"size:36;not null;index"`
	ItemType      string          `json:"item_type" gorm:"size:16;not null"` // product/service/plan
	ItemID        string          `json:"item_id" gorm:"size:36;not null"`
	Title         string          `json:"title" gorm:"size:255"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot" gorm:"type:numeric(12,2);not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal is quantity times the snapshot price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
