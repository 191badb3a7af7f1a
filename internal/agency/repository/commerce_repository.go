package repository

import (
	"context"
	"strings"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListActivePlans(ctx context.Context) ([]entity.SubscriptionPlan, error) {
	var items []entity.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, price ASC").
		Find(&items).Error
	return items, err
}

func (r *CatalogRepository) ListActiveServices(ctx context.Context, serviceType string) ([]entity.Service, error) {
	var items []entity.Service
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if serviceType != "" {
		query = query.Where("service_type = ?", serviceType)
	}
	err := query.Order("sort_order ASC, title ASC").Find(&items).Error
	return items, err
}

func (r *CatalogRepository) CreatePlan(ctx context.Context, p *entity.SubscriptionPlan) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *CatalogRepository) CreateService(ctx context.Context, s *entity.Service) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, p *entity.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// FindByCode matches case-insensitively.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*entity.DiscountCode, error) {
	var d entity.DiscountCode
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DiscountRepository) Create(ctx context.Context, d *entity.DiscountCode) error {
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *DiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&entity.DiscountCode{}).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now(),
		}).Error
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := o.Items
		o.Items = nil
		if err := tx.Create(o).Error; err != nil {
			return translate(err)
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return translate(err)
			}
		}
		o.Items = items
		return nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrderRepository) FindByExternalID(ctx context.Context, provider, externalID string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("provider = ? AND external_payment_id = ?", provider, externalID).
		First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *OrderRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Updates(fields).Error
}

// MarkPaid moves a not yet paid order to paid. It reports false when
// another delivery already did.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("id = ? AND status <> ?", id, entity.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":     entity.OrderStatusPaid,
			"paid_at":    paidAt,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderRepository) ListRecentByCustomer(ctx context.Context, customerID string, limit int) ([]entity.Order, error) {
	var items []entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *OrderRepository) CountPaid(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("customer_id = ? AND status = ?", customerID, entity.OrderStatusPaid).
		Count(&n).Error
	return n, err
}
