package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// OrderStore persists orders and their items.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create inserts the order together with its items.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *OrderStore) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("order_id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByShop matches orders stored under any of the given shop keys.
func (s *OrderStore) ListByShop(ctx context.Context, shopIDs []string, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("shop_id IN ?", shopIDs)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus applies the change with one UPDATE and reloads the row.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, now time.Time) (*models.Order, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{"status": status, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, services.ErrOrderNotFound
	}
	return s.FindByOrderID(ctx, orderID)
}
