package repository

import (
	"context"
	"fmt"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Allocations").Create(o).Error)
}

// FindByID looks up by primary key or order code.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	if err := r.db.WithContext(ctx).Where("id = ? OR order_id = ?", id, id).First(&o).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, status string, page, pageSize int) ([]entity.Order, int64, error) {
	var items []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, TranslateError(err)
}

// AdvanceStatus moves the order from → to only while it is still in from.
// It reports whether this call performed the transition. Pairs outside
// entity.ValidOrderTransitions fail with ErrInvalidTransition.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id, from, to string) (bool, error) {
	if !entity.CanTransition(entity.ValidOrderTransitions, from, to) {
		return false, fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, from, to)
	}
	res := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, TranslateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
