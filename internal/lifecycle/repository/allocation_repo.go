package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// AllocationRepository 批次分配台账
type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) Create(ctx context.Context, a *entity.BatchAllocation) error {
	return TranslateError(r.db.WithContext(ctx).Create(a).Error)
}

// SumByOutput totals the ledger for one output.
func (r *AllocationRepository) SumByOutput(ctx context.Context, outputMaterialID string) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).
		Model(&entity.BatchAllocation{}).
		Select("COALESCE(SUM(allocated_weight_kg), 0)").
		Where("output_material_id = ?", outputMaterialID).
		Scan(&sum).Error
	return sum, TranslateError(err)
}

func (r *AllocationRepository) SumByOrder(ctx context.Context, orderID string) (float64, error) {
	var sum float64
	err := r.db.WithContext(ctx).
		Model(&entity.BatchAllocation{}).
		Select("COALESCE(SUM(allocated_weight_kg), 0)").
		Where("order_id = ?", orderID).
		Scan(&sum).Error
	return sum, TranslateError(err)
}

func (r *AllocationRepository) ExistsPair(ctx context.Context, outputMaterialID, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BatchAllocation{}).
		Where("output_material_id = ? AND order_id = ?", outputMaterialID, orderID).
		Count(&count).Error
	return count > 0, TranslateError(err)
}

func (r *AllocationRepository) FindByOutput(ctx context.Context, outputMaterialID string) ([]entity.BatchAllocation, error) {
	var items []entity.BatchAllocation
	err := r.db.WithContext(ctx).
		Where("output_material_id = ?", outputMaterialID).
		Order("created_at ASC").
		Find(&items).Error
	return items, TranslateError(err)
}

func (r *AllocationRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.BatchAllocation, error) {
	var items []entity.BatchAllocation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, TranslateError(err)
}

// ListWithCodes returns the whole ledger with output/order codes filled in.
func (r *AllocationRepository) ListWithCodes(ctx context.Context, outputMaterialID string) ([]entity.BatchAllocation, error) {
	var items []entity.BatchAllocation
	query := r.db.WithContext(ctx).
		Table("batch_allocations").
		Select("batch_allocations.*, output_materials.output_id AS output_code, orders.order_id AS order_code").
		Joins("LEFT JOIN output_materials ON output_materials.id = batch_allocations.output_material_id").
		Joins("LEFT JOIN orders ON orders.id = batch_allocations.order_id")
	if outputMaterialID != "" {
		query = query.Where("batch_allocations.output_material_id = ?", outputMaterialID)
	}
	err := query.Order("batch_allocations.created_at ASC").Scan(&items).Error
	return items, TranslateError(err)
}
