package entity

import "time"

// BatchAllocation reserves part of one output's weight for one order.
type BatchAllocation struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	OutputMaterialID  string    `json:"output_material_id" gorm:"size:36;not null;uniqueIndex:idx_allocation_output_order"`
	OrderID           string    `json:"order_id" gorm:"size:36;not null;uniqueIndex:idx_allocation_output_order;index"`
	AllocatedWeightKg float64   `json:"allocated_weight_kg" gorm:"type:decimal(12,3);not null"`
	AllocatedBy       string    `json:"allocated_by" gorm:"size:64"`
	Notes             string    `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`

	// 只读，联表查询填充
	OutputCode string `json:"output_code,omitempty" gorm:"->;-:migration"`
	OrderCode  string `json:"order_code,omitempty" gorm:"->;-:migration"`
}

func (BatchAllocation) TableName() string {
	return "batch_allocations"
}
