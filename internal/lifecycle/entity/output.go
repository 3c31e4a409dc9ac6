package entity

import (
	"time"

	"gorm.io/datatypes"
)

// OutputMaterial 成品物料. WeightKg is fixed at creation; consumption lives in BatchAllocation.
type OutputMaterial struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	OutputID     string         `json:"output_id" gorm:"size:32;uniqueIndex;not null"`
	BatchID      string         `json:"batch_id" gorm:"size:100;not null;index"`
	OutputType   string         `json:"output_type" gorm:"size:100;not null"`
	WeightKg     float64        `json:"weight_kg" gorm:"type:decimal(12,3);not null"`
	QualityGrade string         `json:"quality_grade" gorm:"size:20"`
	ContainerID  *string        `json:"container_id" gorm:"size:36"`
	SampleID     *string        `json:"sample_id" gorm:"size:36"`
	Destination  string         `json:"destination" gorm:"size:200"`
	FiberSize    string         `json:"fiber_size" gorm:"size:50"`
	Status       string         `json:"status" gorm:"size:20;not null;default:in_stock;index"`
	Attributes   datatypes.JSON `json:"attributes"`
	CreatedBy    string         `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// 非数据库字段
	AllocatedKg *float64 `json:"allocated_kg,omitempty" gorm:"-"`
	RemainingKg *float64 `json:"remaining_kg,omitempty" gorm:"-"`
}

func (OutputMaterial) TableName() string {
	return "output_materials"
}

const (
	OutputStatusInStock = "in_stock"
	OutputStatusShipped = "shipped"
)
