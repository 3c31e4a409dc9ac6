package entity

import "time"

// MaterialInput 原料入库记录
type MaterialInput struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	InputID         string    `json:"input_id" gorm:"size:32;uniqueIndex;not null"`
	MaterialType    string    `json:"material_type" gorm:"size:100;not null"`
	MaterialSubtype string    `json:"material_subtype" gorm:"size:100"`
	WeightKg        float64   `json:"weight_kg" gorm:"type:decimal(12,3);not null"`
	Supplier        string    `json:"supplier" gorm:"size:200"`
	ContainerID     *string   `json:"container_id" gorm:"size:36"`
	Status          string    `json:"status" gorm:"size:20;not null;default:received;index"`
	Notes           string    `json:"notes" gorm:"type:text"`
	CreatedBy       string    `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (MaterialInput) TableName() string {
	return "material_inputs"
}

const (
	MaterialInputStatusReceived     = "received"
	MaterialInputStatusInProcessing = "in_processing"
	MaterialInputStatusProcessed    = "processed"
	MaterialInputStatusRejected     = "rejected"
)

// ValidMaterialInputTransitions 合法的原料状态流转
var ValidMaterialInputTransitions = map[string][]string{
	MaterialInputStatusReceived:     {MaterialInputStatusInProcessing, MaterialInputStatusRejected},
	MaterialInputStatusInProcessing: {MaterialInputStatusProcessed, MaterialInputStatusRejected},
	// a processed input may go through another chain
	MaterialInputStatusProcessed: {MaterialInputStatusInProcessing},
}
