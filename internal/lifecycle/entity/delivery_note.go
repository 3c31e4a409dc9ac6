package entity

import "time"

// DeliveryNote 送货单 / Lieferschein
type DeliveryNote struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	NoteID           string    `json:"note_id" gorm:"size:32;uniqueIndex;not null"`
	Type             string    `json:"type" gorm:"size:20;not null"`
	Partner          string    `json:"partner" gorm:"size:200;not null"`
	Material         string    `json:"material" gorm:"size:200;not null"`
	WeightKg         float64   `json:"weight_kg" gorm:"type:decimal(12,3);not null"`
	WasteCode        string    `json:"waste_code" gorm:"size:20"`
	MaterialInputID  *string   `json:"material_input_id" gorm:"size:36;index"`
	OutputMaterialID *string   `json:"output_material_id" gorm:"size:36;index"`
	DocumentPath     string    `json:"document_path" gorm:"size:500"`
	CreatedBy        string    `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (DeliveryNote) TableName() string {
	return "delivery_notes"
}

const (
	DeliveryTypeIncoming = "incoming"
	DeliveryTypeOutgoing = "outgoing"
)
