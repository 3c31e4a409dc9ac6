package entity

import "time"

// Order 客户订单
type Order struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:36"`
	OrderID            string     `json:"order_id" gorm:"size:32;uniqueIndex;not null"`
	CustomerName       string     `json:"customer_name" gorm:"size:200;not null"`
	ProductCategory    string     `json:"product_category" gorm:"size:100"`
	GrainSize          string     `json:"grain_size" gorm:"size:50"`
	Subcategory        string     `json:"subcategory" gorm:"size:100"`
	QuantityKg         float64    `json:"quantity_kg" gorm:"type:decimal(12,3);not null"`
	ProductionDeadline *time.Time `json:"production_deadline"`
	DeliveryDeadline   *time.Time `json:"delivery_deadline"`
	Status             string     `json:"status" gorm:"size:20;not null;default:pending;index"`
	Notes              string     `json:"notes" gorm:"type:text"`
	CreatedBy          string     `json:"created_by" gorm:"size:64"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Allocations []BatchAllocation `json:"allocations,omitempty" gorm:"foreignKey:OrderID;references:ID"`
	AllocatedKg *float64          `json:"allocated_kg,omitempty" gorm:"-"`
}

func (Order) TableName() string {
	return "orders"
}

const (
	OrderStatusPending      = "pending"
	OrderStatusInProduction = "in_production"
	OrderStatusConfirmed    = "confirmed"
	OrderStatusReady        = "ready"
	OrderStatusDelivered    = "delivered"
	OrderStatusCancelled    = "cancelled"
)

// ValidOrderTransitions forward-only order state machine.
var ValidOrderTransitions = map[string][]string{
	OrderStatusPending:      {OrderStatusInProduction, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:    {OrderStatusInProduction, OrderStatusCancelled},
	OrderStatusInProduction: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:        {OrderStatusDelivered, OrderStatusCancelled},
}
