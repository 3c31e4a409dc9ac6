package service

import (
	"context"
	"strings"
	"time"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/google/uuid"
)

// OrderService 客户订单
type OrderService struct {
	base
}

func NewOrderService(d Deps) *OrderService {
	return &OrderService{base: newBase(d, "order")}
}

type CreateOrderReq struct {
	CustomerName       string     `json:"customer_name"`
	ProductCategory    string     `json:"product_category"`
	GrainSize          string     `json:"grain_size"`
	Subcategory        string     `json:"subcategory"`
	QuantityKg         float64    `json:"quantity_kg"`
	ProductionDeadline *time.Time `json:"production_deadline"`
	DeliveryDeadline   *time.Time `json:"delivery_deadline"`
	Notes              string     `json:"notes"`
}

func (s *OrderService) Create(ctx context.Context, actor Actor, req CreateOrderReq) (*entity.Order, error) {
	if err := authorize(actor, orderRoles, "create orders"); err != nil {
		return nil, err
	}

	var errs fieldErrors
	if strings.TrimSpace(req.CustomerName) == "" {
		errs.add("customer_name", "required")
	}
	if !validWeight(req.QuantityKg) {
		errs.add("quantity_kg", weightRule)
	}
	if req.ProductionDeadline != nil && req.DeliveryDeadline != nil && req.DeliveryDeadline.Before(*req.ProductionDeadline) {
		errs.add("delivery_deadline", "must not be before production_deadline")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	code, err := s.nextCode(ctx, PrefixOrder)
	if err != nil {
		return nil, err
	}
	order := &entity.Order{
		ID:                 uuid.New().String(),
		OrderID:            code,
		CustomerName:       strings.TrimSpace(req.CustomerName),
		ProductCategory:    req.ProductCategory,
		GrainSize:          req.GrainSize,
		Subcategory:        req.Subcategory,
		QuantityKg:         req.QuantityKg,
		ProductionDeadline: req.ProductionDeadline,
		DeliveryDeadline:   req.DeliveryDeadline,
		Status:             entity.OrderStatusPending,
		Notes:              req.Notes,
		CreatedBy:          actor.UserID,
	}
	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, storeError("order", err)
	}
	return order, nil
}

// Get returns the order with its allocations and allocated total.
func (s *OrderService) Get(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("order", err)
	}
	allocations, err := s.repos.Allocation.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("allocation", err)
	}
	sum, err := s.repos.Allocation.SumByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeError("allocation", err)
	}
	allocated := roundKg(sum)
	order.Allocations = allocations
	order.AllocatedKg = &allocated
	return order, nil
}

func (s *OrderService) List(ctx context.Context, status string, page, pageSize int) ([]entity.Order, int64, error) {
	items, total, err := s.repos.Order.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, storeError("order", err)
	}
	return items, total, nil
}
