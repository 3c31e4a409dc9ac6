package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/shared/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AllocationService 批次分配. Guards Σ allocated ≤ output weight.
type AllocationService struct {
	base
}

func NewAllocationService(d Deps) *AllocationService {
	return &AllocationService{base: newBase(d, "allocation")}
}

type AllocateReq struct {
	OutputMaterialID  string      `json:"output_material_id"`
	OrderID           string      `json:"order_id"`
	AllocatedWeightKg json.Number `json:"allocated_weight_kg"`
	Notes             string      `json:"notes"`
}

// Allocate reserves weight of one output for one order.
//
// Checks run in order: weight is a finite number > 0 with gram precision, the (output, order)
// pair is new, the weight fits the remaining weight. Weights are compared in whole grams. The checks, the insert and the order's
// pending → in_production move share one transaction holding the output row lock, so
// concurrent allocations on the same output serialize and cannot over-allocate.
func (s *AllocationService) Allocate(ctx context.Context, actor Actor, req AllocateReq) (res Result[*entity.BatchAllocation], err error) {
	ctx, span := observability.StartSpan(ctx, "allocation.allocate",
		attribute.String("output_material_id", req.OutputMaterialID),
		attribute.String("order_id", req.OrderID),
	)
	defer func() {
		observability.EndSpan(span, err)
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
		}
		var kg float64
		if res.Primary != nil {
			kg = res.Primary.AllocatedWeightKg
		}
		s.metrics.Allocation(outcome, kg)
	}()

	if err := authorize(actor, allocationRoles, "allocate batches"); err != nil {
		return res, err
	}
	grams, err := ParseWeight(req.AllocatedWeightKg.String())
	if err != nil {
		return res, err
	}
	weight := kgOf(grams)

	var (
		allocation *entity.BatchAllocation
		output     *entity.OutputMaterial
		order      *entity.Order
		remaining  float64
		advanced   bool
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		output, err = tx.Output.FindByIDForUpdate(ctx, req.OutputMaterialID)
		if err != nil {
			return storeError("output material", err)
		}
		order, err = tx.Order.FindByID(ctx, req.OrderID)
		if err != nil {
			return storeError("order", err)
		}

		exists, err := tx.Allocation.ExistsPair(ctx, output.ID, order.ID)
		if err != nil {
			return storeError("allocation", err)
		}
		if exists {
			return conflictError("already allocated to this order")
		}
		if order.Status == entity.OrderStatusCancelled || order.Status == entity.OrderStatusDelivered {
			return conflictError(fmt.Sprintf("order is %s", order.Status))
		}

		sum, err := tx.Allocation.SumByOutput(ctx, output.ID)
		if err != nil {
			return storeError("allocation", err)
		}
		available := storedGrams(output.WeightKg) - storedGrams(sum)
		if grams > available {
			left := kgOf(available)
			return &Error{Kind: KindValidation, Message: "exceeds remaining weight", Remaining: &left}
		}

		allocation = &entity.BatchAllocation{
			ID:                uuid.New().String(),
			OutputMaterialID:  output.ID,
			OrderID:           order.ID,
			AllocatedWeightKg: weight,
			AllocatedBy:       actor.UserID,
			Notes:             req.Notes,
		}
		if err := tx.Allocation.Create(ctx, allocation); err != nil {
			if IsKind(storeError("allocation", err), KindConflict) {
				return conflictError("already allocated to this order")
			}
			return storeError("allocation", err)
		}
		remaining = kgOf(available - grams)

		advanced, err = tx.Order.AdvanceStatus(ctx, order.ID, entity.OrderStatusPending, entity.OrderStatusInProduction)
		return storeError("order", err)
	})
	if err != nil {
		return res, err
	}
	allocation.OutputCode = output.OutputID
	allocation.OrderCode = order.OrderID
	res.Primary = allocation

	s.logger.Info("batch allocated",
		zap.String("output_id", output.OutputID),
		zap.String("order_id", order.OrderID),
		zap.Float64("weight_kg", weight),
		zap.Float64("remaining_kg", remaining),
		zap.Bool("order_advanced", advanced),
	)
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventBatchAllocated,
		EventDescription: fmt.Sprintf("%.3f kg of %s allocated to %s", weight, output.OutputID, order.OrderID),
		EventDetails: details(map[string]interface{}{
			"order_id":       order.OrderID,
			"weight":         weight,
			"remaining":      remaining,
			"order_advanced": advanced,
		}),
		OutputMaterialID: &output.ID,
	})
	return res, nil
}

// Remaining recomputes weight_kg − Σ allocated from the ledger.
func (s *AllocationService) Remaining(ctx context.Context, outputMaterialID string) (float64, error) {
	output, err := s.repos.Output.FindByID(ctx, outputMaterialID)
	if err != nil {
		return 0, storeError("output material", err)
	}
	sum, err := s.repos.Allocation.SumByOutput(ctx, output.ID)
	if err != nil {
		return 0, storeError("allocation", err)
	}
	return kgOf(storedGrams(output.WeightKg) - storedGrams(sum)), nil
}

// Ledger lists allocations with output and order codes. An empty id lists all outputs.
func (s *AllocationService) Ledger(ctx context.Context, outputMaterialID string) ([]entity.BatchAllocation, error) {
	items, err := s.repos.Allocation.ListWithCodes(ctx, outputMaterialID)
	if err != nil {
		return nil, storeError("allocation", err)
	}
	return items, nil
}
