package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IntakeService 原料入库
type IntakeService struct {
	base
}

func NewIntakeService(d Deps) *IntakeService {
	return &IntakeService{base: newBase(d, "intake")}
}

type CreateMaterialInputReq struct {
	MaterialType    string  `json:"material_type"`
	MaterialSubtype string  `json:"material_subtype"`
	WeightKg        float64 `json:"weight_kg"`
	Supplier        string  `json:"supplier"`
	ContainerID     *string `json:"container_id"`
	Notes           string  `json:"notes"`
}

func (s *IntakeService) Create(ctx context.Context, actor Actor, req CreateMaterialInputReq) (Result[*entity.MaterialInput], error) {
	var res Result[*entity.MaterialInput]
	if err := authorize(actor, intakeRoles, "register material intake"); err != nil {
		return res, err
	}

	var errs fieldErrors
	if strings.TrimSpace(req.MaterialType) == "" {
		errs.add("material_type", "required")
	}
	if !validWeight(req.WeightKg) {
		errs.add("weight_kg", weightRule)
	}
	if err := errs.err(); err != nil {
		return res, err
	}

	if req.ContainerID != nil && *req.ContainerID != "" {
		c, err := s.repos.Container.FindByID(ctx, *req.ContainerID)
		if err != nil {
			return res, storeError("container", err)
		}
		req.ContainerID = &c.ID
	} else {
		req.ContainerID = nil
	}

	code, err := s.nextCode(ctx, PrefixMaterialInput)
	if err != nil {
		return res, err
	}

	input := &entity.MaterialInput{
		ID:              uuid.New().String(),
		InputID:         code,
		MaterialType:    strings.TrimSpace(req.MaterialType),
		MaterialSubtype: strings.TrimSpace(req.MaterialSubtype),
		WeightKg:        req.WeightKg,
		Supplier:        strings.TrimSpace(req.Supplier),
		ContainerID:     req.ContainerID,
		Status:          entity.MaterialInputStatusReceived,
		Notes:           req.Notes,
		CreatedBy:       actor.UserID,
	}
	if err := s.repos.MaterialInput.Create(ctx, input); err != nil {
		return res, storeError("material input", err)
	}
	res.Primary = input

	s.logger.Info("material received", zap.String("input_id", input.InputID), zap.Float64("weight_kg", input.WeightKg))
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventMaterialReceived,
		EventDescription: fmt.Sprintf("%s received: %.3f kg %s", input.InputID, input.WeightKg, input.MaterialType),
		EventDetails: details(map[string]interface{}{
			"supplier": input.Supplier,
			"weight":   input.WeightKg,
		}),
		MaterialInputID: &input.ID,
		ContainerID:     input.ContainerID,
	})
	return res, nil
}

func (s *IntakeService) Get(ctx context.Context, id string) (*entity.MaterialInput, error) {
	input, err := s.repos.MaterialInput.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("material input", err)
	}
	return input, nil
}

func (s *IntakeService) List(ctx context.Context, status string, page, pageSize int) ([]entity.MaterialInput, int64, error) {
	items, total, err := s.repos.MaterialInput.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, storeError("material input", err)
	}
	return items, total, nil
}

// History returns the flow events recorded for one input, oldest first.
func (s *IntakeService) History(ctx context.Context, id string) ([]entity.MaterialFlowEvent, error) {
	input, err := s.repos.MaterialInput.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("material input", err)
	}
	events, err := s.repos.FlowEvent.FindByMaterialInput(ctx, input.ID)
	if err != nil {
		return nil, storeError("flow event", err)
	}
	return events, nil
}
