package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// OutputService 成品登记
type OutputService struct {
	base
}

func NewOutputService(d Deps) *OutputService {
	return &OutputService{base: newBase(d, "output")}
}

type CreateOutputReq struct {
	OutputType   string                 `json:"output_type"`
	BatchID      string                 `json:"batch_id"`
	WeightKg     float64                `json:"weight_kg"`
	QualityGrade string                 `json:"quality_grade"`
	ContainerID  *string                `json:"container_id"`
	SampleID     *string                `json:"sample_id"`
	Destination  string                 `json:"destination"`
	FiberSize    string                 `json:"fiber_size"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// Create registers produced material as in_stock. Binding the container to in_use runs
// in a savepoint: if it fails only that update is undone and the output still commits.
func (s *OutputService) Create(ctx context.Context, actor Actor, req CreateOutputReq) (Result[*entity.OutputMaterial], error) {
	var res Result[*entity.OutputMaterial]
	if err := authorize(actor, outputRoles, "register output material"); err != nil {
		return res, err
	}

	var errs fieldErrors
	if strings.TrimSpace(req.OutputType) == "" {
		errs.add("output_type", "required")
	}
	if strings.TrimSpace(req.BatchID) == "" {
		errs.add("batch_id", "required")
	}
	if !validWeight(req.WeightKg) {
		errs.add("weight_kg", weightRule)
	}
	if err := errs.err(); err != nil {
		return res, err
	}

	var container *entity.Container
	if req.ContainerID != nil && *req.ContainerID != "" {
		c, err := s.repos.Container.FindByID(ctx, *req.ContainerID)
		if err != nil {
			return res, storeError("container", err)
		}
		container = c
	}
	var sampleID *string
	if req.SampleID != nil && *req.SampleID != "" {
		sample, err := s.repos.Sample.FindByID(ctx, *req.SampleID)
		if err != nil {
			return res, storeError("sample", err)
		}
		sampleID = &sample.ID
	}

	var attrs datatypes.JSON
	if len(req.Attributes) > 0 {
		b, err := json.Marshal(req.Attributes)
		if err != nil {
			return res, validationError("attributes must be a JSON object")
		}
		attrs = datatypes.JSON(b)
	}

	code, err := s.nextCode(ctx, PrefixOutput)
	if err != nil {
		return res, err
	}
	output := &entity.OutputMaterial{
		ID:           uuid.New().String(),
		OutputID:     code,
		BatchID:      strings.TrimSpace(req.BatchID),
		OutputType:   strings.TrimSpace(req.OutputType),
		WeightKg:     req.WeightKg,
		QualityGrade: req.QualityGrade,
		SampleID:     sampleID,
		Destination:  req.Destination,
		FiberSize:    req.FiberSize,
		Status:       entity.OutputStatusInStock,
		Attributes:   attrs,
		CreatedBy:    actor.UserID,
	}
	if container != nil {
		output.ContainerID = &container.ID
	}

	var bindErr error
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Output.Create(ctx, output); err != nil {
			return storeError("output material", err)
		}
		if container == nil {
			return nil
		}
		bindErr = tx.Transaction(ctx, func(sp *repository.Repositories) error {
			return bindContainer(ctx, sp, container.ID)
		})
		return nil
	})
	if err != nil {
		return res, err
	}
	remaining := output.WeightKg
	allocated := 0.0
	output.RemainingKg, output.AllocatedKg = &remaining, &allocated
	res.Primary = output

	if container != nil {
		s.sideEffect(&res, SideEffectContainerInUse, bindErr, zap.String("container_id", container.ContainerID))
	}
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventOutputCreated,
		EventDescription: fmt.Sprintf("%s created: %.3f kg %s (batch %s)", output.OutputID, output.WeightKg, output.OutputType, output.BatchID),
		EventDetails: details(map[string]interface{}{
			"batch_id":      output.BatchID,
			"quality_grade": output.QualityGrade,
		}),
		OutputMaterialID: &output.ID,
		ContainerID:      output.ContainerID,
		SampleID:         output.SampleID,
	})
	return res, nil
}

func bindContainer(ctx context.Context, tx *repository.Repositories, containerID string) error {
	c, err := tx.Container.FindByID(ctx, containerID)
	if err != nil {
		return err
	}
	if c.Status == entity.ContainerStatusInUse {
		return nil
	}
	if !entity.CanTransition(entity.ValidContainerTransitions, c.Status, entity.ContainerStatusInUse) {
		return fmt.Errorf("container %s cannot move from %s to %s", c.ContainerID, c.Status, entity.ContainerStatusInUse)
	}
	return tx.Container.UpdateStatus(ctx, c.ID, entity.ContainerStatusInUse)
}

// Get returns the output with allocated and remaining weight computed from the ledger.
func (s *OutputService) Get(ctx context.Context, id string) (*entity.OutputMaterial, error) {
	output, err := s.repos.Output.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("output material", err)
	}
	if err := s.fillLedger(ctx, output); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *OutputService) List(ctx context.Context, params repository.OutputListParams) ([]entity.OutputMaterial, int64, error) {
	items, total, err := s.repos.Output.List(ctx, params)
	if err != nil {
		return nil, 0, storeError("output material", err)
	}
	for i := range items {
		if err := s.fillLedger(ctx, &items[i]); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// Allocations lists the ledger rows of one output with order codes.
func (s *OutputService) Allocations(ctx context.Context, id string) ([]entity.BatchAllocation, error) {
	output, err := s.repos.Output.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("output material", err)
	}
	items, err := s.repos.Allocation.ListWithCodes(ctx, output.ID)
	if err != nil {
		return nil, storeError("allocation", err)
	}
	return items, nil
}

func (s *OutputService) History(ctx context.Context, id string) ([]entity.MaterialFlowEvent, error) {
	output, err := s.repos.Output.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("output material", err)
	}
	events, err := s.repos.FlowEvent.FindByOutput(ctx, output.ID)
	if err != nil {
		return nil, storeError("flow event", err)
	}
	return events, nil
}

func (s *OutputService) fillLedger(ctx context.Context, o *entity.OutputMaterial) error {
	sum, err := s.repos.Allocation.SumByOutput(ctx, o.ID)
	if err != nil {
		return storeError("allocation", err)
	}
	allocated := roundKg(sum)
	remaining := roundKg(o.WeightKg - sum)
	o.AllocatedKg, o.RemainingKg = &allocated, &remaining
	return nil
}
