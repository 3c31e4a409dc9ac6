package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/shared/observability"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessingService 工序链
type ProcessingService struct {
	base
}

func NewProcessingService(d Deps) *ProcessingService {
	return &ProcessingService{base: newBase(d, "processing")}
}

var errActiveChain = conflictError("active processing steps exist")

// Start creates one step per step type under a fresh processing code. The first step runs
// immediately, the rest wait. The input moves to in_processing in the same transaction,
// also when an earlier chain already left it processed.
func (s *ProcessingService) Start(ctx context.Context, actor Actor, materialInputID string, stepTypes []string) (res Result[[]entity.ProcessingStep], err error) {
	ctx, span := observability.StartSpan(ctx, "processing.start", attribute.String("material_input_id", materialInputID))
	defer func() { observability.EndSpan(span, err) }()

	if err := authorize(actor, processingRoles, "start processing"); err != nil {
		return res, err
	}

	tokens := make([]string, 0, len(stepTypes))
	for _, t := range stepTypes {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return res, validationError("at least one processing step is required")
	}

	input, err := s.repos.MaterialInput.FindByID(ctx, materialInputID)
	if err != nil {
		return res, storeError("material input", err)
	}
	active, err := s.repos.Processing.CountActive(ctx, input.ID)
	if err != nil {
		return res, storeError("processing step", err)
	}
	if active > 0 {
		return res, errActiveChain
	}

	processingID, err := s.nextCode(ctx, PrefixProcessing)
	if err != nil {
		return res, err
	}

	now := s.now()
	var steps []entity.ProcessingStep
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		locked, err := tx.MaterialInput.FindByIDForUpdate(ctx, input.ID)
		if err != nil {
			return storeError("material input", err)
		}
		// only rejected material is closed for processing
		if locked.Status != entity.MaterialInputStatusInProcessing &&
			!entity.CanTransition(entity.ValidMaterialInputTransitions, locked.Status, entity.MaterialInputStatusInProcessing) {
			return conflictError(fmt.Sprintf("material input is %s", locked.Status))
		}
		// re-check under the lock
		active, err := tx.Processing.CountActive(ctx, locked.ID)
		if err != nil {
			return storeError("processing step", err)
		}
		if active > 0 {
			return errActiveChain
		}

		steps = make([]entity.ProcessingStep, len(tokens))
		for i, t := range tokens {
			steps[i] = entity.ProcessingStep{
				ID:              uuid.New().String(),
				ProcessingID:    processingID,
				MaterialInputID: locked.ID,
				StepType:        t,
				StepOrder:       i + 1,
				Status:          entity.StepStatusPending,
				CreatedBy:       actor.UserID,
			}
		}
		steps[0].Status = entity.StepStatusRunning
		steps[0].StartedAt = &now

		if err := tx.Processing.CreateBatch(ctx, steps); err != nil {
			return storeError("processing step", err)
		}
		if locked.Status != entity.MaterialInputStatusInProcessing {
			if err := tx.MaterialInput.UpdateStatus(ctx, locked.ID, entity.MaterialInputStatusInProcessing); err != nil {
				return storeError("material input", err)
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Primary = steps

	s.logger.Info("processing started",
		zap.String("processing_id", processingID),
		zap.String("input_id", input.InputID),
		zap.Strings("steps", tokens),
	)
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventProcessingStarted,
		EventDescription: fmt.Sprintf("%s started on %s: %s", processingID, input.InputID, strings.Join(tokens, " → ")),
		EventDetails: details(map[string]interface{}{
			"processing_id": processingID,
			"steps":         tokens,
		}),
		MaterialInputID:  &input.ID,
		ProcessingStepID: &steps[0].ID,
	})
	return res, nil
}

// Complete finishes a running (or sample-gated) step and starts its successor.
// Completing the last step marks the input processed.
func (s *ProcessingService) Complete(ctx context.Context, actor Actor, stepID string) (Result[*entity.ProcessingStep], error) {
	var res Result[*entity.ProcessingStep]
	if err := authorize(actor, processingRoles, "complete processing steps"); err != nil {
		return res, err
	}

	now := s.now()
	var step *entity.ProcessingStep
	var next *entity.ProcessingStep
	finished := false
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		step, err = s.transition(ctx, tx, stepID, entity.StepStatusCompleted)
		if err != nil {
			return err
		}
		step.CompletedAt = &now
		if err := tx.Processing.Update(ctx, step); err != nil {
			return storeError("processing step", err)
		}

		chain, err := tx.Processing.FindByProcessingID(ctx, step.ProcessingID)
		if err != nil {
			return storeError("processing step", err)
		}
		for i := range chain {
			if chain[i].StepOrder == step.StepOrder+1 {
				next = &chain[i]
				break
			}
		}
		if next != nil {
			if next.Status != entity.StepStatusPending {
				return conflictError(fmt.Sprintf("next step is %s", next.Status))
			}
			next.Status = entity.StepStatusRunning
			next.StartedAt = &now
			return storeError("processing step", tx.Processing.Update(ctx, next))
		}

		finished = true
		input, err := tx.MaterialInput.FindByIDForUpdate(ctx, step.MaterialInputID)
		if err != nil {
			return storeError("material input", err)
		}
		if input.Status == entity.MaterialInputStatusInProcessing {
			return storeError("material input", tx.MaterialInput.UpdateStatus(ctx, input.ID, entity.MaterialInputStatusProcessed))
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Primary = step

	desc := fmt.Sprintf("%s step %d (%s) completed", step.ProcessingID, step.StepOrder, step.StepType)
	if next != nil {
		desc += fmt.Sprintf(", step %d (%s) running", next.StepOrder, next.StepType)
	}
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventStepCompleted,
		EventDescription: desc,
		MaterialInputID:  &step.MaterialInputID,
		ProcessingStepID: &step.ID,
	})
	if finished {
		s.logger.Info("processing finished", zap.String("processing_id", step.ProcessingID))
		s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
			EventType:        entity.EventProcessingFinished,
			EventDescription: step.ProcessingID + " finished",
			MaterialInputID:  &step.MaterialInputID,
			ProcessingStepID: &step.ID,
		})
	}
	return res, nil
}

func (s *ProcessingService) Pause(ctx context.Context, actor Actor, stepID string) (Result[*entity.ProcessingStep], error) {
	return s.simpleTransition(ctx, actor, stepID, entity.StepStatusPaused, entity.EventStepPaused)
}

// Resume continues a paused or sample-gated step.
func (s *ProcessingService) Resume(ctx context.Context, actor Actor, stepID string) (Result[*entity.ProcessingStep], error) {
	return s.simpleTransition(ctx, actor, stepID, entity.StepStatusRunning, entity.EventStepResumed)
}

// RequireSample holds a running step until QA has looked at it.
func (s *ProcessingService) RequireSample(ctx context.Context, actor Actor, stepID string) (Result[*entity.ProcessingStep], error) {
	return s.simpleTransition(ctx, actor, stepID, entity.StepStatusSampleRequired, entity.EventStepSampleRequired)
}

func (s *ProcessingService) simpleTransition(ctx context.Context, actor Actor, stepID, to, eventType string) (Result[*entity.ProcessingStep], error) {
	var res Result[*entity.ProcessingStep]
	if err := authorize(actor, processingRoles, "change processing steps"); err != nil {
		return res, err
	}
	var step *entity.ProcessingStep
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		step, err = s.transition(ctx, tx, stepID, to)
		if err != nil {
			return err
		}
		return storeError("processing step", tx.Processing.Update(ctx, step))
	})
	if err != nil {
		return res, err
	}
	res.Primary = step
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        eventType,
		EventDescription: fmt.Sprintf("%s step %d (%s) %s", step.ProcessingID, step.StepOrder, step.StepType, to),
		MaterialInputID:  &step.MaterialInputID,
		ProcessingStepID: &step.ID,
	})
	return res, nil
}

// transition locks the step and applies the status change in memory.
func (s *ProcessingService) transition(ctx context.Context, tx *repository.Repositories, stepID, to string) (*entity.ProcessingStep, error) {
	step, err := tx.Processing.FindByIDForUpdate(ctx, stepID)
	if err != nil {
		return nil, storeError("processing step", err)
	}
	// pending steps only start when their predecessor completes
	if step.Status == entity.StepStatusPending && to == entity.StepStatusRunning {
		return nil, conflictError("step waits for its predecessor")
	}
	if !entity.CanTransition(entity.ValidStepTransitions, step.Status, to) {
		return nil, conflictError(fmt.Sprintf("step cannot move from %s to %s", step.Status, to))
	}
	step.Status = to
	return step, nil
}

// ListByMaterialInput returns every step ever created for the input.
func (s *ProcessingService) ListByMaterialInput(ctx context.Context, materialInputID string) ([]entity.ProcessingStep, error) {
	input, err := s.repos.MaterialInput.FindByID(ctx, materialInputID)
	if err != nil {
		return nil, storeError("material input", err)
	}
	steps, err := s.repos.Processing.FindByMaterialInput(ctx, input.ID)
	if err != nil {
		return nil, storeError("processing step", err)
	}
	return steps, nil
}
