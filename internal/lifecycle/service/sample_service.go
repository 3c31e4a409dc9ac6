package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SampleService 取样与质检
type SampleService struct {
	base
}

func NewSampleService(d Deps) *SampleService {
	return &SampleService{base: newBase(d, "sample")}
}

type CreateSampleReq struct {
	SamplerName      string  `json:"sampler_name"`
	MaterialInputID  *string `json:"material_input_id"`
	ProcessingStepID *string `json:"processing_step_id"`
}

// SampleResultInput one lab measurement as entered.
type SampleResultInput struct {
	ParameterName  string `json:"parameter_name"`
	ParameterValue string `json:"parameter_value"`
	Unit           string `json:"unit"`
}

// Create registers a pending sample. A sample taken on a running step puts that step
// on sample_required; failing to do so is reported as a side effect.
func (s *SampleService) Create(ctx context.Context, actor Actor, req CreateSampleReq) (Result[*entity.Sample], error) {
	var res Result[*entity.Sample]
	if err := authorize(actor, samplingRoles, "create samples"); err != nil {
		return res, err
	}
	if strings.TrimSpace(req.SamplerName) == "" {
		return res, &Error{Kind: KindValidation, Message: "invalid input", Fields: []FieldError{{Field: "sampler_name", Message: "required"}}}
	}

	var inputID, stepID *string
	var step *entity.ProcessingStep
	if req.MaterialInputID != nil && *req.MaterialInputID != "" {
		input, err := s.repos.MaterialInput.FindByID(ctx, *req.MaterialInputID)
		if err != nil {
			return res, storeError("material input", err)
		}
		inputID = &input.ID
	}
	if req.ProcessingStepID != nil && *req.ProcessingStepID != "" {
		found, err := s.repos.Processing.FindByID(ctx, *req.ProcessingStepID)
		if err != nil {
			return res, storeError("processing step", err)
		}
		step = found
		stepID = &found.ID
		if inputID == nil {
			inputID = strPtr(found.MaterialInputID)
		}
	}

	code, err := s.nextCode(ctx, PrefixSample)
	if err != nil {
		return res, err
	}
	sample := &entity.Sample{
		ID:               uuid.New().String(),
		SampleID:         code,
		SamplerName:      strings.TrimSpace(req.SamplerName),
		MaterialInputID:  inputID,
		ProcessingStepID: stepID,
		Status:           entity.SampleStatusPending,
		CreatedBy:        actor.UserID,
	}
	if err := s.repos.Sample.Create(ctx, sample); err != nil {
		return res, storeError("sample", err)
	}
	res.Primary = sample

	if step != nil && step.Status == entity.StepStatusRunning {
		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			locked, err := tx.Processing.FindByIDForUpdate(ctx, step.ID)
			if err != nil {
				return err
			}
			if locked.Status != entity.StepStatusRunning {
				return fmt.Errorf("step is %s", locked.Status)
			}
			locked.Status = entity.StepStatusSampleRequired
			return tx.Processing.Update(ctx, locked)
		})
		s.sideEffect(&res, SideEffectStepSample, err, zap.String("step_id", step.ID))
	}

	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventSampleCreated,
		EventDescription: fmt.Sprintf("%s taken by %s", sample.SampleID, sample.SamplerName),
		MaterialInputID:  sample.MaterialInputID,
		ProcessingStepID: sample.ProcessingStepID,
		SampleID:         &sample.ID,
	})
	return res, nil
}

// RecordResults stores lab results and moves the sample to in_analysis.
// Rows without a parameter name or value are ignored.
func (s *SampleService) RecordResults(ctx context.Context, actor Actor, sampleID string, results []SampleResultInput) (Result[*entity.Sample], error) {
	var res Result[*entity.Sample]
	if err := authorize(actor, samplingRoles, "record sample results"); err != nil {
		return res, err
	}

	kept := make([]SampleResultInput, 0, len(results))
	for _, r := range results {
		r.ParameterName = strings.TrimSpace(r.ParameterName)
		r.ParameterValue = strings.TrimSpace(r.ParameterValue)
		if r.ParameterName == "" || r.ParameterValue == "" {
			continue
		}
		r.Unit = strings.TrimSpace(r.Unit)
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return res, validationError("at least one result is required")
	}

	now := s.now()
	var sample *entity.Sample
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		sample, err = tx.Sample.FindByIDForUpdate(ctx, sampleID)
		if err != nil {
			return storeError("sample", err)
		}
		if sample.Status != entity.SampleStatusPending && sample.Status != entity.SampleStatusInAnalysis {
			return conflictError(fmt.Sprintf("sample is already %s", sample.Status))
		}

		rows := make([]entity.SampleResult, len(kept))
		for i, r := range kept {
			rows[i] = entity.SampleResult{
				ID:             uuid.New().String(),
				SampleID:       sample.ID,
				ParameterName:  r.ParameterName,
				ParameterValue: r.ParameterValue,
				Unit:           r.Unit,
			}
		}
		if err := tx.Sample.CreateResults(ctx, rows); err != nil {
			return storeError("sample result", err)
		}
		sample.Status = entity.SampleStatusInAnalysis
		sample.AnalyzedAt = &now
		if err := tx.Sample.Update(ctx, sample); err != nil {
			return storeError("sample", err)
		}
		sample, err = tx.Sample.FindByID(ctx, sample.ID)
		return storeError("sample", err)
	})
	if err != nil {
		return res, err
	}
	res.Primary = sample

	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        entity.EventSampleAnalyzed,
		EventDescription: fmt.Sprintf("%d results recorded for %s", len(kept), sample.SampleID),
		EventDetails:     details(map[string]interface{}{"results": kept}),
		MaterialInputID:  sample.MaterialInputID,
		ProcessingStepID: sample.ProcessingStepID,
		SampleID:         &sample.ID,
	})
	return res, nil
}

func (s *SampleService) Approve(ctx context.Context, actor Actor, sampleID string) (Result[*entity.Sample], error) {
	return s.decide(ctx, actor, sampleID, entity.SampleStatusApproved)
}

// Reject fails the sample. A linked input that is not yet processed is rejected with it.
func (s *SampleService) Reject(ctx context.Context, actor Actor, sampleID string) (Result[*entity.Sample], error) {
	return s.decide(ctx, actor, sampleID, entity.SampleStatusRejected)
}

func (s *SampleService) decide(ctx context.Context, actor Actor, sampleID, verdict string) (Result[*entity.Sample], error) {
	var res Result[*entity.Sample]
	if err := authorize(actor, samplingRoles, "decide on samples"); err != nil {
		return res, err
	}

	now := s.now()
	var sample *entity.Sample
	inputRejected := false
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		sample, err = tx.Sample.FindByIDForUpdate(ctx, sampleID)
		if err != nil {
			return storeError("sample", err)
		}
		if !entity.CanTransition(entity.ValidSampleTransitions, sample.Status, verdict) {
			return conflictError(fmt.Sprintf("sample is already %s", sample.Status))
		}
		sample.Status = verdict
		if verdict == entity.SampleStatusApproved {
			sample.ApprovedAt = &now
		} else {
			sample.RejectedAt = &now
		}
		if err := tx.Sample.Update(ctx, sample); err != nil {
			return storeError("sample", err)
		}

		if verdict != entity.SampleStatusRejected || sample.MaterialInputID == nil {
			return nil
		}
		input, err := tx.MaterialInput.FindByIDForUpdate(ctx, *sample.MaterialInputID)
		if err != nil {
			return storeError("material input", err)
		}
		if entity.CanTransition(entity.ValidMaterialInputTransitions, input.Status, entity.MaterialInputStatusRejected) {
			inputRejected = true
			return storeError("material input", tx.MaterialInput.UpdateStatus(ctx, input.ID, entity.MaterialInputStatusRejected))
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Primary = sample

	eventType := entity.EventSampleApproved
	if verdict == entity.SampleStatusRejected {
		eventType = entity.EventSampleRejected
	}
	desc := fmt.Sprintf("%s %s", sample.SampleID, verdict)
	if inputRejected {
		desc += ", material input rejected"
	}
	s.audit(ctx, &res, actor, &entity.MaterialFlowEvent{
		EventType:        eventType,
		EventDescription: desc,
		MaterialInputID:  sample.MaterialInputID,
		ProcessingStepID: sample.ProcessingStepID,
		SampleID:         &sample.ID,
	})
	return res, nil
}

func (s *SampleService) Get(ctx context.Context, id string) (*entity.Sample, error) {
	sample, err := s.repos.Sample.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("sample", err)
	}
	return sample, nil
}

func (s *SampleService) ListByMaterialInput(ctx context.Context, materialInputID string) ([]entity.Sample, error) {
	input, err := s.repos.MaterialInput.FindByID(ctx, materialInputID)
	if err != nil {
		return nil, storeError("material input", err)
	}
	samples, err := s.repos.Sample.FindByMaterialInput(ctx, input.ID)
	if err != nil {
		return nil, storeError("sample", err)
	}
	return samples, nil
}
