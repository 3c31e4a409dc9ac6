package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
)

func TestStartProcessingCreatesChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 1000)

	res, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding", " ", "sorting", "milling"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	steps := res.Primary
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps (blank dropped), got %d", len(steps))
	}
	for i, s := range steps {
		if s.StepOrder != i+1 || s.ProcessingID != "VRB-20261015-0001" {
			t.Fatalf("step %d: unexpected order/processing id %d %s", i, s.StepOrder, s.ProcessingID)
		}
	}
	if steps[0].Status != entity.StepStatusRunning || steps[0].StartedAt == nil {
		t.Fatalf("first step should run with started_at, got %s", steps[0].Status)
	}
	for _, s := range steps[1:] {
		if s.Status != entity.StepStatusPending || s.StartedAt != nil {
			t.Fatalf("later steps should be pending without started_at, got %s", s.Status)
		}
	}

	got, _ := env.repos.MaterialInput.FindByID(ctx, input.ID)
	if got.Status != entity.MaterialInputStatusInProcessing {
		t.Fatalf("expected input in_processing, got %s", got.Status)
	}
	if se, ok := res.SideEffect(SideEffectAudit); !ok || !se.OK {
		t.Fatalf("expected successful audit, got %+v", se)
	}
}

func TestStartProcessingSingleActiveChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 500)

	if _, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"sorting"})
	assertKind(t, err, KindConflict)
	if err.Error() != "active processing steps exist" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	// a paused chain is still active
	steps, _ := env.repos.Processing.FindByMaterialInput(ctx, input.ID)
	if _, err := env.svc.Processing.Pause(ctx, production, steps[0].ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err = env.svc.Processing.Start(ctx, production, input.ID, []string{"sorting"})
	assertKind(t, err, KindConflict)
}

func TestStartProcessingValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 500)

	_, err := env.svc.Processing.Start(ctx, production, input.ID, []string{" ", ""})
	assertKind(t, err, KindValidation)

	_, err = env.svc.Processing.Start(ctx, qa, input.ID, []string{"shredding"})
	assertKind(t, err, KindPermissionDenied)

	_, err = env.svc.Processing.Start(ctx, production, "missing", []string{"shredding"})
	assertKind(t, err, KindNotFound)
}

func TestStartProcessingIDGenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 500)
	env.ids.Fail[PrefixProcessing] = true

	_, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding"})
	assertKind(t, err, KindIDGeneration)

	steps, _ := env.repos.Processing.FindByMaterialInput(ctx, input.ID)
	if len(steps) != 0 {
		t.Fatalf("expected no steps, got %d", len(steps))
	}
}

func TestCompleteStepsAdvancesChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 800)

	res, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding", "sorting"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	first, second := res.Primary[0], res.Primary[1]

	// the waiting step cannot be started out of order
	_, err = env.svc.Processing.Resume(ctx, production, second.ID)
	assertKind(t, err, KindConflict)

	if _, err := env.svc.Processing.Complete(ctx, production, first.ID); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	next, _ := env.repos.Processing.FindByID(ctx, second.ID)
	if next.Status != entity.StepStatusRunning || next.StartedAt == nil {
		t.Fatalf("expected second step running, got %s", next.Status)
	}
	got, _ := env.repos.MaterialInput.FindByID(ctx, input.ID)
	if got.Status != entity.MaterialInputStatusInProcessing {
		t.Fatalf("input should stay in_processing, got %s", got.Status)
	}

	if _, err := env.svc.Processing.RequireSample(ctx, production, second.ID); err != nil {
		t.Fatalf("require sample: %v", err)
	}
	if _, err := env.svc.Processing.Complete(ctx, production, second.ID); err != nil {
		t.Fatalf("complete second: %v", err)
	}
	got, _ = env.repos.MaterialInput.FindByID(ctx, input.ID)
	if got.Status != entity.MaterialInputStatusProcessed {
		t.Fatalf("expected processed, got %s", got.Status)
	}

	_, err = env.svc.Processing.Complete(ctx, production, second.ID)
	assertKind(t, err, KindConflict)

	types := env.sink.types()
	if types[len(types)-1] != entity.EventProcessingFinished {
		t.Fatalf("expected processing_finished last, got %v", types)
	}
}

func TestStartProcessingAgainAfterChainFinished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 600)

	res, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := env.svc.Processing.Complete(ctx, production, res.Primary[0].ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := env.repos.MaterialInput.FindByID(ctx, input.ID)
	if got.Status != entity.MaterialInputStatusProcessed {
		t.Fatalf("expected processed, got %s", got.Status)
	}

	again, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"milling"})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.Primary[0].ProcessingID == res.Primary[0].ProcessingID {
		t.Fatalf("second chain reused processing id %s", again.Primary[0].ProcessingID)
	}
	if again.Primary[0].Status != entity.StepStatusRunning {
		t.Fatalf("expected milling running, got %s", again.Primary[0].Status)
	}
	got, _ = env.repos.MaterialInput.FindByID(ctx, input.ID)
	if got.Status != entity.MaterialInputStatusInProcessing {
		t.Fatalf("expected input back in_processing, got %s", got.Status)
	}

	steps, err := env.svc.Processing.ListByMaterialInput(ctx, input.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected both chains listed, got %d steps", len(steps))
	}
}

func TestStartProcessingRejectedInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 200)
	if err := env.repos.MaterialInput.UpdateStatus(ctx, input.ID, entity.MaterialInputStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}

	_, err := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding"})
	assertKind(t, err, KindConflict)
	if active, _ := env.repos.Processing.CountActive(ctx, input.ID); active != 0 {
		t.Fatalf("expected no steps for rejected input, got %d", active)
	}
}

func TestPauseResume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := env.seedInput(t, 300)
	res, _ := env.svc.Processing.Start(ctx, production, input.ID, []string{"shredding"})
	step := res.Primary[0]

	paused, err := env.svc.Processing.Pause(ctx, production, step.ID)
	if err != nil || paused.Primary.Status != entity.StepStatusPaused {
		t.Fatalf("pause: %v", err)
	}
	_, err = env.svc.Processing.Pause(ctx, production, step.ID)
	assertKind(t, err, KindConflict)

	resumed, err := env.svc.Processing.Resume(ctx, production, step.ID)
	if err != nil || resumed.Primary.Status != entity.StepStatusRunning {
		t.Fatalf("resume: %v", err)
	}
}
