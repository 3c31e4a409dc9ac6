package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
)

// IN-1 1000 kg → [shredding, sorting] → OUT-1 400 kg → ORDER-7 / ORDER-9 → outgoing note.
func TestMaterialLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in1 := env.seedInput(t, 1000)
	if in1.Status != entity.MaterialInputStatusReceived {
		t.Fatalf("expected received, got %s", in1.Status)
	}

	if _, err := env.svc.Processing.Start(ctx, production, in1.InputID, []string{"shredding", "sorting"}); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	got, _ := env.repos.MaterialInput.FindByID(ctx, in1.ID)
	if got.Status != entity.MaterialInputStatusInProcessing {
		t.Fatalf("expected in_processing, got %s", got.Status)
	}

	out1 := env.seedOutput(t, 400)
	if out1.Status != entity.OutputStatusInStock || out1.BatchID != "B1" {
		t.Fatalf("unexpected output %s %s", out1.Status, out1.BatchID)
	}
	order7 := env.seedOrder(t)
	order9 := env.seedOrder(t)

	if _, err := env.allocate(out1, order7, 150); err != nil {
		t.Fatalf("allocate ORDER-7: %v", err)
	}
	remaining, _ := env.svc.Allocation.Remaining(ctx, out1.ID)
	if remaining != 250 {
		t.Fatalf("expected 250 kg remaining, got %.3f", remaining)
	}
	o7, _ := env.repos.Order.FindByID(ctx, order7.ID)
	if o7.Status != entity.OrderStatusInProduction {
		t.Fatalf("expected ORDER-7 in_production, got %s", o7.Status)
	}

	_, err := env.allocate(out1, order7, 150)
	assertKind(t, err, KindConflict)

	_, err = env.allocate(out1, order9, 260)
	assertKind(t, err, KindValidation)
	var e *Error
	if !asError(err, &e) || e.Remaining == nil || *e.Remaining != 250 {
		t.Fatalf("expected remaining 250 in error, got %v", err)
	}

	if _, err := env.allocate(out1, order9, 250); err != nil {
		t.Fatalf("allocate ORDER-9: %v", err)
	}
	remaining, _ = env.svc.Allocation.Remaining(ctx, out1.ID)
	if remaining != 0 {
		t.Fatalf("expected 0 kg remaining, got %.3f", remaining)
	}

	if _, err := env.svc.Delivery.Create(ctx, logistics, CreateDeliveryNoteReq{
		Type:             entity.DeliveryTypeOutgoing,
		Partner:          order9.CustomerName,
		Material:         "granulate",
		WeightKg:         400,
		OutputMaterialID: &out1.ID,
	}); err != nil {
		t.Fatalf("delivery note: %v", err)
	}
	shipped, _ := env.repos.Output.FindByID(ctx, out1.ID)
	if shipped.Status != entity.OutputStatusShipped {
		t.Fatalf("expected OUT-1 shipped, got %s", shipped.Status)
	}

	history, err := env.svc.Intake.History(ctx, in1.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].EventType != entity.EventMaterialReceived || history[1].EventType != entity.EventProcessingStarted {
		t.Fatalf("unexpected input history: %+v", history)
	}
	outHistory, _ := env.svc.Output.History(ctx, out1.ID)
	if len(outHistory) != 5 {
		t.Fatalf("expected 5 output events (created, 2 allocations, note, shipped), got %d", len(outHistory))
	}
}
