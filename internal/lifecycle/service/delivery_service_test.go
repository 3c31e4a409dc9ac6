package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
)

func TestCreateDeliveryNoteAggregatesViolations(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Delivery.Create(context.Background(), logistics, CreateDeliveryNoteReq{
		Type:     entity.DeliveryTypeOutgoing,
		WeightKg: 0,
	})
	assertKind(t, err, KindValidation)
	var e *Error
	if !asError(err, &e) {
		t.Fatal("expected *Error")
	}
	fields := map[string]bool{}
	for _, f := range e.Fields {
		fields[f.Field] = true
	}
	if !fields["partner"] || !fields["material"] || !fields["weight_kg"] || len(fields) != 3 {
		t.Fatalf("expected partner, material and weight_kg violations, got %+v", e.Fields)
	}
}

func TestOutgoingNoteShipsOutput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	output := env.seedOutput(t, 400)

	res, err := env.svc.Delivery.Create(ctx, logistics, CreateDeliveryNoteReq{
		Type:             entity.DeliveryTypeOutgoing,
		Partner:          "Recycling Süd GmbH",
		Material:         "PP granulate",
		WeightKg:         400,
		OutputMaterialID: &output.OutputID,
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if res.Primary.NoteID != "LS-20261015-0001" {
		t.Fatalf("unexpected note id %s", res.Primary.NoteID)
	}
	got, _ := env.repos.Output.FindByID(ctx, output.ID)
	if got.Status != entity.OutputStatusShipped {
		t.Fatalf("expected shipped, got %s", got.Status)
	}
	types := env.sink.types()
	if types[len(types)-1] != entity.EventOutputShipped {
		t.Fatalf("expected output_shipped event, got %v", types)
	}
}

func TestIncomingNoteNeverTouchesOutput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	output := env.seedOutput(t, 400)
	input := env.seedInput(t, 1000)

	_, err := env.svc.Delivery.Create(ctx, logistics, CreateDeliveryNoteReq{
		Type:             entity.DeliveryTypeIncoming,
		Partner:          "Kunststoff Nord",
		Material:         "PP regrind",
		WeightKg:         1000,
		MaterialInputID:  &input.ID,
		OutputMaterialID: &output.ID,
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	got, _ := env.repos.Output.FindByID(ctx, output.ID)
	if got.Status != entity.OutputStatusInStock {
		t.Fatalf("incoming note must not change output, got %s", got.Status)
	}
}

func TestDeliveryNoteIDFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	output := env.seedOutput(t, 400)
	env.ids.Fail[PrefixDeliveryNote] = true

	_, err := env.svc.Delivery.Create(ctx, logistics, CreateDeliveryNoteReq{
		Type:             entity.DeliveryTypeOutgoing,
		Partner:          "Recycling Süd GmbH",
		Material:         "PP granulate",
		WeightKg:         400,
		OutputMaterialID: &output.ID,
	})
	assertKind(t, err, KindIDGeneration)

	got, _ := env.repos.Output.FindByID(ctx, output.ID)
	if got.Status != entity.OutputStatusInStock {
		t.Fatalf("output must stay in stock, got %s", got.Status)
	}
	_, total, _ := env.svc.Delivery.List(ctx, "", 1, 20)
	if total != 0 {
		t.Fatalf("expected no notes, got %d", total)
	}
}

func TestAttachDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created, err := env.svc.Delivery.Create(ctx, logistics, CreateDeliveryNoteReq{
		Type:     entity.DeliveryTypeIncoming,
		Partner:  "Kunststoff Nord",
		Material: "PE film",
		WeightKg: 320,
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	_, err = env.svc.Delivery.DocumentURL(ctx, created.Primary.ID)
	assertKind(t, err, KindNotFound)
	_, _, err = env.svc.Delivery.DownloadDocument(ctx, created.Primary.ID)
	assertKind(t, err, KindNotFound)

	res, err := env.svc.Delivery.AttachDocument(ctx, logistics, created.Primary.NoteID, "../scan.pdf", "application/pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	want := "delivery-notes/LS-20261015-0001/scan.pdf"
	if res.Primary.DocumentPath != want {
		t.Fatalf("expected path %s, got %s", want, res.Primary.DocumentPath)
	}
	if string(env.docs.objects[want]) != "%PDF" {
		t.Fatal("document not uploaded")
	}
	url, err := env.svc.Delivery.DocumentURL(ctx, created.Primary.ID)
	if err != nil || url != "https://docs.example/"+want {
		t.Fatalf("document url: %q %v", url, err)
	}
	data, name, err := env.svc.Delivery.DownloadDocument(ctx, created.Primary.NoteID)
	if err != nil || string(data) != "%PDF" || name != "scan.pdf" {
		t.Fatalf("download: %q %q %v", data, name, err)
	}

	env.docs.err = errors.New("bucket unavailable")
	_, err = env.svc.Delivery.AttachDocument(ctx, logistics, created.Primary.ID, "again.pdf", "application/pdf", []byte("%PDF"))
	assertKind(t, err, KindBackend)
	_, _, err = env.svc.Delivery.DownloadDocument(ctx, created.Primary.ID)
	assertKind(t, err, KindBackend)
}
